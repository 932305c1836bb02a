package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	startErr error
	started  atomic.Bool
	stopped  atomic.Bool
}

func (s *fakeServer) Start(ctx context.Context) error {
	s.started.Store(true)
	if s.startErr != nil {
		return s.startErr
	}
	<-ctx.Done()
	return nil
}

func (s *fakeServer) Stop(context.Context) error {
	s.stopped.Store(true)
	return nil
}

func (s *fakeServer) Name() string { return "fake" }
func (s *fakeServer) Addr() string { return "fake://" }

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestApp_RunAndStop(t *testing.T) {
	var order []string
	srv := &fakeServer{}
	app := NewApp(
		WithName("relay"),
		WithVersion("2.0.0"),
		WithGracefulTimeout(time.Second),
		WithCloser("first", closerFunc(func() error { order = append(order, "first"); return nil })),
		WithCloser("second", closerFunc(func() error { order = append(order, "second"); return errors.New("ignored") })),
	).Use(srv)

	assert.Equal(t, "relay", app.Name())
	assert.Equal(t, "2.0.0", app.Version())

	done := make(chan error, 1)
	go func() { done <- app.Run() }()

	require.Eventually(t, srv.started.Load, time.Second, 5*time.Millisecond)
	app.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run 未返回")
	}

	assert.True(t, srv.stopped.Load())
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Error(t, app.Context().Err())
}

func TestApp_StartError(t *testing.T) {
	bad := &fakeServer{startErr: errors.New("address in use")}
	good := &fakeServer{}
	app := NewApp(WithGracefulTimeout(time.Second)).Use(bad, good)

	err := app.Run()
	assert.EqualError(t, err, "address in use")
	assert.True(t, bad.stopped.Load())
}

func TestApp_AlreadyRunning(t *testing.T) {
	srv := &fakeServer{}
	app := NewApp(WithGracefulTimeout(time.Second)).Use(srv)

	done := make(chan error, 1)
	go func() { done <- app.Run() }()

	require.Eventually(t, srv.started.Load, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, app.Run(), ErrServerRunning)

	app.Stop()
	assert.NoError(t, <-done)
}

func TestHTTP_ServeAndStop(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})

	srv, err := NewHTTP(mux, WithHTTPAddr("127.0.0.1:0"), WithHTTPName("metrics"))
	require.NoError(t, err)
	assert.Equal(t, "metrics", srv.Name())
	assert.Equal(t, "127.0.0.1:0", srv.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Start(ctx) }()

	require.Eventually(t, func() bool { return srv.Addr() != "127.0.0.1:0" }, time.Second, 5*time.Millisecond)

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	require.NoError(t, srv.Stop(context.Background()))
	_, err = http.Get("http://" + srv.Addr() + "/metrics")
	assert.Error(t, err)
}

func TestHTTP_StopBeforeStart(t *testing.T) {
	srv, err := NewHTTP(http.NotFoundHandler(), WithHTTPAddr("127.0.0.1:0"))
	require.NoError(t, err)

	require.NoError(t, srv.Stop(context.Background()))
	assert.NoError(t, srv.Start(context.Background()))
}

func TestNewHTTP_NilHandler(t *testing.T) {
	_, err := NewHTTP(nil)
	assert.ErrorIs(t, err, ErrNilHandler)
}
