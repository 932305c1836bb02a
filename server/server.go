// Package server 管理后台服务的生命周期.
//
// App 并发启动所有注册的 Server，收到退出信号或调用 Stop 后在超时时间内依次停止它们，
// 最后按注册顺序关闭登记的资源.
//
// 示例：
//
//	app := server.NewApp(
//	    server.WithName("telemetry-relay"),
//	    server.WithLogger(log),
//	    server.WithCloser("telemetry", tel),
//	)
//	srv, err := server.NewHTTP(collector.GetHandler(), server.WithHTTPAddr(":9100"))
//	if err != nil {
//	    return err
//	}
//	app.Use(srv).Run()
package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Server 服务接口.
type Server interface {
	// Start 启动服务，阻塞直到 ctx 取消或服务结束.
	Start(ctx context.Context) error

	// Stop 停止服务.
	Stop(ctx context.Context) error

	// Name 服务名称.
	Name() string

	// Addr 服务地址.
	Addr() string
}

// App 应用程序.
type App struct {
	opts    *appOptions
	servers []Server
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	running bool
}

// NewApp 创建应用程序.
func NewApp(opts ...AppOption) *App {
	o := defaultAppOptions()
	for _, opt := range opts {
		opt(o)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &App{
		opts:   o,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Use 注册服务，支持链式调用.
func (a *App) Use(servers ...Server) *App {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.servers = append(a.servers, servers...)
	return a
}

// Run 运行应用程序，阻塞直到收到关闭信号、调用 Stop 或某个服务启动失败.
//
// 返回第一个启动失败的服务错误.
func (a *App) Run() error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrServerRunning
	}
	a.running = true
	servers := append([]Server(nil), a.servers...)
	a.mu.Unlock()

	a.logDebugf("应用启动中 [name:%s] [version:%s]", a.opts.name, a.opts.version)

	errCh := a.start(servers)
	startErr := a.wait(errCh)
	a.shutdown(servers)
	return startErr
}

// Stop 主动停止应用程序.
func (a *App) Stop() {
	a.cancel()
}

// Context 获取应用上下文，Stop 后被取消.
func (a *App) Context() context.Context {
	return a.ctx
}

// Name 获取应用名称.
func (a *App) Name() string {
	return a.opts.name
}

// Version 获取应用版本.
func (a *App) Version() string {
	return a.opts.version
}

// start 并发启动所有服务，返回启动错误通道.
func (a *App) start(servers []Server) <-chan error {
	errCh := make(chan error, len(servers))
	if len(servers) == 0 {
		a.logWarn("没有注册任何服务")
		return errCh
	}

	for _, srv := range servers {
		go func(s Server) {
			a.logDebugf("启动服务: %s [addr:%s]", s.Name(), s.Addr())
			if err := s.Start(a.ctx); err != nil {
				errCh <- err
			}
		}(srv)
	}
	return errCh
}

// wait 等待关闭信号、上下文取消或启动错误.
func (a *App) wait(errCh <-chan error) error {
	signals := a.opts.signals
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, signals...)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.logDebugf("收到信号: %s", sig.String())
	case <-a.ctx.Done():
		a.logDebug("上下文已取消")
	case err := <-errCh:
		a.logErrorf("服务启动失败: %v", err)
		return err
	}
	return nil
}

// shutdown 优雅关闭.
func (a *App) shutdown(servers []Server) {
	a.logDebugf("开始优雅关闭 [timeout:%v]", a.opts.gracefulTimeout)
	a.cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.opts.gracefulTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, srv := range servers {
		wg.Add(1)
		go func(s Server) {
			defer wg.Done()
			a.logDebugf("停止服务: %s", s.Name())
			if err := s.Stop(shutdownCtx); err != nil {
				a.logErrorf("服务停止失败 [name:%s] [error:%v]", s.Name(), err)
			}
		}(srv)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.logDebug("所有服务已停止")
	case <-shutdownCtx.Done():
		a.logWarn("关闭超时，强制退出")
	}

	for _, c := range a.opts.closers {
		if err := c.closer.Close(); err != nil {
			a.logErrorf("资源关闭失败 [name:%s] [error:%v]", c.name, err)
		}
	}

	a.mu.Lock()
	a.running = false
	a.mu.Unlock()

	a.logDebug("应用已关闭")
}

// 日志辅助方法.

func (a *App) logDebug(msg string) {
	if log := a.opts.logger; log != nil {
		log.Debug("[App] " + msg)
	}
}

func (a *App) logDebugf(format string, args ...any) {
	if log := a.opts.logger; log != nil {
		log.Debugf("[App] "+format, args...)
	}
}

func (a *App) logWarn(msg string) {
	if log := a.opts.logger; log != nil {
		log.Warn("[App] " + msg)
	}
}

func (a *App) logErrorf(format string, args ...any) {
	if log := a.opts.logger; log != nil {
		log.Errorf("[App] "+format, args...)
	}
}
