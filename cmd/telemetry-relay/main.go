// Command telemetry-relay 将标准输入中的 JSON 行记录转发到配置的上报端.
//
// 输入格式与 reporter.Writer 的输出一致，因此可以把调试模式的服务输出直接接入 Kafka 等接入端:
//
//	my-service | telemetry-relay --config telemetry.yaml --metrics-addr :9100
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tsukikage7/telemetry-kit/server"
	"github.com/Tsukikage7/telemetry-kit/telemetry"
)

var version = "dev"

type options struct {
	configPath      string
	serviceName     string
	reporter        string
	sampleRate      uint32
	metricsAddr     string
	gracefulTimeout time.Duration
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	o := &options{}

	cmd := &cobra.Command{
		Use:           "telemetry-relay",
		Short:         "Forward JSON-line telemetry records from stdin to the configured reporter",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(o, cmd.InOrStdin(), cmd.Flags().Changed("sample-rate"))
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&o.configPath, "config", "c", "", "path to the telemetry config file (yaml, json or toml)")
	flags.StringVar(&o.serviceName, "service-name", "", "service name stamped on records without one")
	flags.StringVar(&o.reporter, "reporter", "", "reporter type: stdout, kafka, rabbitmq, redis or discard")
	flags.Uint32Var(&o.sampleRate, "sample-rate", 1, "keep one trace out of N")
	flags.StringVar(&o.metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on, disabled when empty")
	flags.DurationVar(&o.gracefulTimeout, "graceful-timeout", 10*time.Second, "time allowed for in-flight records to drain on shutdown")

	return cmd
}

// loadConfig 读取配置文件并应用命令行覆盖.
func loadConfig(o *options, sampleRateSet bool) (*telemetry.Config, error) {
	cfg := &telemetry.Config{}
	if o.configPath != "" {
		loaded, err := telemetry.LoadConfig(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if o.serviceName != "" {
		cfg.ServiceName = o.serviceName
	}
	if o.reporter != "" {
		cfg.Reporter = o.reporter
	}
	if sampleRateSet {
		rate := o.sampleRate
		cfg.SampleRate = &rate
	}
	return cfg, nil
}

func run(o *options, input io.Reader, sampleRateSet bool) error {
	cfg, err := loadConfig(o, sampleRateSet)
	if err != nil {
		return err
	}

	tel, err := telemetry.NewFromConfig(cfg)
	if err != nil {
		return err
	}

	log := tel.Logger()

	app := server.NewApp(
		server.WithName("telemetry-relay"),
		server.WithVersion(version),
		server.WithLogger(log),
		server.WithGracefulTimeout(o.gracefulTimeout),
		server.WithCloser("telemetry", tel),
	)
	collector := tel.Metrics()
	app.Use(newRelay(input, tel, log, collector, app.Stop))

	if o.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle(collector.GetPath(), collector.GetHandler())

		srv, err := server.NewHTTP(mux,
			server.WithHTTPName("metrics"),
			server.WithHTTPAddr(o.metricsAddr),
			server.WithHTTPLogger(log),
		)
		if err != nil {
			tel.Close()
			return err
		}
		app.Use(srv)
	}

	log.Infof("[Relay] 启动 [service:%s] [reporter:%s] [sample_rate:%d]", tel.ServiceName(), cfg.Reporter, tel.SampleRate())
	return app.Run()
}
