package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	scfg "github.com/ihippik/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/ihippik/cosmos-radar/internal/config"
	"github.com/ihippik/cosmos-radar/internal/device"
	"github.com/ihippik/cosmos-radar/internal/radar"
)

func main() {
	app := newApp(openDevice, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(opener radar.Opener, reg prometheus.Registerer, gatherer prometheus.Gatherer) *cli.App {
	version := scfg.GetVersion()

	return &cli.App{
		Name:    "CosmosRadar",
		Usage:   "report processes tracked by the cosmos driver",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "config.yml",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:    "device",
				Aliases: []string{"d"},
				Usage:   "control endpoint path (default: " + device.DefaultPath + ")",
			},
			&cli.StringFlag{
				Name:  "sink",
				Usage: "where to report processes: console or log",
			},
		},
		Action: func(c *cli.Context) error {
			ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := config.InitConfig(ctx, c.String("config"))
			if err != nil {
				return fmt.Errorf("get config: %w", err)
			}

			applyFlags(c, cfg)

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("validate flags: %w", err)
			}

			logger := scfg.InitSlog(cfg.Logger, version, cfg.Monitoring.SentryDSN != "")

			if cfg.Metrics.Addr != "" {
				go serveMetrics(ctx, logger, gatherer, cfg.Metrics.Addr)
			}

			svc := radar.NewService(
				logger,
				opener,
				newSink(cfg, logger),
				radar.NewMetrics(reg),
				radar.Options{
					Path:              cfg.Channel.Path,
					MaxRecords:        cfg.Channel.MaxRecords,
					PollInterval:      cfg.Poll.Interval,
					IdleInterval:      cfg.Poll.IdleInterval,
					ReconnectAttempts: cfg.Poll.ReconnectAttempts,
				},
			)

			return svc.Start(ctx)
		},
	}
}

func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("device") {
		cfg.Channel.Path = c.String("device")
	}

	if cfg.Channel.Path == "" {
		cfg.Channel.Path = device.DefaultPath
	}

	if c.IsSet("sink") {
		cfg.Sink.Kind = c.String("sink")
	}
}

func openDevice(path string) (radar.Channel, error) {
	d, err := device.Open(path)
	if err != nil {
		return nil, err
	}

	return d, nil
}

func newSink(cfg *config.Config, logger *slog.Logger) radar.EventSink {
	if cfg.Sink.Kind == config.SinkLog {
		return radar.NewLogSink(logger, cfg.Sink.PathLimit)
	}

	return radar.NewConsoleSink(os.Stdout, cfg.Sink.PathLimit)
}

func serveMetrics(ctx context.Context, logger *slog.Logger, gatherer prometheus.Gatherer, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", slog.String("addr", addr))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server stopped", slog.Any("error", err))
	}
}
