// Package main implements the entry point for gridwatch, which samples
// sensors on a fixed tick and runs each batch through a noise reduction,
// trend and anomaly detection pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/gridwatch/config"
	"github.com/c360/gridwatch/driver"
	"github.com/c360/gridwatch/errors"
	"github.com/c360/gridwatch/health"
	"github.com/c360/gridwatch/metric"
	"github.com/c360/gridwatch/natsclient"
	"github.com/c360/gridwatch/natssource"
	"github.com/c360/gridwatch/pkg/retry"
	"github.com/c360/gridwatch/pkg/tlsutil"
	"github.com/c360/gridwatch/sensor"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "gridwatch"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:]); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	cliCfg, err := parseFlags(fs, args)
	if err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp(fs)
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := loadConfig(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cliCfg.Validate {
		logger.Info("Configuration is valid", "groups", len(cfg.Groups()), "sensors", len(cfg.Sensors))
		return nil
	}

	logger.Info("Starting gridwatch",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath,
		"window_size", cfg.Pipeline.WindowSize,
		"anomaly_threshold", cfg.Pipeline.AnomalyThreshold,
		"interval", cfg.Driver.Interval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := metric.NewMetricsRegistry()

	var (
		natsClient *natsclient.Client
		events     *connectionEvents
		remote     []sensor.Sensor
	)
	if cfg.NATS.Enabled {
		events = newConnectionEvents(logger)
		natsClient, err = connectToNATS(ctx, cfg.NATS, registry, logger, events)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), cliCfg.ShutdownTimeout)
			defer cancel()
			if err := natsClient.Close(closeCtx); err != nil {
				logger.Warn("NATS close failed", "error", err)
			}
		}()

		if ids := natsSensorIDs(cfg); len(ids) > 0 {
			src, err := natssource.New(natsClient, natssource.Config{
				Prefix:    cfg.NATS.Subject,
				SensorIDs: ids,
				MaxAge:    cfg.NATS.MaxAge,
			}, natssource.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("create nats source: %w", err)
			}
			if err := src.Start(ctx); err != nil {
				return fmt.Errorf("start nats source: %w", err)
			}
			remote = src.Sensors()
		}
	}

	groups, err := buildGroups(cfg, remote)
	if err != nil {
		return fmt.Errorf("build sensor groups: %w", err)
	}

	d, err := driver.New(driver.Config{
		Interval:  cfg.Driver.Interval,
		Workers:   cfg.Driver.Workers,
		QueueSize: cfg.Driver.QueueSize,
		Groups:    groups,
	},
		driver.WithLogger(logger),
		driver.WithMetrics(registry),
		driver.WithSink(driver.NewLogSink(logger, cfg.Driver.WarnInterval, cfg.Driver.WarnBurst)),
	)
	if err != nil {
		return fmt.Errorf("create driver: %w", err)
	}

	return serve(ctx, d, natsClient, events, registry, cfg.Metrics, logger)
}

// serve runs the driver and, when enabled, the metrics server until ctx ends
// or either of them fails.
func serve(
	ctx context.Context,
	d *driver.Driver,
	natsClient *natsclient.Client,
	events *connectionEvents,
	registry *metric.MetricsRegistry,
	mc config.MetricsConfig,
	logger *slog.Logger,
) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return d.Run(gctx) })

	if mc.Enabled {
		server := metric.NewServer(mc.Port, mc.Path, registry, healthFunc(d, natsClient, events))
		tlsCfg, err := tlsutil.LoadServerTLSConfig(mc.TLS)
		if err != nil {
			return fmt.Errorf("metrics tls: %w", err)
		}
		server.SetTLSConfig(tlsCfg)
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			logger.Info("Metrics server listening", "address", server.Address())
			return server.Start()
		})
		g.Go(func() error {
			<-gctx.Done()
			return server.Stop()
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("gridwatch shutdown complete", "ticks", d.Ticks(), "skipped", d.Skipped())
	return nil
}

func healthFunc(d *driver.Driver, natsClient *natsclient.Client, events *connectionEvents) metric.HealthFunc {
	return func() (any, bool) {
		subs := []health.Status{d.Health()}
		if natsClient != nil {
			subs = append(subs, events.status("nats", natsClient.GetStatus()))
		}
		status := health.Aggregate(appName, subs)
		return status, !status.IsUnhealthy()
	}
}

// natsOptions maps the NATS section onto client options
func natsOptions(
	nc config.NATSConfig,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
	events *connectionEvents,
) ([]natsclient.ClientOption, error) {
	opts := []natsclient.ClientOption{
		natsclient.WithName(appName),
		natsclient.WithLogger(logger),
		natsclient.WithMetrics(registry),
		natsclient.WithMaxReconnects(nc.MaxReconnects),
	}
	if nc.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(nc.ReconnectWait))
	}
	if nc.PingInterval > 0 {
		opts = append(opts, natsclient.WithPingInterval(nc.PingInterval))
	}
	if nc.DrainTimeout > 0 {
		opts = append(opts, natsclient.WithDrainTimeout(nc.DrainTimeout))
	}
	if nc.MaxBackoff > 0 {
		opts = append(opts, natsclient.WithMaxBackoff(nc.MaxBackoff))
	}
	if nc.Username != "" {
		opts = append(opts, natsclient.WithCredentials(nc.Username, nc.Password))
	}
	if nc.Token != "" {
		opts = append(opts, natsclient.WithToken(nc.Token))
	}
	if events != nil {
		opts = append(opts, events.options()...)
	}

	tlsCfg, err := tlsutil.LoadClientTLSConfig(nc.TLS)
	if err != nil {
		return nil, fmt.Errorf("nats tls: %w", err)
	}
	return append(opts, natsclient.WithTLSConfig(tlsCfg)), nil
}

// connectToNATS connects with retries, then waits for the connection to be ready
func connectToNATS(
	ctx context.Context,
	nc config.NATSConfig,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
	events *connectionEvents,
) (*natsclient.Client, error) {
	opts, err := natsOptions(nc, registry, logger, events)
	if err != nil {
		return nil, err
	}
	client, err := natsclient.NewClient(strings.Join(nc.URLs, ","), opts...)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	rc := retry.DefaultConfig()
	if nc.ConnectAttempts > 0 {
		rc.MaxAttempts = nc.ConnectAttempts
	}
	rc.Retryable = errors.IsTransient

	logger.Info("Connecting to NATS", "urls", nc.URLs, "attempts", rc.MaxAttempts)
	if err := retry.Do(ctx, rc, func() error { return client.Connect(ctx) }); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, fmt.Errorf("NATS connection timeout: %w", err)
	}
	return client, nil
}

// loadConfig layers the optional file over defaults and validates the result
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader.AddLayer(path)
	}
	loader.EnableValidation(true)
	return loader.Load()
}
