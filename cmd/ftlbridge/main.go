package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/raven-go"

	"ftlbridge/internal/api"
	"ftlbridge/internal/lists"
	"ftlbridge/internal/log"
	"ftlbridge/internal/meta"
	"ftlbridge/internal/metrics"
	"ftlbridge/internal/network"
	"ftlbridge/internal/protocol"
	"ftlbridge/internal/stats"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String(
		"config",
		os.Getenv("FTLBRIDGE_CONFIG"),
		"path to the configuration file on disk; .toml files are parsed as TOML, anything else as YAML",
	)
	version := flag.Bool(
		"version",
		false,
		"print the compiled ftlbridge version SHA",
	)
	verbosity := flag.String(
		"verbosity",
		"",
		"desired logging verbosity, overriding the config: one of error, warn, info, debug",
	)
	flag.Parse()

	// Report the compiled version and exit
	if *version {
		fmt.Printf("ftlbridge/%s\n", meta.Version())
		return
	}

	logger := log.NewConsoleLogger(log.Info)

	// Parse application configuration
	logger.Debug("main: reading and parsing config: path=%s", *configPath)
	config, err := meta.ParseConfig(*configPath)
	if err != nil {
		panic(err)
	}

	// Logging configuration; the flag takes precedence over the config
	levelName := config.Application.LogLevel
	if *verbosity != "" {
		levelName = *verbosity
	}

	level, ok := log.ParseLevel(levelName)
	if !ok {
		logger.Warn("main: unknown logging verbosity; using default: supplied=%s default=%s", levelName, level)
	}

	logger = log.NewConsoleLogger(level)
	logger.Debug("main: initialized logger: level=%v", level)

	// Configure error reporting
	if config.Application.SentryDSN != "" {
		raven.SetDSN(config.Application.SentryDSN)
		raven.SetRelease(meta.Version())
	}

	// Configure metrics reporting
	cxLifecycleHook := metrics.NewNoopConnectionLifecycleHook()
	cxIOHook := metrics.NewNoopConnectionIOHook()
	commandHook := metrics.NewNoopCommandHook()

	if config.Metrics != nil && config.Metrics.Statsd != nil {
		logger.Info(
			"main: configuring statsd metrics reporting: addr=%s sample_rate=%f",
			config.Metrics.Statsd.Address,
			config.Metrics.Statsd.SampleRate,
		)

		sampleRate := float32(config.Metrics.Statsd.SampleRate)

		if cxLifecycleHook, err = metrics.NewAsyncStatsdConnectionLifecycleHook(
			"engine",
			config.Metrics.Statsd.Address,
			sampleRate,
			meta.Version(),
		); err != nil {
			panic(err)
		}

		if cxIOHook, err = metrics.NewAsyncStatsdConnectionIOHook(
			"engine",
			config.Metrics.Statsd.Address,
			sampleRate,
			meta.Version(),
		); err != nil {
			panic(err)
		}

		if commandHook, err = metrics.NewAsyncStatsdCommandHook(
			config.Metrics.Statsd.Address,
			sampleRate,
			meta.Version(),
		); err != nil {
			panic(err)
		}
	} else {
		logger.Warn("main: no statsd address specified; disabling engine metrics")
	}

	// Configure the engine client
	engineOpts := network.EngineClientOpts{
		ConnectTimeout: config.Engine.ConnectTimeout,
		ReadTimeout:    config.Engine.ReadTimeout,
		WriteTimeout:   config.Engine.WriteTimeout,
		PoolOpts: network.PersistentConnPoolOpts{
			Capacity:     config.Engine.ConnectionPoolSize,
			StaleTimeout: config.Engine.StaleTimeout,
		},
	}

	logger.Info(
		"main: configuring engine client: network=%s addr=%s conns=%d",
		config.Engine.Network,
		config.Engine.Address,
		engineOpts.PoolOpts.Capacity,
	)

	upstream, err := network.NewEngineClient(
		config.Engine.Network,
		config.Engine.Address,
		cxLifecycleHook,
		engineOpts,
	)
	if err != nil {
		panic(err)
	}

	engine := &protocol.Client{
		Upstream:    upstream,
		IOHook:      cxIOHook,
		CommandHook: commandHook,
		Logger:      logger,
		Opts: protocol.ClientOpts{
			MaxReplyLines: config.Engine.MaxReplyLines,
		},
	}

	statsService := stats.NewService(engine, logger, stats.Opts{
		DefaultTopCount:     config.Stats.DefaultTopCount,
		MaxTopCount:         config.Stats.MaxTopCount,
		DefaultHistoryCount: config.Stats.DefaultHistoryCount,
		MaxHistoryCount:     config.Stats.MaxHistoryCount,
		OverTimeStep:        config.Stats.OverTimeStep,
	})
	listService := lists.NewService(engine, logger)

	// Configure the HTTP listener
	logger.Info("main: configuring HTTP server listener: addr=%s", config.Listener.HTTP.Address)

	server := api.NewServer(statsService, listService, upstream, logger, api.ServerOpts{
		Address:        config.Listener.HTTP.Address,
		ReadTimeout:    config.Listener.HTTP.ReadTimeout,
		WriteTimeout:   config.Listener.HTTP.WriteTimeout,
		StreamInterval: config.Listener.HTTP.StreamInterval,
		AllowedOrigins: config.Listener.HTTP.AllowedOrigins,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	// Serve until interrupted
	logger.Info("main: serving until interrupted")

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("main: HTTP server failed: err=%v", err)
		}
	case <-ctx.Done():
		logger.Info("main: received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("%v", err)
	}

	if err := upstream.Close(); err != nil {
		logger.Warn("main: error closing engine connections: err=%v", err)
	}

	raven.DefaultClient.Wait()
}
