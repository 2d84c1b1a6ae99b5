package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/quarryhq/sitecapture/internal/capture"
	"github.com/quarryhq/sitecapture/internal/common"
	"github.com/quarryhq/sitecapture/internal/errlog"
	"github.com/quarryhq/sitecapture/internal/housekeeping"
	"github.com/quarryhq/sitecapture/internal/mcpapi"
	"github.com/quarryhq/sitecapture/internal/progress"
	"github.com/quarryhq/sitecapture/internal/render"
	"github.com/quarryhq/sitecapture/internal/server"
	"github.com/quarryhq/sitecapture/internal/storage/badger"
	"github.com/quarryhq/sitecapture/internal/urlcanon"
)

// configPaths is a custom flag type that allows multiple -config flags.
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	serverPort   = flag.Int("port", 0, "Server port (overrides config)")
	serverPortP  = flag.Int("p", 0, "Server port (shorthand, overrides config)")
	serverHost   = flag.String("host", "", "Server host (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("sitecapture version %s\n", common.GetVersion())
		os.Exit(0)
	}

	finalPort := *serverPort
	if *serverPortP != 0 {
		finalPort = *serverPortP
	}

	if len(configFiles) == 0 {
		if _, err := os.Stat("sitecapture.toml"); err == nil {
			configFiles = append(configFiles, "sitecapture.toml")
		} else if _, err := os.Stat("deployments/local/sitecapture.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/sitecapture.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, finalPort, *serverHost)

	if err := common.ValidateCronSchedule(config.Housekeeping.PurgeSchedule); err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Str("schedule", config.Housekeeping.PurgeSchedule).Msg("Invalid housekeeping purge schedule")
		os.Exit(1)
	}

	logger := common.SetupLogger(config)
	common.PrintBanner(config, logger)

	if err := run(config, logger); err != nil {
		logger.Fatal().Err(err).Msg("sitecapture exited with error")
	}
}

func run(config *common.Config, logger arbor.ILogger) error {
	store, err := badger.NewStore(logger, &config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing storage")
		}
	}()

	bus := progress.NewBus(config.WebSocket.SubscriberQueue, logger)
	defer bus.Close()

	progressHandler := progress.NewHandler(bus, config.WebSocket.ReadBufferSize, config.WebSocket.WriteBufferSize, logger)

	errLogger := errlog.NewLogger(store, logger, common.GetVersion())
	logError := func(source, level, message string, entryContext map[string]string) {
		if err := errLogger.Log(context.Background(), source, level, message, entryContext); err != nil {
			logger.Warn().Err(err).Str("source", source).Msg("failed to persist error log entry")
		}
	}

	housekeepingSvc := housekeeping.NewService(store, config.Housekeeping.PurgeSchedule, logger)
	if err := housekeepingSvc.Start(); err != nil {
		return fmt.Errorf("starting housekeeping service: %w", err)
	}
	defer housekeepingSvc.Stop()

	poolFactory := render.NewPoolFactory(config.Render, logger)
	scopeMode := urlcanon.MatchMode(config.Capture.ScopeMatchMode)

	captureSvc := capture.NewService(store, poolFactory, bus, logError, logger, scopeMode)
	defer captureSvc.Close()

	api := mcpapi.New(captureSvc, store, errLogger, logger)

	srv := server.New(config, api, progressHandler, logger)
	shutdownChan := make(chan struct{})
	srv.SetShutdownChannel(shutdownChan)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Fatal().Str("panic", fmt.Sprintf("%v", r)).Msg("Server goroutine panicked")
			}
		}()
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	time.Sleep(100 * time.Millisecond)

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info().Msg("Interrupt signal received")
	case <-shutdownChan:
		logger.Info().Msg("Shutdown requested via HTTP")
	}

	common.PrintShutdownBanner(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	logger.Info().Msg("Server stopped")
	common.Stop()
	return nil
}
