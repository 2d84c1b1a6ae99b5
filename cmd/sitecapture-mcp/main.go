package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"

	"github.com/quarryhq/sitecapture/internal/capture"
	"github.com/quarryhq/sitecapture/internal/common"
	"github.com/quarryhq/sitecapture/internal/errlog"
	"github.com/quarryhq/sitecapture/internal/mcpapi"
	"github.com/quarryhq/sitecapture/internal/progress"
	"github.com/quarryhq/sitecapture/internal/render"
	"github.com/quarryhq/sitecapture/internal/storage/badger"
	"github.com/quarryhq/sitecapture/internal/urlcanon"
)

func main() {
	configPath := os.Getenv("SITECAPTURE_CONFIG")
	if configPath == "" {
		configPath = "sitecapture.toml"
	}

	config, err := common.LoadFromFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Minimal console-only logger at warn level: stdout/stderr noise would
	// corrupt the MCP stdio transport.
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:             arbor_models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}).WithLevelFromString("warn")

	store, err := badger.NewStore(logger, &config.Storage.Badger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer store.Close()

	bus := progress.NewBus(config.WebSocket.SubscriberQueue, logger)
	defer bus.Close()

	errLogger := errlog.NewLogger(store, logger, common.GetVersion())
	logError := func(source, level, message string, entryContext map[string]string) {
		if err := errLogger.Log(context.Background(), source, level, message, entryContext); err != nil {
			logger.Warn().Err(err).Str("source", source).Msg("failed to persist error log entry")
		}
	}

	poolFactory := render.NewPoolFactory(config.Render, logger)
	scopeMode := urlcanon.MatchMode(config.Capture.ScopeMatchMode)

	captureSvc := capture.NewService(store, poolFactory, bus, logError, logger, scopeMode)
	defer captureSvc.Close()

	api := mcpapi.New(captureSvc, store, errLogger, logger)

	mcpServer := server.NewMCPServer(
		"sitecapture",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(createCrawlStartTool(), handleCrawlStart(api, logger))
	mcpServer.AddTool(createCrawlStatusTool(), handleCrawlStatus(api, logger))
	mcpServer.AddTool(createCrawlCancelTool(), handleCrawlCancel(api, logger))
	mcpServer.AddTool(createCrawlResumeTool(), handleCrawlResume(api, logger))

	mcpServer.AddTool(createPagesListTool(), handlePagesList(api, logger))
	mcpServer.AddTool(createPagesSearchTool(), handlePagesSearch(api, logger))

	mcpServer.AddTool(createConvertToFormatTool(), handleConvertToFormat(api, logger))
	mcpServer.AddTool(createExportAsArchiveTool(), handleExportAsArchive(api, logger))

	mcpServer.AddTool(createDiagnosticsReportTool(), handleDiagnosticsReport(api, logger))
	mcpServer.AddTool(createDiagnosticsGetErrorsTool(), handleDiagnosticsGetErrors(api, logger))
	mcpServer.AddTool(createDiagnosticsClearErrorsTool(), handleDiagnosticsClearErrors(api, logger))

	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}
