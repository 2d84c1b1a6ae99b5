package server

import (
	"net/http"

	"github.com/quarryhq/sitecapture/internal/common"
)

// setupRoutes configures all HTTP routes for the capability surface.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route - capture progress streaming
	mux.HandleFunc("/ws", s.progress.ServeHTTP)

	// API routes - crawl lifecycle
	mux.HandleFunc("/api/crawl/start", s.handleCrawlStart)
	mux.HandleFunc("/api/crawl/status", s.handleCrawlStatus)
	mux.HandleFunc("/api/crawl/cancel", s.handleCrawlCancel)
	mux.HandleFunc("/api/crawl/resume", s.handleCrawlResume)

	// API routes - pages
	mux.HandleFunc("/api/pages", s.handlePagesList)
	mux.HandleFunc("/api/pages/search", s.handlePagesSearch)

	// API routes - format conversion and export
	mux.HandleFunc("/api/convert", s.handleConvert)
	mux.HandleFunc("/api/export", s.handleExport)

	// API routes - diagnostics
	mux.HandleFunc("/api/diagnostics/report", s.handleDiagnosticsReport)
	mux.HandleFunc("/api/diagnostics/errors", s.handleDiagnosticsErrors)
	mux.HandleFunc("/api/diagnostics/errors/clear", s.handleDiagnosticsClearErrors)

	// API routes - system
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/shutdown", s.ShutdownHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.handleNotFound)

	return mux
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found: " + r.URL.Path})
}
