// Package api is the HTTP surface around the corridor engine: detection
// ingest, read-only state queries, reporting, charts, live push, and
// Prometheus metrics.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goldenhour-labs/goldenhour/internal/corridor"
	"github.com/goldenhour-labs/goldenhour/internal/ingest"
	"github.com/goldenhour-labs/goldenhour/internal/report"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	cfg      *corridor.Config
	sched    *corridor.Scheduler
	registry *corridor.Registry
	ledger   *corridor.Ledger
	gateway  *ingest.Gateway
	clock    corridor.Clock
}

func NewServer(cfg *corridor.Config, sched *corridor.Scheduler, registry *corridor.Registry, ledger *corridor.Ledger, gateway *ingest.Gateway, clock corridor.Clock) *Server {
	if clock == nil {
		clock = corridor.WallClock()
	}
	return &Server{
		cfg:      cfg,
		sched:    sched,
		registry: registry,
		ledger:   ledger,
		gateway:  gateway,
		clock:    clock,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/detection", s.handleDetection)
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/signals", s.listSignals)
	mux.HandleFunc("/api/incidents", s.listIncidents)
	mux.HandleFunc("/api/stats", s.showStats)
	mux.HandleFunc("/api/report", s.showReport)
	mux.HandleFunc("/api/report/plot.png", s.showReportPlot)
	mux.HandleFunc("/api/charts/report", s.showReportChart)
	mux.HandleFunc("/api/live", s.handleLive)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	snap := s.sched.Snapshot(s.recentLimit(r, 50))
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write status")
		return
	}
}

func (s *Server) listSignals(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := json.NewEncoder(w).Encode(s.registry.List()); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write signals")
		return
	}
}

func (s *Server) listIncidents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	incidents := s.ledger.Recent(s.recentLimit(r, 50))
	if err := json.NewEncoder(w).Encode(incidents); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write incidents")
		return
	}
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := json.NewEncoder(w).Encode(s.ledger.Stats()); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write stats")
		return
	}
}

func (s *Server) showReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	days, err := s.reportDays(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep := report.Build(s.ledger.Snapshot(), s.cfg.Intersections, s.clock.Now(), days)
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write report")
		return
	}
}

func (s *Server) showReportPlot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	days, err := s.reportDays(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep := report.Build(s.ledger.Snapshot(), s.cfg.Intersections, s.clock.Now(), days)
	w.Header().Set("Content-Type", "image/png")
	if err := report.RenderDailyPNG(rep, w); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to render plot: %v", err))
		return
	}
}

// reportDays parses the days query param, defaulting to 7.
func (s *Server) reportDays(r *http.Request) (int, error) {
	days := 7
	if d := r.URL.Query().Get("days"); d != "" {
		parsedDays, err := strconv.Atoi(d)
		if err != nil || parsedDays < 1 {
			return 0, fmt.Errorf("invalid 'days' parameter")
		}
		days = parsedDays
	}
	return days, nil
}

// recentLimit parses the limit query param, clamped to the ledger capacity.
func (s *Server) recentLimit(r *http.Request, fallback int) int {
	limit := fallback
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}
	if capacity := s.cfg.GetLedgerCapacity(); limit > capacity {
		limit = capacity
	}
	return limit
}
