// Package server exposes the receipt pipeline over a small HTTP API: login,
// single and batch generation, the register and its XLSX export, message
// preview and dispatch. Everything under /api sits behind bearer auth.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/patchlibrary/feedesk/internal/batch"
	"github.com/patchlibrary/feedesk/internal/credential"
	"github.com/patchlibrary/feedesk/internal/entity"
	"github.com/patchlibrary/feedesk/internal/export"
	"github.com/patchlibrary/feedesk/internal/outbox"
	"github.com/patchlibrary/feedesk/internal/receipt"
	"github.com/patchlibrary/feedesk/internal/render"
	"github.com/patchlibrary/feedesk/internal/repository"
)

// Config carries the server-side auth parameters.
type Config struct {
	JWTSecret string
	JWTTTL    time.Duration
}

// Deps bundles everything the handlers reach for. Worker may be nil; the
// dispatch handler then leaves draining to the worker's own ticker.
type Deps struct {
	Students  repository.StudentRepository
	Receipts  repository.ReceiptRepository
	Outbox    repository.OutboxRepository
	Templates repository.TemplateRepository
	Users     repository.UserRepository
	Composer  *receipt.Composer
	Renderer  render.Renderer
	Batch     *batch.Orchestrator
	Exporter  *export.Service
	Hasher    *credential.Hasher
	Worker    *outbox.Worker
	Settings  entity.ReceiptSettings
}

type Server struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
}

func NewServer(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Renderer != nil {
		deps.Renderer = InstrumentRenderer(deps.Renderer)
	}
	return &Server{cfg: cfg, deps: deps, logger: logger}
}

// Router returns the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))
	r.Use(s.metricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/login", s.handleLogin)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/receipts", s.handleGenerateReceipt)
		r.Post("/receipts/batch", s.handleBatchReceipts)
		r.Get("/receipts", s.handleListReceipts)
		r.Get("/exports/receipts.xlsx", s.handleExportReceipts)

		r.Post("/messages/preview", s.handlePreviewMessage)
		r.Post("/messages/dispatch", s.handleDispatchMessages)
		r.Get("/messages/outbox", s.handleRecentOutbox)
		r.Get("/messages/outbox/{id}", s.handleGetOutboxMessage)

		r.Get("/templates", s.handleListTemplates)
		r.Put("/templates", s.handleSaveTemplate)
		r.Delete("/templates/{id}", s.handleDeleteTemplate)
	})

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

// parseDateQuery reads an optional YYYY-MM-DD query parameter.
func parseDateQuery(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
