// Package api provides a read-only REST API over the mined log data.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rhanqtl/aiops/internal/storage"
	"github.com/rhanqtl/aiops/pkg/tabular"
)

// Server exposes the structured log table and the event catalog over HTTP.
type Server struct {
	structured storage.LogStore
	events     storage.LogStore
	router     *chi.Mux
	server     *http.Server
	logger     *slog.Logger
}

// paginatedResponse wraps a page of rows with pagination metadata.
type paginatedResponse struct {
	Data    []map[string]string `json:"data"`
	Total   int                 `json:"total"`
	Limit   int                 `json:"limit"`
	Offset  int                 `json:"offset"`
	HasMore bool                `json:"has_more"`
}

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

// parsePagination reads limit/offset from the query string. Malformed or
// out-of-range values are an error, surfaced to the client as a 400, rather
// than being silently replaced by defaults.
func parsePagination(r *http.Request) (limit, offset int, err error) {
	limit, offset = defaultPageLimit, 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxPageLimit {
			return 0, 0, fmt.Errorf("limit must be an integer in [1,%d], got %q", maxPageLimit, raw)
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("offset must be a non-negative integer, got %q", raw)
		}
	}
	return limit, offset, nil
}

// NewServer creates the API server. The stores are only read.
func NewServer(addr string, structured, events storage.LogStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		structured: structured,
		events:     events,
		router:     chi.NewRouter(),
		logger:     logger,
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/v1/templates", s.handleTable(s.events))
	s.router.Get("/api/v1/logs", s.handleTable(s.structured))

	s.server = &http.Server{Addr: addr, Handler: s.router}
	return s
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the route handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTable serves one store's rows as JSON objects with pagination.
func (s *Server) handleTable(store storage.LogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset, err := parsePagination(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		table, err := store.Get(r.Context())
		if errors.Is(err, storage.ErrNoSuchLogData) {
			table = tabular.New()
		} else if err != nil {
			s.logger.Error("reading store", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "reading store"})
			return
		}

		total := table.Len()
		start := offset
		if start > total {
			start = total
		}
		end := start + limit
		if end > total {
			end = total
		}

		rows := make([]map[string]string, 0, end-start)
		for i := start; i < end; i++ {
			row := make(map[string]string, len(table.Columns))
			for _, c := range table.Columns {
				row[c], _ = table.Value(i, c)
			}
			rows = append(rows, row)
		}

		writeJSON(w, http.StatusOK, paginatedResponse{
			Data:    rows,
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: end < total,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
