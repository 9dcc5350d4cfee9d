package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elonfeng/hazardradar/internal/store"
	"github.com/elonfeng/hazardradar/pkg/ingest"
	"github.com/elonfeng/hazardradar/pkg/post"
	"github.com/elonfeng/hazardradar/pkg/source"
	"github.com/elonfeng/hazardradar/pkg/unify"
)

// Reader is the read side of the store used by the API.
type Reader interface {
	ListPosts(ctx context.Context, opts store.PostListOpts) ([]post.Post, error)
	CountPostsByPlatform(ctx context.Context) (map[post.Platform]int, error)
	ListDigests(ctx context.Context, limit int) ([]post.SummaryDigest, error)
	Ping(ctx context.Context) error
}

// Trigger starts an ingestion cycle unless one is running.
type Trigger interface {
	TryRun(ctx context.Context) (ingest.Result, error)
}

// Server provides the HTTP API.
type Server struct {
	store      Reader
	trigger    Trigger
	sources    []source.Source
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new HTTP server. A nil gatherer serves the default
// Prometheus registry on /metrics; a nil trigger disables POST /api/v1/cycle.
func New(r Reader, trigger Trigger, sources []source.Source, port int, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if port == 0 {
		port = 8080
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		store:   r,
		trigger: trigger,
		sources: sources,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	} else {
		mux.Handle("GET /metrics", promhttp.Handler())
	}
	mux.HandleFunc("GET /api/v1/posts", s.handlePosts)
	mux.HandleFunc("GET /api/v1/digests", s.handleDigests)
	mux.HandleFunc("GET /api/v1/sources", s.handleSources)
	mux.HandleFunc("POST /api/v1/cycle", s.handleCycle)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// ListenAndServe starts the HTTP server. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("hazardradar server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains connections within the ctx deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := store.PostListOpts{
		Platform:   post.Platform(q.Get("platform")),
		HazardType: q.Get("hazard"),
		Location:   q.Get("location"),
	}

	if since := q.Get("since"); since != "" {
		t, err := parseSince(since, time.Now())
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		opts.Since = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		opts.Limit = n
	}
	if v := q.Get("matched"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid matched %q", v))
			return
		}
		opts.MatchedOnly = b
	}

	posts, err := s.store.ListPosts(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  nonNil(posts),
		"count": len(posts),
	})
}

func (s *Server) handleDigests(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}

	digests, err := s.store.ListDigests(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  nonNil(digests),
		"count": len(digests),
	})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.CountPostsByPlatform(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	type sourceInfo struct {
		Name     string        `json:"name"`
		Platform post.Platform `json:"platform"`
		Posts    int           `json:"posts"`
	}

	infos := make([]sourceInfo, 0, len(s.sources))
	for _, src := range s.sources {
		infos = append(infos, sourceInfo{
			Name:     src.Name(),
			Platform: src.Platform(),
			Posts:    counts[src.Platform()],
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":   infos,
		"count":  len(infos),
		"totals": counts,
	})
}

func (s *Server) handleCycle(w http.ResponseWriter, r *http.Request) {
	if s.trigger == nil {
		writeError(w, http.StatusNotImplemented, errors.New("ingestion is not enabled on this server"))
		return
	}

	res, err := s.trigger.TryRun(r.Context())
	switch {
	case errors.Is(err, ingest.ErrCycleRunning):
		writeError(w, http.StatusConflict, err)
		return
	case err != nil:
		s.logger.Error("triggered ingestion cycle failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":  err.Error(),
			"result": res,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"result": res})
}

// parseSince accepts an absolute timestamp in any format the unifier
// understands, or a duration relative to now such as "24h".
func parseSince(v string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(v); err == nil {
		return now.Add(-d).UTC(), nil
	}
	if t, ok := unify.NormalizeTime(v); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid since %q", v)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
