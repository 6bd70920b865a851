// Package http exposes render jobs over HTTP: start, inspect, cancel and follow them.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/reel"
	"github.com/aretw0/reel/internal/logging"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
	"github.com/aretw0/reel/pkg/render"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Starter starts render jobs. *render.Orchestrator implements it.
type Starter interface {
	Start(ctx context.Context, req render.Request) (*render.Job, error)
}

// Server serves the render API.
type Server struct {
	starter  Starter
	store    ports.RecordStore
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	baseCtx  context.Context
	streams  *StreamManager
	jobs     *render.Registry
}

// Option configures the Server.
type Option func(*Server)

// WithStore serves records of jobs this process no longer holds.
func WithStore(store ports.RecordStore) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithMetrics exposes gatherer on GET /metrics.
func WithMetrics(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithBaseContext sets the context jobs are started with. Cancelling it cancels
// every job started afterwards, e.g. on shutdown.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Server) {
		s.baseCtx = ctx
	}
}

// WithStreams shares a StreamManager, typically the one whose Hooks feed the orchestrator.
func WithStreams(streams *StreamManager) Option {
	return func(s *Server) {
		s.streams = streams
	}
}

// WithRegistry shares the job registry, e.g. with the MCP adapter.
func WithRegistry(jobs *render.Registry) Option {
	return func(s *Server) {
		s.jobs = jobs
	}
}

// NewServer creates a Server starting jobs through starter.
func NewServer(starter Starter, opts ...Option) *Server {
	s := &Server{
		starter: starter,
		logger:  logging.NewNop(),
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.streams == nil {
		s.streams = NewStreamManager(s.logger)
	}
	if s.jobs == nil {
		s.jobs = render.NewRegistry(render.DefaultFinishedJobs)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/openapi.yaml", serveOpenAPI)
	r.Get("/swagger", serveSwaggerUI)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Route("/renders", func(r chi.Router) {
		r.Post("/", s.StartRender)
		r.Get("/", s.ListRenders)
		r.Get("/{id}", s.GetRender)
		r.Post("/{id}/cancel", s.CancelRender)
		r.Get("/{id}/events", s.SubscribeEvents)
	})
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return enableCORS(r)
}

// CancelAll cancels every running job.
func (s *Server) CancelAll() {
	s.jobs.CancelAll()
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RenderRequest is the body of POST /renders.
type RenderRequest struct {
	Composition domain.Composition `json:"composition"`
	ServeURL    string             `json:"serve_url"`
	Frames      *domain.FrameRange `json:"frames,omitempty"`
	Parallelism int                `json:"parallelism,omitempty"`
	Timeout     string             `json:"timeout,omitempty"`
	Output      string             `json:"output,omitempty"`
}

func (b RenderRequest) toRequest() (render.Request, error) {
	req := render.Request{
		Composition: b.Composition,
		ServeURL:    b.ServeURL,
		Frames:      b.Frames,
		Parallelism: b.Parallelism,
		Output:      b.Output,
	}
	if b.Timeout != "" {
		d, err := time.ParseDuration(b.Timeout)
		if err != nil {
			return req, fmt.Errorf("%w: timeout: %v", domain.ErrInvalidRequest, err)
		}
		req.Timeout = d
	}
	return req, nil
}

// RenderStatus is the representation of a render job.
type RenderStatus = render.Status

func statusOf(j *render.Job) RenderStatus {
	return j.Status()
}

// StartRender handles POST /renders.
func (s *Server) StartRender(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validateBody(data, "RenderRequest"); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		s.logger.Warn("StartRender: invalid request body", "err", err)
		return
	}
	var body RenderRequest
	if err := json.Unmarshal(data, &body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req, err := body.toRequest()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job, err := s.starter.Start(s.baseCtx, req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		http.Error(w, fmt.Sprintf("Start error: %v", err), status)
		return
	}
	s.jobs.Track(job)
	s.logger.Info("render started", "render_id", job.ID(), "composition", req.Composition.ID)

	writeJSON(w, http.StatusAccepted, statusOf(job), s.logger)
}

func (s *Server) lookup(id string) (*render.Job, bool) {
	return s.jobs.Lookup(id)
}

// ListRenders handles GET /renders, optionally filtered by ?state=.
func (s *Server) ListRenders(w http.ResponseWriter, r *http.Request) {
	state, err := stateFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ids := map[string]struct{}{}
	for _, id := range s.jobs.IDs() {
		ids[id] = struct{}{}
	}
	if s.store != nil {
		stored, err := s.store.List(r.Context())
		if err != nil {
			http.Error(w, fmt.Sprintf("List error: %v", err), http.StatusInternalServerError)
			return
		}
		for _, id := range stored {
			ids[id] = struct{}{}
		}
	}

	out := make([]string, 0, len(ids))
	for id := range ids {
		if state != nil && !s.hasState(r.Context(), id, *state) {
			continue
		}
		out = append(out, id)
	}
	sort.Strings(out)
	writeJSON(w, http.StatusOK, map[string][]string{"renders": out}, s.logger)
}

func (s *Server) hasState(ctx context.Context, id string, state domain.RenderState) bool {
	if job, ok := s.lookup(id); ok {
		return job.State() == state
	}
	if s.store == nil {
		return false
	}
	rec, err := s.store.Load(ctx, id)
	return err == nil && rec.State == state
}

// GetRender handles GET /renders/{id}.
func (s *Server) GetRender(w http.ResponseWriter, r *http.Request) {
	id, err := renderID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if job, ok := s.lookup(id); ok {
		writeJSON(w, http.StatusOK, statusOf(job), s.logger)
		return
	}
	if s.store == nil {
		http.Error(w, domain.ErrRenderNotFound.Error(), http.StatusNotFound)
		return
	}
	rec, err := s.store.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRenderNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Load error: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, RenderStatus{RenderRecord: *rec}, s.logger)
}

// CancelRender handles POST /renders/{id}/cancel. Cancelling a finished render
// leaves its outcome unchanged.
func (s *Server) CancelRender(w http.ResponseWriter, r *http.Request) {
	id, err := renderID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	job, ok := s.lookup(id)
	if !ok {
		http.Error(w, domain.ErrRenderNotFound.Error(), http.StatusNotFound)
		return
	}
	job.Cancel()
	s.logger.Info("render cancel requested", "render_id", id)
	writeJSON(w, http.StatusAccepted, statusOf(job), s.logger)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]string{
		"app":     "reel-http",
		"version": strings.TrimSpace(reel.Version),
	}
	if doc, err := GetSwagger(); err == nil && doc.Info != nil {
		info["api_version"] = doc.Info.Version
	}
	writeJSON(w, http.StatusOK, info, s.logger)
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "err", err)
	}
}
