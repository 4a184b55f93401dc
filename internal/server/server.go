// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes report assembly over HTTP. Each submitted run gets
// its own pipeline.Orchestrator running in the background; clients poll the
// run record until it reaches a terminal state.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/pdiddy/report-assembler/internal/convert"
	"github.com/pdiddy/report-assembler/internal/pipeline"
	"github.com/pdiddy/report-assembler/pkg/types"
)

// DefaultAddr is the listen address when none is configured. It binds the
// loopback interface only.
const DefaultAddr = "127.0.0.1:8080"

// ErrRunConflict reports that an active run already writes one of the files
// a new run would write.
var ErrRunConflict = errors.New("another active run writes the same file")

// Factory returns a fresh Orchestrator for one run.
type Factory func() *pipeline.Orchestrator

// RunRecord is the externally visible state of a submitted run.
type RunRecord struct {
	ID        string         `json:"id"`
	Source    string         `json:"source"`
	Output    string         `json:"output,omitempty"`
	State     types.RunState `json:"state"`
	Submitted time.Time      `json:"submitted"`
	Result    *types.Result  `json:"result,omitempty"`
}

// Server holds the run registry and the HTTP routes.
type Server struct {
	factory Factory
	cfg     types.ServerConfig
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	runs     map[string]*RunRecord
	inflight map[string]string // file written by an active run -> run ID
}

// New returns a Server creating orchestrators with factory. A nil logger
// discards diagnostics.
func New(factory Factory, cfg types.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		factory:  factory,
		cfg:      cfg,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		runs:     make(map[string]*RunRecord),
		inflight: make(map[string]string),
	}
}

// Handler returns the routes wrapped in the configured CORS policy.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.health).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.checkOrigin)
	api.HandleFunc("/runs", s.submitRun).Methods(http.MethodPost)
	api.HandleFunc("/runs", s.listRuns).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", s.getRun).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowOriginFunc: s.originAllowed,
		AllowedMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:  []string{"Accept", "Content-Type"},
		MaxAge:          300,
	})
	return c.Handler(router)
}

// originAllowed reports whether a browser at origin may call the API.
func (s *Server) originAllowed(origin string) bool {
	for _, o := range s.cfg.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// checkOrigin refuses requests sent by a browser from an origin that is not
// allowed, including simple requests that skip the CORS preflight.
func (s *Server) checkOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && !s.originAllowed(origin) {
			s.logger.Warn("request from disallowed origin refused", "origin", origin, "path", r.URL.Path)
			writeError(w, http.StatusForbidden, "origin not allowed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown cancels every active run and waits for their workers to finish
// or for ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit validates run and starts it, returning the new run's ID. A run that
// would write a file an active run is writing fails with ErrRunConflict.
func (s *Server) Submit(run pipeline.Run) (string, error) {
	if err := pipeline.Validate(run); err != nil {
		return "", err
	}

	id := uuid.NewString()
	paths := writtenPaths(run)
	if err := s.reserve(id, paths); err != nil {
		return "", err
	}

	rec := &RunRecord{
		ID:        id,
		Source:    run.Source,
		Output:    run.Output,
		State:     types.StateIdle,
		Submitted: time.Now().UTC(),
	}

	o := s.factory()
	o.OnState = func(st types.RunState) {
		s.mu.Lock()
		rec.State = st
		s.mu.Unlock()
	}

	ch, err := o.Start(s.ctx, run)
	if err != nil {
		s.release(paths)
		return "", err
	}

	s.mu.Lock()
	s.runs[id] = rec
	s.mu.Unlock()
	s.logger.Info("run submitted", "id", id, "source", run.Source, "sections", len(run.Sections))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res := <-ch
		s.mu.Lock()
		rec.State = res.State
		rec.Output = res.OutputPath
		rec.Result = &res
		s.mu.Unlock()
		s.release(paths)
		s.logger.Info("run finished", "id", id, "state", res.State)
	}()
	return id, nil
}

// writtenPaths returns the files run writes: the converted PDF and the
// report, which are the same file by default.
func writtenPaths(run pipeline.Run) []string {
	paths := []string{absPath(convert.OutputPath(run.Source))}
	if run.Output != "" {
		if out := absPath(run.Output); out != paths[0] {
			paths = append(paths, out)
		}
	}
	return paths
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// reserve claims paths for run id, or claims nothing if any is taken.
func (s *Server) reserve(id string, paths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range paths {
		if owner, busy := s.inflight[p]; busy {
			return fmt.Errorf("%w: %s (run %s)", ErrRunConflict, p, owner)
		}
	}
	for _, p := range paths {
		s.inflight[p] = id
	}
	return nil
}

func (s *Server) release(paths []string) {
	s.mu.Lock()
	for _, p := range paths {
		delete(s.inflight, p)
	}
	s.mu.Unlock()
}

// Run returns a copy of the record for id.
func (s *Server) Run(id string) (RunRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[id]
	if !ok {
		return RunRecord{}, false
	}
	return *rec, true
}

// Runs returns copies of all records, oldest first.
func (s *Server) Runs() []RunRecord {
	s.mu.Lock()
	out := make([]RunRecord, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, *r)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Submitted.Before(out[j].Submitted) })
	return out
}
