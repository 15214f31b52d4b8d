// Package server exposes the lyric operations as an HTTP JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/versewright/versewright/pkg/lyrics"
	"github.com/versewright/versewright/pkg/models"
	"github.com/versewright/versewright/pkg/telemetry"
)

const maxBodyBytes = 1 << 20

// SessionStore persists saved sessions.
type SessionStore interface {
	Save(ctx context.Context, s models.SavedSession) (string, error)
	Get(ctx context.Context, id string) (models.SavedSession, error)
	List(ctx context.Context) ([]models.SavedSession, error)
	Delete(ctx context.Context, id string) error
}

// UsageReporter summarizes recorded upstream usage.
type UsageReporter interface {
	Summary(ctx context.Context, since time.Time) ([]models.UsageSummary, error)
}

// Server is the versewright HTTP API.
type Server struct {
	listen   string
	svc      *lyrics.Service
	sessions SessionStore
	usage    UsageReporter
	metrics  *telemetry.Metrics
	logger   *slog.Logger
	mux      *http.ServeMux
}

// New creates a Server wired with all dependencies. sessions, usage and
// metrics may be nil; their endpoints are then not registered.
func New(listen string, svc *lyrics.Service, sessions SessionStore, usage UsageReporter, metrics *telemetry.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		listen:   listen,
		svc:      svc,
		sessions: sessions,
		usage:    usage,
		metrics:  metrics,
		logger:   logger.With("component", "server"),
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST /v1/analyze", handle(s, s.analyze))
	s.mux.HandleFunc("POST /v1/analyze/complete", handle(s, s.completeAnalysis))
	s.mux.HandleFunc("POST /v1/pipeline", handle(s, s.pipeline))
	s.mux.HandleFunc("POST /v1/artists/analyze", handle(s, s.artistAnalyses))
	s.mux.HandleFunc("POST /v1/artists/top", handle(s, s.topArtists))
	s.mux.HandleFunc("POST /v1/artists/similar", handle(s, s.similarArtists))
	s.mux.HandleFunc("POST /v1/artists/style", handle(s, s.artistStyle))
	s.mux.HandleFunc("POST /v1/improve", handle(s, s.improve))
	s.mux.HandleFunc("POST /v1/format", handle(s, s.format))
	s.mux.HandleFunc("POST /v1/style", handle(s, s.style))
	s.mux.HandleFunc("POST /v1/adjust", handle(s, s.adjust))
	s.mux.HandleFunc("POST /v1/suggestions", handle(s, s.suggestions))
	s.mux.HandleFunc("POST /v1/apply", handle(s, s.apply))
	s.mux.HandleFunc("POST /v1/strip-tags", handle(s, s.stripTags))

	s.mux.HandleFunc("GET /v1/cache", s.handleCacheStats)
	s.mux.HandleFunc("DELETE /v1/cache", s.handleCacheClear)
	s.mux.HandleFunc("POST /v1/limiter/reset", s.handleLimiterReset)

	if s.usage != nil {
		s.mux.HandleFunc("GET /v1/usage", s.handleUsage)
	}
	if s.sessions != nil {
		s.mux.HandleFunc("GET /v1/sessions", s.handleSessionList)
		s.mux.HandleFunc("POST /v1/sessions", s.handleSessionSave)
		s.mux.HandleFunc("GET /v1/sessions/{id}", s.handleSessionGet)
		s.mux.HandleFunc("DELETE /v1/sessions/{id}", s.handleSessionDelete)
	}
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the server with graceful shutdown support.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("versewright API listening", "addr", s.listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// handle adapts an operation taking a decoded JSON body into a handler.
func handle[Req, Resp any](s *Server, fn func(ctx context.Context, req Req) (Resp, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if err := decodeBody(w, r, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
			return
		}
		resp, err := fn(r.Context(), req)
		if err != nil {
			s.writeOperationError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func (s *Server) writeOperationError(w http.ResponseWriter, r *http.Request, err error) {
	kind := lyrics.Kind(err)
	var code int
	typ := string(kind)
	switch kind {
	case lyrics.KindInvalidInput:
		code, typ = http.StatusBadRequest, "invalid_request"
	case lyrics.KindInvalidCredentials:
		code = http.StatusBadGateway
	case lyrics.KindQuotaExceeded:
		code = http.StatusTooManyRequests
	case lyrics.KindCanceled:
		code = http.StatusServiceUnavailable
	default:
		code, typ = http.StatusBadGateway, "upstream_error"
	}
	if code >= 500 {
		s.logger.Warn("request failed", "path", r.URL.Path, "kind", kind, "error", err)
	}
	writeJSONError(w, code, typ, lyrics.UserMessage(err))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func writeJSONError(w http.ResponseWriter, code int, typ, message string) {
	writeJSON(w, code, errorBody{Error: errorDetail{Message: message, Type: typ, Code: code}})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
