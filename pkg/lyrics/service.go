// Package lyrics orchestrates the lyric analysis and rewriting operations:
// each call is validated, looked up in the response cache, paced by the rate
// limiter, sent to the generation API and its output recovered and normalized.
package lyrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/versewright/versewright/pkg/cache"
	"github.com/versewright/versewright/pkg/gemini"
	"github.com/versewright/versewright/pkg/jsonrecover"
	"github.com/versewright/versewright/pkg/models"
	"github.com/versewright/versewright/pkg/telemetry"
)

// Operation names. They label cache keys, metrics, usage records and model
// overrides.
const (
	OpComprehensive  = "comprehensive"
	OpArtistAnalysis = "artist_analysis"
	OpImprove        = "improve"
	OpSunoFormat     = "suno_format"
	OpStyleOfMusic   = "style_of_music"
	OpTopArtists     = "top_artists"
	OpSimilarArtists = "similar_artists"
	OpAdjust         = "adjust"
	OpArtistStyle    = "artist_style"
	OpSuggestions    = "suggestions"
)

// Operations lists every operation name.
var Operations = []string{
	OpComprehensive, OpArtistAnalysis, OpImprove, OpSunoFormat, OpStyleOfMusic,
	OpTopArtists, OpSimilarArtists, OpAdjust, OpArtistStyle, OpSuggestions,
}

// policies declares the caching behaviour of each operation.
var policies = map[string]cache.Policy{
	OpComprehensive:  {Operation: OpComprehensive, Enabled: true},
	OpArtistAnalysis: {Operation: OpArtistAnalysis, Enabled: true},
	OpImprove:        {Operation: OpImprove, Enabled: true},
	OpSunoFormat:     {Operation: OpSunoFormat, Enabled: true},
	OpStyleOfMusic:   {Operation: OpStyleOfMusic, Enabled: true},
	OpTopArtists:     {Operation: OpTopArtists, Enabled: true},
	OpSimilarArtists: {Operation: OpSimilarArtists, Enabled: true},
	OpAdjust:         {Operation: OpAdjust, Enabled: true},
	OpArtistStyle:    {Operation: OpArtistStyle, Enabled: true, Persistent: true},
	// Suggestions are meant to differ on every request.
	OpSuggestions: {Operation: OpSuggestions},
}

// Generator issues a single generation request.
type Generator interface {
	Generate(ctx context.Context, req gemini.Request) (gemini.Response, error)
}

// readiness is implemented by generators that can tell, without dispatching,
// that every call would fail.
type readiness interface {
	Ready() error
}

// Waiter grants permission to dispatch a remote call.
type Waiter interface {
	Wait(ctx context.Context) error
}

// ModelResolver picks the model for an operation.
type ModelResolver interface {
	Resolve(operation string) string
}

// Recorder stores one usage row per dispatched call.
type Recorder interface {
	Record(ctx context.Context, rec models.UsageRecord) error
}

// Service runs lyric operations. It is safe for concurrent use.
type Service struct {
	gen      Generator
	cache    *cache.Layered
	limiter  Waiter
	models   ModelResolver
	recorder Recorder
	metrics  *telemetry.Metrics
	parser   *jsonrecover.Parser
	logger   *slog.Logger
	now      func() time.Time
	fanOut   bool
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder records usage of every dispatched call.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithModels sets per-operation model selection.
func WithModels(m ModelResolver) Option {
	return func(s *Service) { s.models = m }
}

// WithMetrics records upstream call metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source used for latency measurement.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithFanOut makes ArtistAnalyses run per-artist calls concurrently instead
// of one at a time.
func WithFanOut(enabled bool) Option {
	return func(s *Service) { s.fanOut = enabled }
}

// New creates a Service. layered and limiter may be nil to disable caching
// or pacing.
func New(gen Generator, layered *cache.Layered, limiter Waiter, opts ...Option) *Service {
	s := &Service{
		gen:     gen,
		cache:   layered,
		limiter: limiter,
		logger:  slog.Default(),
		now:     time.Now,
		fanOut:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "lyrics")
	s.parser = jsonrecover.New(jsonrecover.WithLogger(s.logger))
	return s
}

// ClearCache empties every cache tier.
func (s *Service) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

// ResetLimiter forgets the limiter's pacing history, typically after an
// external quota event.
func (s *Service) ResetLimiter() {
	if r, ok := s.limiter.(interface{ Reset() }); ok {
		r.Reset()
	}
}

// CacheStats reports per-tier cache statistics.
func (s *Service) CacheStats() ([]models.CacheStats, error) {
	return s.cache.Stats()
}

func memoize[T any](ctx context.Context, s *Service, op, key string, fn func(context.Context) (T, error)) (T, error) {
	v, hit, err := cache.Memoize(ctx, s.cache, policies[op], key, fn)
	if hit {
		s.logger.Debug("cache hit", "operation", op)
	}
	return v, err
}

// generate dispatches one remote call after the limiter grants it.
func (s *Service) generate(ctx context.Context, op string, req gemini.Request) (gemini.Response, error) {
	if r, ok := s.gen.(readiness); ok {
		if err := r.Ready(); err != nil {
			return gemini.Response{}, fmt.Errorf("%s: %w", op, err)
		}
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return gemini.Response{}, err
		}
	}
	if req.Model == "" && s.models != nil {
		req.Model = s.models.Resolve(op)
	}

	start := s.now()
	resp, err := s.gen.Generate(ctx, req)
	latency := s.now().Sub(start)

	if gemini.IsCanceled(err) {
		return resp, err
	}
	outcome := outcomeOf(err)
	s.metrics.Upstream(op, outcome, latency, resp.Usage.PromptTokens, resp.Usage.CandidatesTokens)
	s.record(ctx, op, req.Model, resp.Usage, latency, outcome)

	if err != nil {
		s.logger.Warn("generation failed", "operation", op, "error", err)
		return resp, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Debug("generation complete",
		"operation", op,
		"latency", latency,
		"tokens", resp.Usage.TotalTokens,
	)
	return resp, nil
}

func (s *Service) record(ctx context.Context, op, model string, usage gemini.Usage, latency time.Duration, outcome string) {
	if s.recorder == nil {
		return
	}
	rec := models.UsageRecord{
		Operation:        op,
		Model:            model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CandidatesTokens,
		TotalTokens:      usage.TotalTokens,
		LatencyMs:        latency.Milliseconds(),
		Outcome:          outcome,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Warn("usage record failed", "operation", op, "error", err)
	}
}

func outcomeOf(err error) string {
	switch gemini.Classify(err) {
	case gemini.KindNone:
		return models.OutcomeOK
	case gemini.KindInvalidCredentials:
		return models.OutcomeInvalidCredentials
	case gemini.KindQuotaExceeded:
		return models.OutcomeQuotaExceeded
	default:
		return models.OutcomeError
	}
}
