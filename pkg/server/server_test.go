package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/versewright/versewright/pkg/cache"
	"github.com/versewright/versewright/pkg/gemini"
	"github.com/versewright/versewright/pkg/lyrics"
	"github.com/versewright/versewright/pkg/models"
	"github.com/versewright/versewright/pkg/sessions"
	"github.com/versewright/versewright/pkg/telemetry"
)

type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
}

func (f *fakeGenerator) Generate(_ context.Context, _ gemini.Request) (gemini.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return gemini.Response{}, f.err
	}
	return gemini.Response{Text: f.text}, nil
}

func (f *fakeGenerator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeUsage struct {
	since time.Time
}

func (u *fakeUsage) Summary(_ context.Context, since time.Time) ([]models.UsageSummary, error) {
	u.since = since
	return []models.UsageSummary{{Operation: "comprehensive", Model: "gemini-2.5-flash", RequestCount: 2}}, nil
}

const analysisJSON = `{"genre":"Indie Pop","weakSpots":["on fire"],"topArtists":["Lorde"],"rankedGenres":["Indie Pop"]}`

func setupServer(t *testing.T, gen *fakeGenerator) *Server {
	t.Helper()
	store, err := sessions.New(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	layered := cache.NewLayered(cache.NewMemory(time.Hour), nil)
	svc := lyrics.New(gen, layered, nil)
	return New(":0", svc, store, &fakeUsage{}, telemetry.NewMetrics(nil), nil)
}

func doJSON(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return body.Error
}

func TestAnalyzeCachesResult(t *testing.T) {
	gen := &fakeGenerator{text: analysisJSON}
	srv := setupServer(t, gen)

	for i := 0; i < 2; i++ {
		w := doJSON(t, srv, http.MethodPost, "/v1/analyze", `{"lyrics":"my heart is on fire"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d: %s", i, w.Code, w.Body.String())
		}
		var got models.ComprehensiveAnalysis
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if got.Genre != "Indie Pop" {
			t.Errorf("expected genre Indie Pop, got %q", got.Genre)
		}
		if len(got.WeakSpots) != 1 || !got.WeakSpots[0].Anchored() {
			t.Errorf("expected one anchored weak spot, got %+v", got.WeakSpots)
		}
	}
	if gen.count() != 1 {
		t.Errorf("expected 1 upstream call, got %d", gen.count())
	}
}

func TestEmptyLyricsRejected(t *testing.T) {
	gen := &fakeGenerator{text: analysisJSON}
	srv := setupServer(t, gen)

	w := doJSON(t, srv, http.MethodPost, "/v1/analyze", `{"lyrics":"   "}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if e := decodeError(t, w); e.Type != "invalid_request" || e.Code != 400 {
		t.Errorf("unexpected error body: %+v", e)
	}
	if gen.count() != 0 {
		t.Errorf("invalid input must not reach upstream, got %d calls", gen.count())
	}
}

func TestMalformedBody(t *testing.T) {
	srv := setupServer(t, &fakeGenerator{})
	w := doJSON(t, srv, http.MethodPost, "/v1/style", `{"genre":`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestUpstreamErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantType string
	}{
		{"quota", fmt.Errorf("429: %w", gemini.ErrQuotaExceeded), http.StatusTooManyRequests, "quota_exceeded"},
		{"credentials", fmt.Errorf("403: %w", gemini.ErrInvalidCredentials), http.StatusBadGateway, "invalid_credentials"},
		{"upstream", fmt.Errorf("500: %w", gemini.ErrUpstream), http.StatusBadGateway, "upstream_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := setupServer(t, &fakeGenerator{err: tt.err})
			w := doJSON(t, srv, http.MethodPost, "/v1/style", `{"genre":"Synthwave"}`)
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, w.Code)
			}
			if e := decodeError(t, w); e.Type != tt.wantType {
				t.Errorf("expected type %q, got %q", tt.wantType, e.Type)
			}
		})
	}
}

func TestStyleCapped(t *testing.T) {
	gen := &fakeGenerator{text: `"` + strings.Repeat("a", 300) + `"`}
	srv := setupServer(t, gen)

	w := doJSON(t, srv, http.MethodPost, "/v1/style", `{"genre":"Synthwave"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got textResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len([]rune(got.Text)) > lyrics.StyleMaxRunes {
		t.Errorf("style exceeds cap: %d runes", len([]rune(got.Text)))
	}
}

func TestApplyAndStripTags(t *testing.T) {
	srv := setupServer(t, &fakeGenerator{})

	w := doJSON(t, srv, http.MethodPost, "/v1/apply",
		`{"lyrics":"hello old world","weakSpot":{"text":"old","startIndex":6,"endIndex":9},"replacement":"new"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("apply: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got textResponse
	json.Unmarshal(w.Body.Bytes(), &got)
	if got.Text != "hello new world" {
		t.Errorf("apply: got %q", got.Text)
	}

	w = doJSON(t, srv, http.MethodPost, "/v1/strip-tags", `{"text":"[Verse]\nhello"}`)
	json.Unmarshal(w.Body.Bytes(), &got)
	if got.Text != "hello" {
		t.Errorf("strip-tags: got %q", got.Text)
	}
}

func TestCacheEndpoints(t *testing.T) {
	gen := &fakeGenerator{text: analysisJSON}
	srv := setupServer(t, gen)

	doJSON(t, srv, http.MethodPost, "/v1/analyze", `{"lyrics":"my heart is on fire"}`)

	w := doJSON(t, srv, http.MethodGet, "/v1/cache", "")
	if w.Code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", w.Code)
	}
	var stats []models.CacheStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 || stats[0].Entries != 1 {
		t.Errorf("expected one memory tier with 1 entry, got %+v", stats)
	}

	w = doJSON(t, srv, http.MethodDelete, "/v1/cache", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("clear: expected 204, got %d", w.Code)
	}

	doJSON(t, srv, http.MethodPost, "/v1/analyze", `{"lyrics":"my heart is on fire"}`)
	if gen.count() != 2 {
		t.Errorf("expected a fresh upstream call after clear, got %d calls", gen.count())
	}
}

func TestSessionsFlow(t *testing.T) {
	srv := setupServer(t, &fakeGenerator{})

	w := doJSON(t, srv, http.MethodPost, "/v1/sessions", `{"title":"Draft one","lyrics":"la la"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("save: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created map[string]string
	json.Unmarshal(w.Body.Bytes(), &created)
	id := created["id"]
	if id == "" {
		t.Fatal("expected an id")
	}

	w = doJSON(t, srv, http.MethodGet, "/v1/sessions/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
	var sess models.SavedSession
	json.Unmarshal(w.Body.Bytes(), &sess)
	if sess.Title != "Draft one" || sess.Lyrics != "la la" {
		t.Errorf("unexpected session: %+v", sess)
	}

	w = doJSON(t, srv, http.MethodGet, "/v1/sessions", "")
	var list []models.SavedSession
	json.Unmarshal(w.Body.Bytes(), &list)
	if len(list) != 1 {
		t.Errorf("expected 1 session, got %d", len(list))
	}

	w = doJSON(t, srv, http.MethodDelete, "/v1/sessions/"+id, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}
	w = doJSON(t, srv, http.MethodGet, "/v1/sessions/"+id, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodPost, "/v1/sessions", `{"lyrics":"untitled"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing title, got %d", w.Code)
	}
}

func TestUsageEndpoint(t *testing.T) {
	srv := setupServer(t, &fakeGenerator{})

	w := doJSON(t, srv, http.MethodGet, "/v1/usage?since=1h", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got []models.UsageSummary
	json.Unmarshal(w.Body.Bytes(), &got)
	if len(got) != 1 || got[0].RequestCount != 2 {
		t.Errorf("unexpected summary: %+v", got)
	}

	w = doJSON(t, srv, http.MethodGet, "/v1/usage?since=bogus", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad duration, got %d", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := setupServer(t, &fakeGenerator{})

	if w := doJSON(t, srv, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Errorf("healthz: expected 200, got %d", w.Code)
	}
	if w := doJSON(t, srv, http.MethodGet, "/metrics", ""); w.Code != http.StatusOK {
		t.Errorf("metrics: expected 200, got %d", w.Code)
	}
}

func TestOptionalEndpointsNotRegistered(t *testing.T) {
	svc := lyrics.New(&fakeGenerator{}, nil, nil)
	srv := New(":0", svc, nil, nil, nil, nil)

	if w := doJSON(t, srv, http.MethodGet, "/v1/sessions", ""); w.Code != http.StatusNotFound {
		t.Errorf("sessions: expected 404, got %d", w.Code)
	}
	w := doJSON(t, srv, http.MethodGet, "/v1/cache", "")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("cache stats without cache: %d %q", w.Code, w.Body.String())
	}
}

func TestListenAndServeShutdown(t *testing.T) {
	srv := setupServer(t, &fakeGenerator{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(6 * time.Second):
		t.Fatal("server did not shut down")
	}
}
