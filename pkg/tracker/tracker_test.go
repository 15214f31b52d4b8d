package tracker

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/versewright/versewright/pkg/models"
)

func newTestTracker(t *testing.T) *SQLiteTracker {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	tr, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestRecordAndRecent(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rec := models.UsageRecord{
		Operation:        "comprehensive",
		Model:            "gemini-2.5-flash",
		PromptTokens:     100,
		CompletionTokens: 50,
		TotalTokens:      150,
		LatencyMs:        820,
		Outcome:          models.OutcomeOK,
		CreatedAt:        now,
	}
	if err := tr.Record(ctx, rec); err != nil {
		t.Fatal(err)
	}

	records, err := tr.Recent(ctx, now.Add(-time.Minute), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].TotalTokens != 150 || records[0].Operation != "comprehensive" || records[0].LatencyMs != 820 {
		t.Errorf("unexpected record %+v", records[0])
	}
}

func TestRecentLimitAndOrder(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	for i := range 5 {
		_ = tr.Record(ctx, models.UsageRecord{
			Operation: "improve", Model: "m",
			TotalTokens: i, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	records, err := tr.Recent(ctx, base.Add(-time.Minute), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].TotalTokens != 4 || records[1].TotalTokens != 3 {
		t.Errorf("expected newest first, got %d, %d", records[0].TotalTokens, records[1].TotalTokens)
	}
}

func TestTotalTokens(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for range 3 {
		_ = tr.Record(ctx, models.UsageRecord{
			Operation: "comprehensive", Model: "m",
			PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150,
			CreatedAt: now,
		})
	}
	// Old record outside the window.
	_ = tr.Record(ctx, models.UsageRecord{
		Operation: "comprehensive", Model: "m", TotalTokens: 1000,
		CreatedAt: now.Add(-48 * time.Hour),
	})

	total, err := tr.TotalTokens(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if total != 450 {
		t.Errorf("expected 450, got %d", total)
	}
}

func TestSummary(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = tr.Record(ctx, models.UsageRecord{Operation: "comprehensive", Model: "m1", PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15, LatencyMs: 100, Outcome: models.OutcomeOK, CreatedAt: now})
	_ = tr.Record(ctx, models.UsageRecord{Operation: "comprehensive", Model: "m1", LatencyMs: 300, Outcome: models.OutcomeQuotaExceeded, CreatedAt: now})
	_ = tr.Record(ctx, models.UsageRecord{Operation: "style_of_music", Model: "m2", PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2, LatencyMs: 50, CreatedAt: now})

	summaries, err := tr.Summary(ctx, now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	s := summaries[0]
	if s.Operation != "comprehensive" || s.RequestCount != 2 || s.FailedCount != 1 || s.TotalTokens != 15 || s.AvgLatencyMs != 200 {
		t.Errorf("unexpected summary %+v", s)
	}
	if summaries[1].Operation != "style_of_music" || summaries[1].FailedCount != 0 {
		t.Errorf("unexpected summary %+v", summaries[1])
	}
}

func TestSharedFileConcurrentWriters(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "shared.db")
	first, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = first.Close() })
	second, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = second.Close() })

	var timeout int
	if err := first.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatal(err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}

	ctx := context.Background()
	const perWriter = 25
	var wg sync.WaitGroup
	errs := make(chan error, 2*perWriter)
	for _, tr := range []*SQLiteTracker{first, second} {
		for i := 0; i < perWriter; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- tr.Record(ctx, models.UsageRecord{
					Operation:   "artist_analysis",
					Model:       "gemini-2.5-flash",
					TotalTokens: 1,
					Outcome:     models.OutcomeOK,
				})
			}()
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent record: %v", err)
		}
	}

	total, err := second.TotalTokens(ctx, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if total != 2*perWriter {
		t.Errorf("total tokens = %d, want %d", total, 2*perWriter)
	}
}
