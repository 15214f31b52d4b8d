package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type mapStore struct {
	mu   sync.Mutex
	data map[string][]byte
	puts int
}

func newMapStore() *mapStore { return &mapStore{data: make(map[string][]byte)} }

func (s *mapStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *mapStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	s.puts++
	return nil
}

func (s *mapStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *mapStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string][]byte)
	return nil
}

type styleResult struct {
	Genre    string `json:"genre"`
	Analysis string `json:"analysis"`
}

var enabled = Policy{Operation: "test", Enabled: true}

func TestMemoizeHitSkipsCall(t *testing.T) {
	l := NewLayered(NewMemory(time.Hour), nil)
	ctx := context.Background()
	var calls int

	fn := func(context.Context) (string, error) {
		calls++
		return "result", nil
	}

	v, hit, err := Memoize(ctx, l, enabled, "k", fn)
	if err != nil || hit || v != "result" {
		t.Fatalf("first call: v=%q hit=%v err=%v", v, hit, err)
	}
	v, hit, err = Memoize(ctx, l, enabled, "k", fn)
	if err != nil || !hit || v != "result" {
		t.Fatalf("second call: v=%q hit=%v err=%v", v, hit, err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestMemoizeDisabledAlwaysCalls(t *testing.T) {
	l := NewLayered(NewMemory(time.Hour), nil)
	var calls int
	fn := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	policy := Policy{Operation: "suggestions"}
	for i := 0; i < 3; i++ {
		if _, hit, _ := Memoize(context.Background(), l, policy, "k", fn); hit {
			t.Error("disabled policy should never hit")
		}
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if l.Memory().Len() != 0 {
		t.Error("disabled policy should not store")
	}
}

func TestMemoizeDoesNotStoreErrors(t *testing.T) {
	l := NewLayered(NewMemory(time.Hour), nil)
	boom := errors.New("boom")

	_, _, err := Memoize(context.Background(), l, enabled, "k", func(context.Context) (string, error) {
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if l.Memory().Len() != 0 {
		t.Error("failed call must not be cached")
	}

	v, hit, err := Memoize(context.Background(), l, enabled, "k", func(context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil || hit || v != "ok" {
		t.Fatalf("retry: v=%q hit=%v err=%v", v, hit, err)
	}
}

func TestMemoizeDoesNotStoreAfterCancel(t *testing.T) {
	l := NewLayered(NewMemory(time.Hour), nil)
	ctx, cancel := context.WithCancel(context.Background())

	_, _, err := Memoize(ctx, l, enabled, "k", func(context.Context) (string, error) {
		cancel()
		return "late", nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if l.Memory().Len() != 0 {
		t.Error("result produced after cancellation must not be cached")
	}
}

func TestMemoizeDeduplicatesConcurrentMisses(t *testing.T) {
	l := NewLayered(NewMemory(time.Hour), nil)
	var calls atomic.Int32
	release := make(chan struct{})

	fn := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	started := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started <- struct{}{}
			v, _, err := Memoize(context.Background(), l, enabled, "k", fn)
			if err != nil {
				t.Error(err)
			}
			results[i] = v
		}(i)
	}
	for i := 0; i < n; i++ {
		<-started
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 upstream call, got %d", got)
	}
	for i, v := range results {
		if v != "shared" {
			t.Errorf("result %d = %q", i, v)
		}
	}
}

func TestMemoizeWaiterSurvivesLeaderCancel(t *testing.T) {
	l := NewLayered(NewMemory(time.Hour), nil)
	var calls atomic.Int32
	entered := make(chan struct{})

	fn := func(ctx context.Context) (string, error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "fresh", nil
	}

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, _, err := Memoize(leaderCtx, l, enabled, "k", fn)
		leaderErr <- err
	}()
	<-entered

	type result struct {
		v   string
		err error
	}
	follower := make(chan result, 1)
	go func() {
		v, _, err := Memoize(context.Background(), l, enabled, "k", fn)
		follower <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Errorf("leader: expected context.Canceled, got %v", err)
	}
	select {
	case r := <-follower:
		if r.err != nil || r.v != "fresh" {
			t.Fatalf("follower got %q, %v", r.v, r.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("follower did not finish")
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 calls, got %d", got)
	}
	v, hit, err := Memoize(context.Background(), l, enabled, "k", fn)
	if err != nil || !hit || v != "fresh" {
		t.Errorf("expected cached retry result, got %q hit=%v err=%v", v, hit, err)
	}
}

func TestMemoizePersistentWriteThroughAndPromote(t *testing.T) {
	store := newMapStore()
	policy := Policy{Operation: "artist-style", Enabled: true, Persistent: true}
	ctx := context.Background()

	l := NewLayered(NewMemory(time.Hour), store)
	want := styleResult{Genre: "grunge", Analysis: "loud quiet loud"}
	if _, _, err := Memoize(ctx, l, policy, "artist-style:nirvana", func(context.Context) (styleResult, error) {
		return want, nil
	}); err != nil {
		t.Fatal(err)
	}
	if store.puts != 1 {
		t.Fatalf("expected write-through, puts=%d", store.puts)
	}

	// A fresh process has an empty memory tier but the same durable store.
	l2 := NewLayered(NewMemory(time.Hour), store)
	got, hit, err := Memoize(ctx, l2, policy, "artist-style:nirvana", func(context.Context) (styleResult, error) {
		t.Error("durable hit should not call fn")
		return styleResult{}, nil
	})
	if err != nil || !hit || got != want {
		t.Fatalf("got %+v hit=%v err=%v", got, hit, err)
	}
	if l2.Memory().Len() != 1 {
		t.Error("durable hit should be promoted into memory")
	}
}

func TestMemoizeNonPersistentPolicySkipsStore(t *testing.T) {
	store := newMapStore()
	l := NewLayered(NewMemory(time.Hour), store)

	_, _, _ = Memoize(context.Background(), l, enabled, "k", func(context.Context) (string, error) {
		return "v", nil
	})
	if store.puts != 0 {
		t.Errorf("memory-only policy wrote to durable tier %d times", store.puts)
	}
}

func TestLayeredClearAndStats(t *testing.T) {
	store := newMapStore()
	l := NewLayered(NewMemory(time.Hour), store)
	ctx := context.Background()
	policy := Policy{Operation: "artist-style", Enabled: true, Persistent: true}

	_, _, _ = Memoize(ctx, l, policy, "k", func(context.Context) (string, error) { return "v", nil })

	if err := l.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if l.Memory().Len() != 0 || len(store.data) != 0 {
		t.Error("expected both tiers empty after clear")
	}

	stats, err := l.Stats()
	if err != nil {
		t.Fatal(err)
	}
	// mapStore does not report stats, so only the memory tier is listed.
	if len(stats) != 1 || stats[0].Tier != TierMemory {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
