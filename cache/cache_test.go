package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/querygo/record"
	"github.com/hupe1980/querygo/testutil"
	"golang.org/x/time/rate"
)

func fetchConst(records []record.Record, calls *atomic.Int64) FetchFunc {
	return func(ctx context.Context) ([]record.Record, error) {
		if calls != nil {
			calls.Add(1)
		}
		return records, nil
	}
}

func fetchErr(cause error, calls *atomic.Int64) FetchFunc {
	return func(ctx context.Context) ([]record.Record, error) {
		if calls != nil {
			calls.Add(1)
		}
		return nil, cause
	}
}

func TestGetOrFetch_FetchesOnceWhileFresh(t *testing.T) {
	clock := testutil.NewClock(time.Unix(1000, 0))
	c := New(WithClock(clock.Now))

	ctx := context.Background()
	records := []record.Record{{"id": record.Int(1)}}
	var calls atomic.Int64

	res, err := c.GetOrFetch(ctx, "k", fetchConst(records, &calls), time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stale {
		t.Error("first fetch should not be stale")
	}
	if !res.FetchedAt.Equal(clock.Now()) {
		t.Errorf("FetchedAt = %v, want %v", res.FetchedAt, clock.Now())
	}
	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Records))
	}

	// Second call within TTL hits the cache.
	res, err = c.GetOrFetch(ctx, "k", fetchConst(records, &calls), time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stale {
		t.Error("cache hit should not be stale")
	}
	if calls.Load() != 1 {
		t.Errorf("fetch ran %d times, want 1", calls.Load())
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Fetches != 1 {
		t.Errorf("stats = %+v, want 1 hit, 1 miss, 1 fetch", stats)
	}
}

func TestGetOrFetch_ExpiryRefetches(t *testing.T) {
	clock := testutil.NewClock(time.Unix(1000, 0))
	c := New(WithClock(clock.Now))

	ctx := context.Background()
	var calls atomic.Int64

	first, err := c.GetOrFetch(ctx, "k", fetchConst([]record.Record{{"v": record.Int(1)}}, &calls), time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clock.Advance(2 * time.Minute)

	second, err := c.GetOrFetch(ctx, "k", fetchConst([]record.Record{{"v": record.Int(2)}}, &calls), time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("fetch ran %d times, want 2", calls.Load())
	}
	if second.Stale {
		t.Error("refetched records should be fresh")
	}
	if !second.FetchedAt.After(first.FetchedAt) {
		t.Errorf("FetchedAt not advanced: %v -> %v", first.FetchedAt, second.FetchedAt)
	}
	if got := second.Records[0]["v"]; !got.Equal(record.Int(2)) {
		t.Errorf("got stale records after expiry refetch: %v", got)
	}
}

func TestGetOrFetch_ZeroTTLAlwaysRefetches(t *testing.T) {
	c := New()

	ctx := context.Background()
	var calls atomic.Int64
	fetch := fetchConst([]record.Record{{"v": record.Int(1)}}, &calls)

	for range 3 {
		if _, err := c.GetOrFetch(ctx, "k", fetch, 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls.Load() != 3 {
		t.Errorf("fetch ran %d times, want 3", calls.Load())
	}

	// Negative TTL behaves like zero.
	if _, err := c.GetOrFetch(ctx, "k", fetch, -time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 4 {
		t.Errorf("fetch ran %d times, want 4", calls.Load())
	}
}

func TestGetOrFetch_Stampede(t *testing.T) {
	c := New()

	ctx := context.Background()
	records := []record.Record{{"id": record.Int(42)}}
	var calls atomic.Int64
	fetch := func(ctx context.Context) ([]record.Record, error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond) // Hold the flight open
		return records, nil
	}

	const numGoroutines = 50

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	results := make([]Result, numGoroutines)
	errs := make([]error, numGoroutines)

	for g := range numGoroutines {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrFetch(ctx, "k", fetch, time.Minute)
		}(g)
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("fetch ran %d times under stampede, want 1", calls.Load())
	}
	for i := range numGoroutines {
		if errs[i] != nil {
			t.Fatalf("goroutine %d: unexpected error: %v", i, errs[i])
		}
		if results[i].Stale {
			t.Errorf("goroutine %d: got stale result with empty cache", i)
		}
		if len(results[i].Records) != 1 {
			t.Errorf("goroutine %d: got %d records, want 1", i, len(results[i].Records))
		}
	}
}

func TestGetOrFetch_StaleOnFailure(t *testing.T) {
	clock := testutil.NewClock(time.Unix(1000, 0))
	c := New(WithClock(clock.Now))

	ctx := context.Background()
	records := []record.Record{{"id": record.Int(7)}}

	first, err := c.GetOrFetch(ctx, "k", fetchConst(records, nil), time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clock.Advance(2 * time.Minute)

	res, err := c.GetOrFetch(ctx, "k", fetchErr(errors.New("backend down"), nil), time.Minute)
	if err != nil {
		t.Fatalf("expected stale fallback, got error: %v", err)
	}
	if !res.Stale {
		t.Error("fallback result should be stale")
	}
	if got := res.Records[0]["id"]; !got.Equal(record.Int(7)) {
		t.Errorf("fallback lost records: %v", got)
	}
	if !res.FetchedAt.Equal(first.FetchedAt) {
		t.Errorf("fallback FetchedAt = %v, want original %v", res.FetchedAt, first.FetchedAt)
	}

	stats := c.Stats()
	if stats.StaleServes != 1 {
		t.Errorf("StaleServes = %d, want 1", stats.StaleServes)
	}
	if stats.FetchFailures != 1 {
		t.Errorf("FetchFailures = %d, want 1", stats.FetchFailures)
	}
}

func TestGetOrFetch_FailureWithoutFallback(t *testing.T) {
	c := New()

	cause := errors.New("backend down")
	_, err := c.GetOrFetch(context.Background(), "k", fetchErr(cause, nil), time.Minute)
	if err == nil {
		t.Fatal("expected error with no fallback material")
	}

	var ff *ErrFetchFailed
	if !errors.As(err, &ff) {
		t.Fatalf("error type = %T, want *ErrFetchFailed", err)
	}
	if ff.Key != "k" {
		t.Errorf("ErrFetchFailed.Key = %q, want %q", ff.Key, "k")
	}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable via errors.Is")
	}

	if c.Contains("k") {
		t.Error("failed fetch must not create an entry")
	}
}

func TestGetOrFetch_ServesStaleDuringRefresh(t *testing.T) {
	clock := testutil.NewClock(time.Unix(1000, 0))
	c := New(WithClock(clock.Now))

	ctx := context.Background()
	old := []record.Record{{"gen": record.Int(1)}}
	fresh := []record.Record{{"gen": record.Int(2)}}

	if _, err := c.GetOrFetch(ctx, "k", fetchConst(old, nil), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.Advance(2 * time.Minute)

	entered := make(chan struct{})
	release := make(chan struct{})
	slow := func(ctx context.Context) ([]record.Record, error) {
		close(entered)
		<-release
		return fresh, nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	var blockedRes Result
	var blockedErr error
	go func() {
		defer wg.Done()
		blockedRes, blockedErr = c.GetOrFetch(ctx, "k", slow, time.Minute)
	}()
	<-entered

	// The flight is open; this caller must be served the stale entry
	// immediately instead of waiting on it.
	res, err := c.GetOrFetch(ctx, "k", slow, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Stale {
		t.Error("expected stale serve during in-flight refresh")
	}
	if got := res.Records[0]["gen"]; !got.Equal(record.Int(1)) {
		t.Errorf("stale serve returned wrong generation: %v", got)
	}

	close(release)
	wg.Wait()

	if blockedErr != nil {
		t.Fatalf("refresh caller got error: %v", blockedErr)
	}
	if blockedRes.Stale {
		t.Error("refresh caller should get fresh records")
	}
	if got := blockedRes.Records[0]["gen"]; !got.Equal(record.Int(2)) {
		t.Errorf("refresh caller got wrong generation: %v", got)
	}
}

func TestGetOrFetch_Throttled(t *testing.T) {
	clock := testutil.NewClock(time.Unix(1000, 0))
	c := New(WithClock(clock.Now), WithFetchLimit(rate.Every(time.Hour), 1))

	ctx := context.Background()
	records := []record.Record{{"id": record.Int(1)}}

	// Burst of one: the first fetch passes.
	if _, err := c.GetOrFetch(ctx, "k", fetchConst(records, nil), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// No entry for this key, so the throttled fetch surfaces as an error.
	_, err := c.GetOrFetch(ctx, "other", fetchConst(records, nil), time.Minute)
	if !errors.Is(err, ErrFetchThrottled) {
		t.Fatalf("error = %v, want ErrFetchThrottled", err)
	}
	var ff *ErrFetchFailed
	if !errors.As(err, &ff) {
		t.Fatalf("throttle error not wrapped in ErrFetchFailed: %T", err)
	}

	// The first key holds fallback material, so its throttled refetch
	// degrades to a stale serve.
	clock.Advance(2 * time.Minute)
	res, err := c.GetOrFetch(ctx, "k", fetchConst(records, nil), time.Minute)
	if err != nil {
		t.Fatalf("expected stale fallback, got error: %v", err)
	}
	if !res.Stale {
		t.Error("throttled refetch with fallback should serve stale")
	}
}

func TestRefresh(t *testing.T) {
	clock := testutil.NewClock(time.Unix(1000, 0))
	c := New(WithClock(clock.Now))

	ctx := context.Background()
	var calls atomic.Int64

	if _, err := c.GetOrFetch(ctx, "k", fetchConst([]record.Record{{"gen": record.Int(1)}}, &calls), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Refresh fetches even though the entry is still fresh.
	res, err := c.Refresh(ctx, "k", fetchConst([]record.Record{{"gen": record.Int(2)}}, &calls), time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("fetch ran %d times, want 2", calls.Load())
	}
	if got := res.Records[0]["gen"]; !got.Equal(record.Int(2)) {
		t.Errorf("refresh returned wrong generation: %v", got)
	}

	// The refreshed entry now serves hits.
	res, err = c.GetOrFetch(ctx, "k", fetchConst(nil, &calls), time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("fetch ran %d times after refresh, want 2", calls.Load())
	}
	if got := res.Records[0]["gen"]; !got.Equal(record.Int(2)) {
		t.Errorf("hit after refresh returned wrong generation: %v", got)
	}
}

func TestRefresh_FailurePropagates(t *testing.T) {
	clock := testutil.NewClock(time.Unix(1000, 0))
	c := New(WithClock(clock.Now))

	ctx := context.Background()
	if _, err := c.GetOrFetch(ctx, "k", fetchConst([]record.Record{{"gen": record.Int(1)}}, nil), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Refresh never falls back to stale data: the caller asked for a
	// fetch and gets its failure.
	cause := errors.New("backend down")
	_, err := c.Refresh(ctx, "k", fetchErr(cause, nil), time.Minute)
	if !errors.Is(err, cause) {
		t.Fatalf("error = %v, want wrapped cause", err)
	}
	var ff *ErrFetchFailed
	if !errors.As(err, &ff) {
		t.Fatalf("error type = %T, want *ErrFetchFailed", err)
	}

	// The previous entry survives as fallback material.
	res, err := c.GetOrFetch(ctx, "k", fetchErr(cause, nil), time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Records[0]["gen"]; !got.Equal(record.Int(1)) {
		t.Errorf("entry lost after failed refresh: %v", got)
	}
}

func TestInvalidate(t *testing.T) {
	c := New()

	ctx := context.Background()
	var calls atomic.Int64
	fetch := fetchConst([]record.Record{{"id": record.Int(1)}}, &calls)

	if _, err := c.GetOrFetch(ctx, "k", fetch, time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Contains("k") {
		t.Fatal("expected entry after fetch")
	}

	c.Invalidate("k")

	if c.Contains("k") {
		t.Error("entry should be gone after Invalidate")
	}
	if _, err := c.GetOrFetch(ctx, "k", fetch, time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("fetch ran %d times, want 2 after invalidation", calls.Load())
	}
}

func TestKeysLenClear(t *testing.T) {
	c := New()

	ctx := context.Background()
	for _, key := range []string{"c", "a", "b"} {
		if _, err := c.GetOrFetch(ctx, key, fetchConst(nil, nil), time.Minute); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
	keys := c.Keys()
	want := []string{"a", "b", "c"}
	if len(keys) != len(want) {
		t.Fatalf("Keys = %v, want %v", keys, want)
	}
	for i, k := range want {
		if keys[i] != k {
			t.Fatalf("Keys = %v, want %v", keys, want)
		}
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len = %d after Clear, want 0", c.Len())
	}
}
