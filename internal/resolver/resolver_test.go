package resolver

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"marketfeed/internal/cache"
	"marketfeed/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type stubAdapter struct {
	name  domain.VenueName
	ticks map[string]*domain.CanonicalTick
	errs  map[string]*domain.VenueError
	calls []string
}

func (s *stubAdapter) Name() domain.VenueName { return s.name }

func (s *stubAdapter) GetTick(ctx context.Context, instrument string) (*domain.CanonicalTick, error) {
	s.calls = append(s.calls, instrument)
	if err, ok := s.errs[instrument]; ok {
		return nil, err
	}
	if tick, ok := s.ticks[instrument]; ok {
		return tick, nil
	}
	return nil, &domain.VenueError{
		Instrument: instrument,
		Venue:      s.name,
		Kind:       domain.ErrKindSymbolNotFound,
		Message:    "unmapped",
	}
}

func tickFor(instrument string, venue domain.VenueName, price float64) *domain.CanonicalTick {
	return &domain.CanonicalTick{
		Instrument: instrument,
		Price:      price,
		Source:     venue,
		Timestamp:  time.Date(2025, 1, 9, 10, 0, 0, 0, time.UTC),
	}
}

func newTestResolver(store cache.Store, adapters ...VenueAdapter) *Resolver {
	return New(testTracer, adapters, store, Config{
		VenueOrder: []domain.VenueName{domain.VenueOrderly, domain.VenueDexScreener, domain.VenueCoinDesk},
	})
}

// Mirrors the mixed-failure scenario: venue A succeeds for BTC-USD but
// fails transport for S-USD, venue B has no S-USD mapping, venue C serves
// S-USD at 0.956.
func TestResolveFallbackChain(t *testing.T) {
	t.Parallel()

	a := &stubAdapter{
		name:  domain.VenueOrderly,
		ticks: map[string]*domain.CanonicalTick{"BTC-USD": tickFor("BTC-USD", domain.VenueOrderly, 121661)},
		errs: map[string]*domain.VenueError{
			"S-USD": {Instrument: "S-USD", Venue: domain.VenueOrderly, Kind: domain.ErrKindTransport, Message: "upstream 530"},
		},
	}
	b := &stubAdapter{name: domain.VenueDexScreener}
	c := &stubAdapter{
		name:  domain.VenueCoinDesk,
		ticks: map[string]*domain.CanonicalTick{"S-USD": tickFor("S-USD", domain.VenueCoinDesk, 0.956)},
	}

	r := newTestResolver(cache.NewMemoryStore(), a, b, c)
	result := r.Resolve(context.Background(), []string{"BTC-USD", "S-USD"}, nil)

	if len(result.Ticks) != 2 {
		t.Fatalf("expected 2 ticks, got %+v", result.Ticks)
	}
	if result.Ticks[0].Instrument != "BTC-USD" || result.Ticks[0].Source != domain.VenueOrderly {
		t.Fatalf("unexpected first tick: %+v", result.Ticks[0])
	}
	if result.Ticks[1].Instrument != "S-USD" || result.Ticks[1].Source != domain.VenueCoinDesk || result.Ticks[1].Price != 0.956 {
		t.Fatalf("unexpected second tick: %+v", result.Ticks[1])
	}

	if len(result.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %+v", result.Errors)
	}
	if result.Errors[0].Venue != domain.VenueOrderly || result.Errors[0].Kind != domain.ErrKindTransport {
		t.Fatalf("unexpected first error: %+v", result.Errors[0])
	}
	if result.Errors[1].Venue != domain.VenueDexScreener || result.Errors[1].Kind != domain.ErrKindSymbolNotFound {
		t.Fatalf("unexpected second error: %+v", result.Errors[1])
	}

	want := []domain.VenueName{domain.VenueCoinDesk, domain.VenueOrderly}
	if len(result.VenuesUsed) != 2 || result.VenuesUsed[0] != want[0] || result.VenuesUsed[1] != want[1] {
		t.Fatalf("unexpected venues used: %+v", result.VenuesUsed)
	}
}

func TestResolveAllVenuesExhausted(t *testing.T) {
	t.Parallel()

	a := &stubAdapter{name: domain.VenueOrderly}
	b := &stubAdapter{name: domain.VenueDexScreener}
	c := &stubAdapter{name: domain.VenueCoinDesk}

	r := newTestResolver(nil, a, b, c)
	result := r.Resolve(context.Background(), []string{"FAKE-USD"}, nil)

	if len(result.Ticks) != 0 {
		t.Fatalf("expected no ticks, got %+v", result.Ticks)
	}
	if len(result.Errors) != 3 {
		t.Fatalf("expected one error per venue, got %d", len(result.Errors))
	}
	for _, e := range result.Errors {
		if e.Kind != domain.ErrKindSymbolNotFound {
			t.Fatalf("expected symbol_not_found, got %+v", e)
		}
	}
	if len(result.VenuesUsed) != 0 {
		t.Fatalf("expected no venues used, got %+v", result.VenuesUsed)
	}
}

func TestResolveStopsAtFirstSuccess(t *testing.T) {
	t.Parallel()

	a := &stubAdapter{
		name:  domain.VenueOrderly,
		ticks: map[string]*domain.CanonicalTick{"BTC-USD": tickFor("BTC-USD", domain.VenueOrderly, 100)},
	}
	b := &stubAdapter{name: domain.VenueDexScreener}

	r := newTestResolver(nil, a, b)
	result := r.Resolve(context.Background(), []string{"BTC-USD"}, []domain.VenueName{domain.VenueOrderly, domain.VenueDexScreener})

	if len(result.Errors) != 0 {
		t.Fatalf("expected no errors, got %+v", result.Errors)
	}
	if len(b.calls) != 0 {
		t.Fatalf("expected no fallback calls, got %v", b.calls)
	}
}

func TestResolveCacheHitShortCircuits(t *testing.T) {
	t.Parallel()

	store := cache.NewMemoryStore()
	cached := tickFor("BTC-USD", domain.VenueCoinDesk, 99000)
	data, _ := json.Marshal(cached)
	_ = store.Set(context.Background(), "price:BTC-USD", data, time.Minute)

	a := &stubAdapter{name: domain.VenueOrderly}
	r := newTestResolver(store, a)
	result := r.Resolve(context.Background(), []string{"BTC-USD"}, []domain.VenueName{domain.VenueOrderly})

	if len(a.calls) != 0 {
		t.Fatalf("expected cache hit to skip venue, got calls %v", a.calls)
	}
	if len(result.Ticks) != 1 || result.Ticks[0].Price != 99000 || result.Ticks[0].Source != domain.VenueCoinDesk {
		t.Fatalf("unexpected tick: %+v", result.Ticks)
	}
}

func TestResolveCachesSuccess(t *testing.T) {
	t.Parallel()

	store := cache.NewMemoryStore()
	a := &stubAdapter{
		name:  domain.VenueOrderly,
		ticks: map[string]*domain.CanonicalTick{"BTC-USD": tickFor("BTC-USD", domain.VenueOrderly, 100)},
	}
	r := newTestResolver(store, a)

	_ = r.Resolve(context.Background(), []string{"BTC-USD"}, []domain.VenueName{domain.VenueOrderly})
	if _, ok, _ := store.Get(context.Background(), "price:BTC-USD"); !ok {
		t.Fatal("expected successful tick to be cached")
	}

	_ = r.Resolve(context.Background(), []string{"BTC-USD"}, []domain.VenueName{domain.VenueOrderly})
	if len(a.calls) != 1 {
		t.Fatalf("expected a single venue call across both resolves, got %d", len(a.calls))
	}
}

func TestResolveFailureNotCached(t *testing.T) {
	t.Parallel()

	store := cache.NewMemoryStore()
	a := &stubAdapter{name: domain.VenueOrderly}
	r := newTestResolver(store, a)

	_ = r.Resolve(context.Background(), []string{"FAKE-USD"}, []domain.VenueName{domain.VenueOrderly})
	if store.Len() != 0 {
		t.Fatalf("expected nothing cached on failure, got %d entries", store.Len())
	}
}

func TestResolveOrderOverride(t *testing.T) {
	t.Parallel()

	a := &stubAdapter{name: domain.VenueOrderly}
	c := &stubAdapter{
		name:  domain.VenueCoinDesk,
		ticks: map[string]*domain.CanonicalTick{"S-USD": tickFor("S-USD", domain.VenueCoinDesk, 0.956)},
	}

	r := New(testTracer, []VenueAdapter{a, c}, nil, Config{
		VenueOrder: []domain.VenueName{domain.VenueOrderly, domain.VenueCoinDesk},
		OrderOverrides: map[string][]domain.VenueName{
			"S-USD": {domain.VenueCoinDesk},
		},
	})

	result := r.Resolve(context.Background(), []string{"S-USD"}, nil)
	if len(a.calls) != 0 {
		t.Fatalf("expected override to skip orderly, got calls %v", a.calls)
	}
	if len(result.Ticks) != 1 || len(result.Errors) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestResolveExpiredDeadline(t *testing.T) {
	t.Parallel()

	a := &stubAdapter{
		name:  domain.VenueOrderly,
		ticks: map[string]*domain.CanonicalTick{"BTC-USD": tickFor("BTC-USD", domain.VenueOrderly, 100)},
	}
	r := newTestResolver(nil, a)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := r.Resolve(ctx, []string{"BTC-USD"}, []domain.VenueName{domain.VenueOrderly})
	if len(result.Ticks) != 0 {
		t.Fatalf("expected no ticks after deadline, got %+v", result.Ticks)
	}
	if len(result.Errors) != 1 || result.Errors[0].Kind != domain.ErrKindTransport {
		t.Fatalf("expected a transport error for the abandoned instrument, got %+v", result.Errors)
	}
}

func TestResolveNeverReturnsNilManifest(t *testing.T) {
	t.Parallel()

	r := newTestResolver(nil)
	result := r.Resolve(context.Background(), []string{"BTC-USD"}, []domain.VenueName{domain.VenueOrderly})
	if len(result.Errors) != 1 || result.Errors[0].Message != "venue not registered" {
		t.Fatalf("unexpected result: %+v", result)
	}
}
