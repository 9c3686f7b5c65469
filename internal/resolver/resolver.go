// Package resolver drives ordered fallback across price venues. The
// resolver itself never fails: every call returns a ResolutionResult with
// whatever ticks could be obtained and a manifest entry for every venue
// attempt that did not produce one.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"time"

	"marketfeed/internal/cache"
	"marketfeed/internal/domain"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const cacheKeyPrefix = "price:"

// VenueAdapter is the resolver-side view of one venue.
type VenueAdapter interface {
	Name() domain.VenueName
	GetTick(ctx context.Context, instrument string) (*domain.CanonicalTick, error)
}

type Config struct {
	// VenueOrder is the default fallback priority.
	VenueOrder []domain.VenueName
	// OrderOverrides replaces the default order for specific instruments
	// known to be absent from certain venues.
	OrderOverrides map[string][]domain.VenueName
	// Concurrency bounds the number of instruments resolved in parallel.
	Concurrency int
	// VenueTimeout caps a single venue call; exceeding it counts as a
	// transport error for that venue.
	VenueTimeout time.Duration
	CacheTTL     time.Duration
}

type Resolver struct {
	tracer   trace.Tracer
	adapters map[domain.VenueName]VenueAdapter
	store    cache.Store
	cfg      Config
}

func New(tracer trace.Tracer, adapters []VenueAdapter, store cache.Store, cfg Config) *Resolver {
	if len(cfg.VenueOrder) == 0 {
		cfg.VenueOrder = domain.DefaultVenueOrder
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 6
	}
	if cfg.VenueTimeout <= 0 {
		cfg.VenueTimeout = 8 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 60 * time.Second
	}

	byName := make(map[domain.VenueName]VenueAdapter, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
	}

	return &Resolver{
		tracer:   tracer,
		adapters: byName,
		store:    store,
		cfg:      cfg,
	}
}

// Resolve walks the fallback chain for each instrument. A nil or empty
// venueOrder selects the per-instrument override when one is configured,
// else the default order. Instruments resolve concurrently; the chain
// within one instrument is strictly sequential.
func (r *Resolver) Resolve(ctx context.Context, instruments []string, venueOrder []domain.VenueName) domain.ResolutionResult {
	_, span := r.tracer.Start(ctx, "resolver.resolve")
	defer span.End()

	type slot struct {
		tick *domain.CanonicalTick
		errs []domain.VenueError
	}
	// Each goroutine owns exactly one slot, so no lock is needed.
	slots := make([]slot, len(instruments))

	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)

	for i, instrument := range instruments {
		g.Go(func() error {
			tick, errs := r.resolveOne(ctx, instrument, r.orderFor(instrument, venueOrder))
			slots[i] = slot{tick: tick, errs: errs}
			return nil
		})
	}
	_ = g.Wait()

	result := domain.ResolutionResult{}
	used := make(map[domain.VenueName]struct{})
	for _, s := range slots {
		if s.tick != nil {
			result.Ticks = append(result.Ticks, *s.tick)
			used[s.tick.Source] = struct{}{}
		}
		result.Errors = append(result.Errors, s.errs...)
	}

	for name := range used {
		result.VenuesUsed = append(result.VenuesUsed, name)
	}
	sort.Slice(result.VenuesUsed, func(i, j int) bool {
		return result.VenuesUsed[i] < result.VenuesUsed[j]
	})

	return result
}

func (r *Resolver) orderFor(instrument string, explicit []domain.VenueName) []domain.VenueName {
	if len(explicit) > 0 {
		return explicit
	}
	if override, ok := r.cfg.OrderOverrides[instrument]; ok && len(override) > 0 {
		return override
	}
	return r.cfg.VenueOrder
}

func (r *Resolver) resolveOne(ctx context.Context, instrument string, order []domain.VenueName) (*domain.CanonicalTick, []domain.VenueError) {
	if tick := r.cachedTick(ctx, instrument); tick != nil {
		return tick, nil
	}

	// Deadline fired before this instrument's turn in the pool: report it
	// rather than omitting the instrument silently.
	if ctx.Err() != nil && len(order) > 0 {
		return nil, []domain.VenueError{{
			Instrument: instrument,
			Venue:      order[0],
			Kind:       domain.ErrKindTransport,
			Message:    "resolution deadline exceeded before any venue attempt",
		}}
	}

	var manifest []domain.VenueError
	for _, name := range order {
		adapter, ok := r.adapters[name]
		if !ok {
			manifest = append(manifest, domain.VenueError{
				Instrument: instrument,
				Venue:      name,
				Kind:       domain.ErrKindTransport,
				Message:    "venue not registered",
			})
			continue
		}

		venueCtx, cancel := context.WithTimeout(ctx, r.cfg.VenueTimeout)
		tick, err := adapter.GetTick(venueCtx, instrument)
		cancel()

		if err == nil && tick != nil {
			r.cacheTick(ctx, tick)
			return tick, manifest
		}

		var ve *domain.VenueError
		if errors.As(err, &ve) {
			manifest = append(manifest, *ve)
		} else {
			manifest = append(manifest, domain.VenueError{
				Instrument: instrument,
				Venue:      name,
				Kind:       domain.ErrKindTransport,
				Message:    err.Error(),
			})
		}
	}

	return nil, manifest
}

func (r *Resolver) cachedTick(ctx context.Context, instrument string) *domain.CanonicalTick {
	if r.store == nil {
		return nil
	}
	data, ok, err := r.store.Get(ctx, cacheKeyPrefix+instrument)
	if err != nil {
		log.Printf("tick cache read error for %s: %v", instrument, err)
		return nil
	}
	if !ok {
		return nil
	}
	var tick domain.CanonicalTick
	if err := json.Unmarshal(data, &tick); err != nil {
		log.Printf("tick cache decode error for %s: %v", instrument, err)
		return nil
	}
	return &tick
}

func (r *Resolver) cacheTick(ctx context.Context, tick *domain.CanonicalTick) {
	if r.store == nil {
		return
	}
	data, err := json.Marshal(tick)
	if err != nil {
		return
	}
	if err := r.store.Set(ctx, cacheKeyPrefix+tick.Instrument, data, r.cfg.CacheTTL); err != nil {
		log.Printf("tick cache write error for %s: %v", tick.Instrument, err)
	}
}
