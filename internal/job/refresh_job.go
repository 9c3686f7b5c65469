package job

import (
	"context"
	"errors"
	"log"
	"time"

	"go.opentelemetry.io/otel/trace"

	"marketfeed/internal/domain"
	"marketfeed/internal/quota"
)

// TickResolver is the slice of the price resolver the refresh job needs.
type TickResolver interface {
	Resolve(ctx context.Context, instruments []string, venueOrder []domain.VenueName) domain.ResolutionResult
}

// MarketSource is the slice of the quota-aware market client the refresh
// job needs. Payloads are discarded; the calls exist to warm the cache.
type MarketSource interface {
	Trending(ctx context.Context) (*quota.TrendingResult, error)
	GlobalMetrics(ctx context.Context) (*quota.GlobalMetrics, error)
}

// RefreshJob keeps the tick and market caches warm so interactive
// requests mostly hit cache. Market refreshes spend provider credits, so
// they run on a much slower cadence than tick resolution.
type RefreshJob struct {
	tracer         trace.Tracer
	resolver       TickResolver
	market         MarketSource
	instruments    []string
	tickInterval   time.Duration
	marketInterval time.Duration
}

func NewRefreshJob(
	tracer trace.Tracer,
	resolver TickResolver,
	market MarketSource,
	instruments []string,
	tickIntervalSecs, marketIntervalSecs int,
) *RefreshJob {
	return &RefreshJob{
		tracer:         tracer,
		resolver:       resolver,
		market:         market,
		instruments:    instruments,
		tickInterval:   time.Duration(tickIntervalSecs) * time.Second,
		marketInterval: time.Duration(marketIntervalSecs) * time.Second,
	}
}

// Start launches the refresh loops. Blocks until ctx is cancelled.
func (j *RefreshJob) Start(ctx context.Context) {
	log.Println("Refresh job starting...")

	go j.pollLoop(ctx, "ticks", j.tickInterval, j.refreshTicks)
	go j.pollMarket(ctx)

	<-ctx.Done()
	log.Println("Refresh job stopped")
}

func (j *RefreshJob) pollLoop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	// Run immediately on start
	if err := fn(ctx); err != nil {
		log.Printf("refresh %s initial run error: %v", name, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				log.Printf("refresh %s error: %v", name, err)
			}
		}
	}
}

func (j *RefreshJob) pollMarket(ctx context.Context) {
	// Stagger behind the tick loop so startup is not one burst
	select {
	case <-ctx.Done():
		return
	case <-time.After(10 * time.Second):
	}

	j.pollLoop(ctx, "market", j.marketInterval, j.refreshMarket)
}

func (j *RefreshJob) refreshTicks(ctx context.Context) error {
	ctx, span := j.tracer.Start(ctx, "refresh-job.ticks")
	defer span.End()

	if len(j.instruments) == 0 {
		return nil
	}

	result := j.resolver.Resolve(ctx, j.instruments, nil)
	for i := range result.Errors {
		log.Printf("tick refresh: %v", &result.Errors[i])
	}
	return nil
}

func (j *RefreshJob) refreshMarket(ctx context.Context) error {
	ctx, span := j.tracer.Start(ctx, "refresh-job.market")
	defer span.End()

	if _, err := j.market.Trending(ctx); err != nil && !errors.Is(err, quota.ErrQuotaExceeded) {
		return err
	}
	if _, err := j.market.GlobalMetrics(ctx); err != nil && !errors.Is(err, quota.ErrQuotaExceeded) {
		return err
	}
	return nil
}
