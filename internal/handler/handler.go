package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"marketfeed/internal/domain"
	"marketfeed/internal/quota"
)

// TickResolver resolves instruments across the configured venues.
type TickResolver interface {
	Resolve(ctx context.Context, instruments []string, venueOrder []domain.VenueName) domain.ResolutionResult
}

// MarketClient is the quota-aware market data client.
type MarketClient interface {
	Trending(ctx context.Context) (*quota.TrendingResult, error)
	GlobalMetrics(ctx context.Context) (*quota.GlobalMetrics, error)
	Quotes(ctx context.Context, symbols []string) (map[string]quota.Listing, error)
}

// IntelRunner executes one chat-intelligence pipeline pass.
type IntelRunner interface {
	Run(ctx context.Context) (*domain.IntelReport, error)
}

// CreditReader exposes the day's ledger for the usage endpoint.
type CreditReader interface {
	SumForDate(ctx context.Context, date time.Time) (int, error)
	EntriesForDate(ctx context.Context, date time.Time) ([]domain.CreditLedgerEntry, error)
}

type Handler struct {
	tracer   trace.Tracer
	resolver TickResolver
	market   MarketClient
	intel    IntelRunner
	credits  CreditReader
}

func New(tracer trace.Tracer, resolver TickResolver, market MarketClient, intel IntelRunner, credits CreditReader) *Handler {
	return &Handler{
		tracer:   tracer,
		resolver: resolver,
		market:   market,
		intel:    intel,
		credits:  credits,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/ticks", h.GetTicks)
	r.GET("/api/market/trending", h.GetTrending)
	r.GET("/api/market/global", h.GetGlobalMetrics)
	r.GET("/api/market/quotes", h.GetQuotes)
	r.GET("/api/market/credits", h.GetCreditUsage)
	r.GET("/api/intel/report", h.GetIntelReport)
}
