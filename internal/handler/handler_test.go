package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"marketfeed/internal/domain"
	"marketfeed/internal/quota"
)

type fakeResolver struct {
	result domain.ResolutionResult
	gotIn  []string
}

func (f *fakeResolver) Resolve(ctx context.Context, instruments []string, venueOrder []domain.VenueName) domain.ResolutionResult {
	f.gotIn = instruments
	return f.result
}

type fakeMarket struct {
	trending    *quota.TrendingResult
	trendingErr error
	global      *quota.GlobalMetrics
	globalErr   error
	quotes      map[string]quota.Listing
	quotesErr   error
}

func (f *fakeMarket) Trending(ctx context.Context) (*quota.TrendingResult, error) {
	return f.trending, f.trendingErr
}

func (f *fakeMarket) GlobalMetrics(ctx context.Context) (*quota.GlobalMetrics, error) {
	return f.global, f.globalErr
}

func (f *fakeMarket) Quotes(ctx context.Context, symbols []string) (map[string]quota.Listing, error) {
	return f.quotes, f.quotesErr
}

type fakeIntel struct {
	report *domain.IntelReport
	err    error
}

func (f *fakeIntel) Run(ctx context.Context) (*domain.IntelReport, error) {
	return f.report, f.err
}

type fakeCredits struct {
	total   int
	entries []domain.CreditLedgerEntry
}

func (f *fakeCredits) SumForDate(ctx context.Context, date time.Time) (int, error) {
	return f.total, nil
}

func (f *fakeCredits) EntriesForDate(ctx context.Context, date time.Time) ([]domain.CreditLedgerEntry, error) {
	return f.entries, nil
}

func newTestRouter(resolver TickResolver, market MarketClient, intel IntelRunner, credits CreditReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	tracer := trace.NewNoopTracerProvider().Tracer("handler-test")
	h := New(tracer, resolver, market, intel, credits)
	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func doGet(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestGetTicks(t *testing.T) {
	change := 2.4
	resolver := &fakeResolver{
		result: domain.ResolutionResult{
			Ticks: []domain.CanonicalTick{
				{Instrument: "BTC-USD", Price: 97000.5, DayChangePct: &change, Source: domain.VenueOrderly},
			},
			VenuesUsed: []domain.VenueName{domain.VenueOrderly},
		},
	}
	r := newTestRouter(resolver, &fakeMarket{}, &fakeIntel{}, &fakeCredits{})

	w := doGet(r, "/api/ticks?instruments=BTC-USD,ETH-USD")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(resolver.gotIn) != 2 {
		t.Fatalf("expected 2 instruments passed through, got %v", resolver.gotIn)
	}

	var body struct {
		Ticks []struct {
			Instrument string `json:"instrument"`
			Trend      string `json:"trend"`
		} `json:"ticks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Ticks) != 1 || body.Ticks[0].Trend != "up" {
		t.Fatalf("expected trend annotation, got %+v", body.Ticks)
	}
}

func TestGetTicksRequiresInstruments(t *testing.T) {
	r := newTestRouter(&fakeResolver{}, &fakeMarket{}, &fakeIntel{}, &fakeCredits{})
	if w := doGet(r, "/api/ticks"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetTrending(t *testing.T) {
	market := &fakeMarket{
		trending: &quota.TrendingResult{
			Gainers: []quota.Mover{{Listing: quota.Listing{Symbol: "AAA", Change24hPct: 40}, Unusual: true}},
		},
	}
	r := newTestRouter(&fakeResolver{}, market, &fakeIntel{}, &fakeCredits{})

	w := doGet(r, "/api/market/trending")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if body := w.Body.String(); !jsonHas(body, `"symbol":"AAA"`) {
		t.Fatalf("expected gainer in body: %s", body)
	}
}

func TestGetTrendingStaleOnQuotaExceeded(t *testing.T) {
	market := &fakeMarket{
		trending:    &quota.TrendingResult{},
		trendingErr: fmt.Errorf("trending: %w", quota.ErrQuotaExceeded),
	}
	r := newTestRouter(&fakeResolver{}, market, &fakeIntel{}, &fakeCredits{})

	w := doGet(r, "/api/market/trending")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with stale payload, got %d", w.Code)
	}
	if !jsonHas(w.Body.String(), `"stale":true`) {
		t.Fatalf("expected stale flag: %s", w.Body.String())
	}
}

func TestGetTrending429WithoutStale(t *testing.T) {
	market := &fakeMarket{trendingErr: quota.ErrQuotaExceeded}
	r := newTestRouter(&fakeResolver{}, market, &fakeIntel{}, &fakeCredits{})

	if w := doGet(r, "/api/market/trending"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}

func TestGetQuotesRequiresSymbols(t *testing.T) {
	r := newTestRouter(&fakeResolver{}, &fakeMarket{}, &fakeIntel{}, &fakeCredits{})
	if w := doGet(r, "/api/market/quotes"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetQuotes(t *testing.T) {
	market := &fakeMarket{
		quotes: map[string]quota.Listing{"BTC": {Symbol: "BTC", PriceUSD: 97000}},
	}
	r := newTestRouter(&fakeResolver{}, market, &fakeIntel{}, &fakeCredits{})

	w := doGet(r, "/api/market/quotes?symbols=BTC")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetCreditUsage(t *testing.T) {
	credits := &fakeCredits{
		total: 42,
		entries: []domain.CreditLedgerEntry{
			{Endpoint: "listings", CreditsUsed: 40},
			{Endpoint: "global-metrics", CreditsUsed: 2},
		},
	}
	r := newTestRouter(&fakeResolver{}, &fakeMarket{}, &fakeIntel{}, credits)

	w := doGet(r, "/api/market/credits")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !jsonHas(w.Body.String(), `"total":42`) {
		t.Fatalf("expected total in body: %s", w.Body.String())
	}
}

func TestGetIntelReport(t *testing.T) {
	intel := &fakeIntel{
		report: &domain.IntelReport{
			Summary: domain.IntelSummary{TxCount: 3},
			Errors:  []string{"channel nft-1: chat API error 403"},
		},
	}
	r := newTestRouter(&fakeResolver{}, &fakeMarket{}, intel, &fakeCredits{})

	w := doGet(r, "/api/intel/report")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !jsonHas(w.Body.String(), `"tx_count":3`) {
		t.Fatalf("expected summary in body: %s", w.Body.String())
	}
}

func jsonHas(body, fragment string) bool {
	return strings.Contains(body, fragment)
}
