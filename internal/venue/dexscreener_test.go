package venue

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"marketfeed/internal/domain"
)

func fastLimiter() *RateLimiter {
	return NewRateLimiter(100, time.Millisecond)
}

func TestDexScreenerPicksDeepestPair(t *testing.T) {
	t.Parallel()

	adapter := NewDexScreenerAdapter(testTracer, "")
	adapter.baseURL = "http://example"
	adapter.limiter = fastLimiter()
	adapter.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if !strings.Contains(req.URL.RawQuery, "q=") {
				t.Fatalf("expected search query, got %s", req.URL.RawQuery)
			}
			return jsonResponse(http.StatusOK, map[string]any{
				"pairs": []map[string]any{
					{
						"priceUsd":    "3190.10",
						"priceChange": map[string]float64{"h24": -1.2},
						"volume":      map[string]float64{"h24": 1000},
					},
					{
						"priceUsd":    "3201.55",
						"priceChange": map[string]float64{"h24": -1.1},
						"volume":      map[string]float64{"h24": 90000},
					},
				},
			}), nil
		}),
	}

	tick, err := adapter.GetTick(context.Background(), "ETH-USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tick.Price != 3201.55 {
		t.Fatalf("expected deepest pair price, got %f", tick.Price)
	}
	if tick.Source != domain.VenueDexScreener {
		t.Fatalf("unexpected source: %s", tick.Source)
	}
}

func TestDexScreenerUnmappedInstrument(t *testing.T) {
	t.Parallel()

	adapter := NewDexScreenerAdapter(testTracer, "")
	// S-USD is deliberately absent: indexed pairs alias a stablecoin.
	_, err := adapter.GetTick(context.Background(), "S-USD")
	ve := venueErr(t, err)
	if ve.Kind != domain.ErrKindSymbolNotFound {
		t.Fatalf("expected symbol_not_found, got %s", ve.Kind)
	}
}

func TestDexScreenerEmptyPairs(t *testing.T) {
	t.Parallel()

	adapter := NewDexScreenerAdapter(testTracer, "")
	adapter.baseURL = "http://example"
	adapter.limiter = fastLimiter()
	adapter.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, map[string]any{"pairs": []any{}}), nil
		}),
	}

	_, err := adapter.GetTick(context.Background(), "ETH-USD")
	ve := venueErr(t, err)
	if ve.Kind != domain.ErrKindParse {
		t.Fatalf("expected parse, got %s", ve.Kind)
	}
}

func TestDexScreenerBadPrice(t *testing.T) {
	t.Parallel()

	adapter := NewDexScreenerAdapter(testTracer, "")
	adapter.baseURL = "http://example"
	adapter.limiter = fastLimiter()
	adapter.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, map[string]any{
				"pairs": []map[string]any{
					{"priceUsd": "n/a"},
				},
			}), nil
		}),
	}

	_, err := adapter.GetTick(context.Background(), "ETH-USD")
	ve := venueErr(t, err)
	if ve.Kind != domain.ErrKindParse {
		t.Fatalf("expected parse, got %s", ve.Kind)
	}
}
