package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"marketfeed/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const dexScreenerBaseURL = "https://api.dexscreener.com"

// DexScreenerAdapter queries the DexScreener aggregator by token contract
// address. Search results cover many pools; the deepest pool by 24h volume
// wins. Requests go through a token-bucket limiter since the public API
// enforces a per-minute ceiling.
type DexScreenerAdapter struct {
	client    *http.Client
	baseURL   string
	tracer    trace.Tracer
	limiter   *RateLimiter
	contracts map[string]string
}

func NewDexScreenerAdapter(tracer trace.Tracer, baseURL string) *DexScreenerAdapter {
	if baseURL == "" {
		baseURL = dexScreenerBaseURL
	}
	return &DexScreenerAdapter{
		client:    &http.Client{Timeout: defaultRequestTimeout},
		baseURL:   baseURL,
		tracer:    tracer,
		limiter:   NewRateLimiter(60, time.Second),
		contracts: dexScreenerContracts,
	}
}

func (a *DexScreenerAdapter) Name() domain.VenueName { return domain.VenueDexScreener }

func (a *DexScreenerAdapter) GetTick(ctx context.Context, instrument string) (*domain.CanonicalTick, error) {
	_, span := a.tracer.Start(ctx, "dexscreener.get-tick")
	defer span.End()

	contract, ok := a.contracts[instrument]
	if !ok {
		return nil, notFoundErr(instrument, a.Name())
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, transportErr(instrument, a.Name(), fmt.Errorf("rate limit wait: %w", err))
	}

	u := fmt.Sprintf("%s/latest/dex/search?q=%s", a.baseURL, url.QueryEscape(contract))
	body, err := doRequest(ctx, a.client, u, nil)
	if err != nil {
		return nil, transportErr(instrument, a.Name(), err)
	}

	var raw struct {
		Pairs []struct {
			PriceUSD    string `json:"priceUsd"`
			PriceChange struct {
				H24 float64 `json:"h24"`
			} `json:"priceChange"`
			Volume struct {
				H24 float64 `json:"h24"`
			} `json:"volume"`
		} `json:"pairs"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, parseErr(instrument, a.Name(), fmt.Errorf("decode search response: %w", err))
	}
	if len(raw.Pairs) == 0 {
		return nil, parseErr(instrument, a.Name(), fmt.Errorf("no pairs indexed for contract"))
	}

	best := raw.Pairs[0]
	for _, p := range raw.Pairs[1:] {
		if p.Volume.H24 > best.Volume.H24 {
			best = p
		}
	}

	price, err := strconv.ParseFloat(best.PriceUSD, 64)
	if err != nil || price <= 0 {
		return nil, parseErr(instrument, a.Name(), fmt.Errorf("bad priceUsd %q", best.PriceUSD))
	}

	return &domain.CanonicalTick{
		Instrument:   instrument,
		Price:        price,
		DayChangePct: floatPtr(best.PriceChange.H24),
		Volume24h:    floatPtr(best.Volume.H24),
		Source:       a.Name(),
		Timestamp:    time.Now().UTC(),
	}, nil
}
