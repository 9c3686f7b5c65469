// Package quota wraps the metered market-data aggregator API behind a hard
// daily credit budget. Every upstream call is priced before it is made;
// a call that would push today's spend over the cap is rejected with
// ErrQuotaExceeded and never reaches the network.
package quota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"marketfeed/internal/cache"
	"marketfeed/internal/ta"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const (
	EndpointTrending = "trending"
	EndpointGlobal   = "global"
	EndpointQuotes   = "quotes"

	trendingTTL = 15 * time.Minute
	globalTTL   = 30 * time.Minute
	quotesTTL   = 5 * time.Minute
	// Stale copies outlive the fresh TTL so a quota-exhausted day can
	// still serve yesterday's shape of the data.
	staleTTL = 24 * time.Hour

	defaultDailyCap = 333
	listingsPage    = 100
)

// ErrQuotaExceeded is returned when a call would breach the daily cap.
// Methods may return it alongside a non-nil stale result.
var ErrQuotaExceeded = errors.New("daily credit cap would be exceeded")

// Ledger is the durable credit counter keyed by (endpoint, UTC date).
type Ledger interface {
	Add(ctx context.Context, endpoint string, credits int) error
	SumForDate(ctx context.Context, date time.Time) (int, error)
}

type Listing struct {
	Name         string  `json:"name"`
	Symbol       string  `json:"symbol"`
	PriceUSD     float64 `json:"price_usd"`
	Volume24hUSD float64 `json:"volume_24h_usd"`
	Change24hPct float64 `json:"change_24h_pct"`
	MarketCapUSD float64 `json:"market_cap_usd"`
}

// Mover is one entry of a derived trending list. Unusual marks a 24h move
// at least two standard deviations from the page mean.
type Mover struct {
	Listing
	Unusual bool `json:"unusual"`
}

type TrendingResult struct {
	Gainers   []Mover   `json:"gainers"`
	Losers    []Mover   `json:"losers"`
	FetchedAt time.Time `json:"fetched_at"`
}

type GlobalMetrics struct {
	TotalMarketCapUSD      float64 `json:"total_market_cap_usd"`
	TotalVolume24hUSD      float64 `json:"total_volume_24h_usd"`
	BTCDominance           float64 `json:"btc_dominance"`
	ETHDominance           float64 `json:"eth_dominance"`
	ActiveCryptocurrencies int     `json:"active_cryptocurrencies"`
}

type Client struct {
	tracer   trace.Tracer
	client   *http.Client
	baseURL  string
	apiKey   string
	store    cache.Store
	ledger   Ledger
	dailyCap int
	topN     int
	flight   singleflight.Group
	now      func() time.Time
}

func NewClient(tracer trace.Tracer, store cache.Store, ledger Ledger, baseURL, apiKey string, dailyCap int) *Client {
	if baseURL == "" {
		baseURL = "https://pro-api.coinmarketcap.com"
	}
	if dailyCap <= 0 {
		dailyCap = defaultDailyCap
	}
	if ledger == nil {
		ledger = newMemoryLedger()
	}
	return &Client{
		tracer:   tracer,
		client:   &http.Client{Timeout: 15 * time.Second},
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		store:    store,
		ledger:   ledger,
		dailyCap: dailyCap,
		topN:     10,
		now:      time.Now,
	}
}

// Trending derives gainers/losers from a single ranked listings page,
// sorted client-side by 24h percent change. One listings call is cheaper
// than a dedicated gainers-losers endpoint, so trending costs 1 credit.
func (c *Client) Trending(ctx context.Context) (*TrendingResult, error) {
	_, span := c.tracer.Start(ctx, "quota-client.trending")
	defer span.End()

	body, stale, err := c.fetch(ctx, EndpointTrending, "cmc:trending", trendingTTL, 1, func(ctx context.Context) ([]byte, error) {
		u := fmt.Sprintf("%s/v1/cryptocurrency/listings/latest?start=1&limit=%d&convert=USD", c.baseURL, listingsPage)
		return c.doRequest(ctx, u)
	})
	if body == nil {
		return nil, err
	}

	listings, perr := parseListings(body)
	if perr != nil {
		return nil, perr
	}
	result := deriveTrending(listings, c.topN, c.now().UTC())
	if stale {
		return result, ErrQuotaExceeded
	}
	return result, err
}

// GlobalMetrics fetches aggregate market statistics. Costs 1 credit.
func (c *Client) GlobalMetrics(ctx context.Context) (*GlobalMetrics, error) {
	_, span := c.tracer.Start(ctx, "quota-client.global-metrics")
	defer span.End()

	body, stale, err := c.fetch(ctx, EndpointGlobal, "cmc:global", globalTTL, 1, func(ctx context.Context) ([]byte, error) {
		return c.doRequest(ctx, c.baseURL+"/v1/global-metrics/quotes/latest")
	})
	if body == nil {
		return nil, err
	}

	var raw struct {
		Data struct {
			BTCDominance           float64 `json:"btc_dominance"`
			ETHDominance           float64 `json:"eth_dominance"`
			ActiveCryptocurrencies int     `json:"active_cryptocurrencies"`
			Quote                  struct {
				USD struct {
					TotalMarketCap float64 `json:"total_market_cap"`
					TotalVolume24h float64 `json:"total_volume_24h"`
				} `json:"USD"`
			} `json:"quote"`
		} `json:"data"`
	}
	if perr := json.Unmarshal(body, &raw); perr != nil {
		return nil, fmt.Errorf("parse global metrics: %w", perr)
	}

	metrics := &GlobalMetrics{
		TotalMarketCapUSD:      raw.Data.Quote.USD.TotalMarketCap,
		TotalVolume24hUSD:      raw.Data.Quote.USD.TotalVolume24h,
		BTCDominance:           raw.Data.BTCDominance,
		ETHDominance:           raw.Data.ETHDominance,
		ActiveCryptocurrencies: raw.Data.ActiveCryptocurrencies,
	}
	if stale {
		return metrics, ErrQuotaExceeded
	}
	return metrics, err
}

// Quotes fetches latest quotes for the given symbols. Costs
// ceil(len(symbols)/100) credits.
func (c *Client) Quotes(ctx context.Context, symbols []string) (map[string]Listing, error) {
	_, span := c.tracer.Start(ctx, "quota-client.quotes")
	defer span.End()

	if len(symbols) == 0 {
		return nil, fmt.Errorf("quotes requires at least one symbol")
	}

	normalized := normalizeSymbols(symbols)
	credits := CreditsForQuotes(len(normalized))
	key := "cmc:quotes:" + strings.Join(normalized, ",")

	body, stale, err := c.fetch(ctx, EndpointQuotes, key, quotesTTL, credits, func(ctx context.Context) ([]byte, error) {
		u := fmt.Sprintf("%s/v1/cryptocurrency/quotes/latest?symbol=%s&convert=USD",
			c.baseURL, url.QueryEscape(strings.Join(normalized, ",")))
		return c.doRequest(ctx, u)
	})
	if body == nil {
		return nil, err
	}

	var raw struct {
		Data map[string]listingPayload `json:"data"`
	}
	if perr := json.Unmarshal(body, &raw); perr != nil {
		return nil, fmt.Errorf("parse quotes: %w", perr)
	}

	out := make(map[string]Listing, len(raw.Data))
	for sym, payload := range raw.Data {
		out[sym] = payload.toListing()
	}
	if stale {
		return out, ErrQuotaExceeded
	}
	return out, err
}

// CreditsForQuotes prices a quotes call: one credit per started block of
// 100 symbols.
func CreditsForQuotes(symbolCount int) int {
	if symbolCount <= 0 {
		return 0
	}
	return (symbolCount + 99) / 100
}

type fetchResult struct {
	body  []byte
	stale bool
}

// fetch is the budget gate every endpoint goes through. Identical cache
// keys are single-flighted so a miss stampede cannot multiply credit
// spend.
func (c *Client) fetch(ctx context.Context, endpoint, key string, ttl time.Duration, credits int, call func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		if data, ok := c.cacheGet(ctx, key); ok {
			return fetchResult{body: data}, nil
		}

		today := c.now().UTC()
		used, lerr := c.ledger.SumForDate(ctx, today)
		if lerr != nil {
			return nil, fmt.Errorf("read credit ledger: %w", lerr)
		}
		if used+credits > c.dailyCap {
			if data, ok := c.cacheGet(ctx, key+":stale"); ok {
				return fetchResult{body: data, stale: true}, ErrQuotaExceeded
			}
			return nil, ErrQuotaExceeded
		}

		body, cerr := call(ctx)
		if cerr != nil {
			return nil, cerr
		}

		c.cacheSet(ctx, key, body, ttl)
		c.cacheSet(ctx, key+":stale", body, staleTTL)
		if aerr := c.ledger.Add(ctx, endpoint, credits); aerr != nil {
			log.Printf("credit ledger write error for %s: %v", endpoint, aerr)
		}
		return fetchResult{body: body}, nil
	})

	res, ok := v.(fetchResult)
	if !ok {
		return nil, false, err
	}
	return res.body, res.stale, err
}

func (c *Client) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	if c.store == nil {
		return nil, false
	}
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		log.Printf("quota cache read error for %s: %v", key, err)
		return nil, false
	}
	return data, ok
}

func (c *Client) cacheSet(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if c.store == nil {
		return
	}
	if err := c.store.Set(ctx, key, data, ttl); err != nil {
		log.Printf("quota cache write error for %s: %v", key, err)
	}
}

func (c *Client) doRequest(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("aggregator API error %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

type listingPayload struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Quote  struct {
		USD struct {
			Price            float64 `json:"price"`
			Volume24h        float64 `json:"volume_24h"`
			PercentChange24h float64 `json:"percent_change_24h"`
			MarketCap        float64 `json:"market_cap"`
		} `json:"USD"`
	} `json:"quote"`
}

func (p listingPayload) toListing() Listing {
	return Listing{
		Name:         p.Name,
		Symbol:       p.Symbol,
		PriceUSD:     p.Quote.USD.Price,
		Volume24hUSD: p.Quote.USD.Volume24h,
		Change24hPct: p.Quote.USD.PercentChange24h,
		MarketCapUSD: p.Quote.USD.MarketCap,
	}
}

func parseListings(body []byte) ([]Listing, error) {
	var raw struct {
		Data []listingPayload `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse listings: %w", err)
	}
	out := make([]Listing, 0, len(raw.Data))
	for _, p := range raw.Data {
		out = append(out, p.toListing())
	}
	return out, nil
}

func deriveTrending(listings []Listing, topN int, fetchedAt time.Time) *TrendingResult {
	sorted := append([]Listing(nil), listings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Change24hPct > sorted[j].Change24hPct
	})

	changes := make([]float64, len(sorted))
	for i, l := range sorted {
		changes[i] = l.Change24hPct
	}
	mean, std := ta.MeanStd(changes)

	unusual := func(l Listing) bool {
		z := ta.ZScore(l.Change24hPct, mean, std)
		return z >= 2 || z <= -2
	}

	n := topN
	if n > len(sorted) {
		n = len(sorted)
	}

	result := &TrendingResult{FetchedAt: fetchedAt}
	for _, l := range sorted[:n] {
		result.Gainers = append(result.Gainers, Mover{Listing: l, Unusual: unusual(l)})
	}
	for i := 0; i < n; i++ {
		l := sorted[len(sorted)-1-i]
		result.Losers = append(result.Losers, Mover{Listing: l, Unusual: unusual(l)})
	}
	return result
}

func normalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
