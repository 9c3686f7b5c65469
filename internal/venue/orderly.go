package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"marketfeed/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const orderlyBaseURL = "https://api.orderly.org"

// OrderlyAdapter reads 24h ticker stats from the Orderly perpetuals DEX.
type OrderlyAdapter struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
	symbols map[string]string
}

func NewOrderlyAdapter(tracer trace.Tracer, baseURL string) *OrderlyAdapter {
	if baseURL == "" {
		baseURL = orderlyBaseURL
	}
	return &OrderlyAdapter{
		client:  &http.Client{Timeout: defaultRequestTimeout},
		baseURL: baseURL,
		tracer:  tracer,
		symbols: orderlySymbols,
	}
}

func (a *OrderlyAdapter) Name() domain.VenueName { return domain.VenueOrderly }

func (a *OrderlyAdapter) GetTick(ctx context.Context, instrument string) (*domain.CanonicalTick, error) {
	_, span := a.tracer.Start(ctx, "orderly.get-tick")
	defer span.End()

	native, ok := a.symbols[instrument]
	if !ok {
		return nil, notFoundErr(instrument, a.Name())
	}

	url := fmt.Sprintf("%s/v1/public/ticker/%s", a.baseURL, native)
	body, err := doRequest(ctx, a.client, url, nil)
	if err != nil {
		return nil, transportErr(instrument, a.Name(), err)
	}

	var raw struct {
		Close         float64 `json:"close"`
		Change        float64 `json:"change"`
		ChangePercent float64 `json:"change_percent"`
		High          float64 `json:"high"`
		Low           float64 `json:"low"`
		Volume        float64 `json:"volume"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, parseErr(instrument, a.Name(), fmt.Errorf("decode ticker: %w", err))
	}
	if raw.Close <= 0 {
		return nil, parseErr(instrument, a.Name(), fmt.Errorf("ticker has no close price"))
	}

	return &domain.CanonicalTick{
		Instrument:   instrument,
		Price:        raw.Close,
		DayChangePct: floatPtr(raw.ChangePercent),
		High24h:      floatPtr(raw.High),
		Low24h:       floatPtr(raw.Low),
		Volume24h:    floatPtr(raw.Volume),
		Source:       a.Name(),
		Timestamp:    time.Now().UTC(),
	}, nil
}
