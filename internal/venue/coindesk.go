package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"marketfeed/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const coinDeskBaseURL = "https://data-api.coindesk.com"

// CoinDeskAdapter is the index fallback: it reads the latest daily bar of
// the CoinDesk composite index for the instrument.
type CoinDeskAdapter struct {
	client      *http.Client
	baseURL     string
	tracer      trace.Tracer
	instruments map[string]string
}

func NewCoinDeskAdapter(tracer trace.Tracer, baseURL string) *CoinDeskAdapter {
	if baseURL == "" {
		baseURL = coinDeskBaseURL
	}
	return &CoinDeskAdapter{
		client:      &http.Client{Timeout: defaultRequestTimeout},
		baseURL:     baseURL,
		tracer:      tracer,
		instruments: coinDeskInstruments,
	}
}

func (a *CoinDeskAdapter) Name() domain.VenueName { return domain.VenueCoinDesk }

func (a *CoinDeskAdapter) GetTick(ctx context.Context, instrument string) (*domain.CanonicalTick, error) {
	_, span := a.tracer.Start(ctx, "coindesk.get-tick")
	defer span.End()

	native, ok := a.instruments[instrument]
	if !ok {
		return nil, notFoundErr(instrument, a.Name())
	}

	u := fmt.Sprintf("%s/index/cc/v1/historical/days?market=cadli&instrument=%s&limit=1&aggregate=1",
		a.baseURL, url.QueryEscape(native))
	body, err := doRequest(ctx, a.client, u, nil)
	if err != nil {
		return nil, transportErr(instrument, a.Name(), err)
	}

	var raw struct {
		Data []struct {
			Price            float64 `json:"PRICE"`
			ChangePercentage float64 `json:"CHANGE_PERCENTAGE"`
			High             float64 `json:"HIGH"`
			Low              float64 `json:"LOW"`
			Volume           float64 `json:"VOLUME"`
			Timestamp        int64   `json:"TIMESTAMP"`
		} `json:"Data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, parseErr(instrument, a.Name(), fmt.Errorf("decode historical days: %w", err))
	}
	if len(raw.Data) == 0 {
		return nil, parseErr(instrument, a.Name(), fmt.Errorf("historical days response has no rows"))
	}

	row := raw.Data[len(raw.Data)-1]
	if row.Price <= 0 {
		return nil, parseErr(instrument, a.Name(), fmt.Errorf("row has no price"))
	}

	ts := time.Now().UTC()
	if row.Timestamp > 0 {
		ts = time.Unix(row.Timestamp, 0).UTC()
	}

	return &domain.CanonicalTick{
		Instrument:   instrument,
		Price:        row.Price,
		DayChangePct: floatPtr(row.ChangePercentage),
		High24h:      floatPtr(row.High),
		Low24h:       floatPtr(row.Low),
		Volume24h:    floatPtr(row.Volume),
		Source:       a.Name(),
		Timestamp:    ts,
	}, nil
}
