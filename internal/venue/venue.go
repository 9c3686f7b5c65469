// Package venue holds one adapter per external price venue. Each adapter
// translates the venue's wire format into a CanonicalTick and reports an
// unmapped instrument distinctly from a transport failure, so the resolver
// can tell "this venue will never have it" apart from "worth retrying
// later".
package venue

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"marketfeed/internal/domain"
)

const defaultRequestTimeout = 8 * time.Second

// Adapter fetches one normalized tick for a canonical instrument.
// The returned error is always a *domain.VenueError.
type Adapter interface {
	Name() domain.VenueName
	GetTick(ctx context.Context, instrument string) (*domain.CanonicalTick, error)
}

func transportErr(instrument string, venue domain.VenueName, err error) *domain.VenueError {
	return &domain.VenueError{
		Instrument: instrument,
		Venue:      venue,
		Kind:       domain.ErrKindTransport,
		Message:    err.Error(),
	}
}

func parseErr(instrument string, venue domain.VenueName, err error) *domain.VenueError {
	return &domain.VenueError{
		Instrument: instrument,
		Venue:      venue,
		Kind:       domain.ErrKindParse,
		Message:    err.Error(),
	}
}

func notFoundErr(instrument string, venue domain.VenueName) *domain.VenueError {
	return &domain.VenueError{
		Instrument: instrument,
		Venue:      venue,
		Kind:       domain.ErrKindSymbolNotFound,
		Message:    fmt.Sprintf("no %s mapping for %s", venue, instrument),
	}
}

// doRequest issues a GET and returns the body for 2xx responses. A non-2xx
// status or network failure is a transport-level error for the caller to
// classify.
func doRequest(ctx context.Context, client *http.Client, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("upstream %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return io.ReadAll(resp.Body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func floatPtr(v float64) *float64 { return &v }
