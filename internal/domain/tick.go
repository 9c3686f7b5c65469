package domain

import (
	"fmt"
	"time"
)

// VenueName identifies one of the external price venues.
type VenueName string

const (
	VenueOrderly     VenueName = "orderly"
	VenueDexScreener VenueName = "dexscreener"
	VenueCoinDesk    VenueName = "coindesk"
)

// DefaultVenueOrder is the fallback priority used when no per-instrument
// override is configured.
var DefaultVenueOrder = []VenueName{VenueOrderly, VenueDexScreener, VenueCoinDesk}

// CanonicalTick is a normalized price snapshot for one instrument.
// Source always names the venue that actually answered, never a
// configured default.
type CanonicalTick struct {
	Instrument   string    `json:"instrument"`
	Price        float64   `json:"price"`
	Bid          *float64  `json:"bid,omitempty"`
	Ask          *float64  `json:"ask,omitempty"`
	DayChangePct *float64  `json:"day_change_pct,omitempty"`
	High24h      *float64  `json:"high_24h,omitempty"`
	Low24h       *float64  `json:"low_24h,omitempty"`
	Volume24h    *float64  `json:"volume_24h,omitempty"`
	Source       VenueName `json:"source"`
	Timestamp    time.Time `json:"timestamp"`
}

// ErrorKind classifies a failed venue attempt.
type ErrorKind string

const (
	ErrKindTransport      ErrorKind = "transport"
	ErrKindSymbolNotFound ErrorKind = "symbol_not_found"
	ErrKindParse          ErrorKind = "parse"
)

// VenueError records one failed attempt against one venue for one
// instrument. It satisfies the error interface so adapters can return it
// directly.
type VenueError struct {
	Instrument string    `json:"instrument"`
	Venue      VenueName `json:"venue"`
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
}

func (e *VenueError) Error() string {
	return fmt.Sprintf("%s: %s on %s: %s", e.Instrument, e.Kind, e.Venue, e.Message)
}

// ResolutionResult is the always-valid return value of a resolve call.
// A total failure is an empty Ticks slice with a full Errors manifest.
type ResolutionResult struct {
	Ticks      []CanonicalTick `json:"ticks"`
	Errors     []VenueError    `json:"errors"`
	VenuesUsed []VenueName     `json:"venues_used"`
}
