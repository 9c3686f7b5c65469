package domain

import "time"

// CreditLedgerEntry is one durable row of metered-API credit usage,
// keyed by endpoint and UTC date. Append-only; owned by the ledger store.
type CreditLedgerEntry struct {
	Endpoint    string    `json:"endpoint"`
	Date        time.Time `json:"date"`
	CreditsUsed int       `json:"credits_used"`
}
