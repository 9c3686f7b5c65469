package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"

	"marketfeed/internal/domain"
)

const createCreditLedgerTable = `
CREATE TABLE IF NOT EXISTS credit_ledger (
    endpoint     TEXT NOT NULL,
    date         DATE NOT NULL,
    credits_used INT  NOT NULL DEFAULT 0,
    PRIMARY KEY (endpoint, date)
);
`

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CreditLedgerRepository persists per-endpoint daily credit spend. Dates
// are stored as UTC days so the cap resets at midnight UTC.
type CreditLedgerRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewCreditLedgerRepository(pool PgxPool, tracer trace.Tracer) *CreditLedgerRepository {
	return &CreditLedgerRepository{pool: pool, tracer: tracer}
}

func (r *CreditLedgerRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "credit-ledger.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createCreditLedgerTable)
	return err
}

func (r *CreditLedgerRepository) Add(ctx context.Context, endpoint string, credits int) error {
	if credits <= 0 {
		return nil
	}

	ctx, span := r.tracer.Start(ctx, "credit-ledger.add")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO credit_ledger (endpoint, date, credits_used)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (endpoint, date) DO UPDATE SET
		     credits_used = credit_ledger.credits_used + EXCLUDED.credits_used`,
		endpoint, utcDay(time.Now()), credits,
	)
	return err
}

func (r *CreditLedgerRepository) SumForDate(ctx context.Context, date time.Time) (int, error) {
	ctx, span := r.tracer.Start(ctx, "credit-ledger.sum-for-date")
	defer span.End()

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(credits_used), 0) FROM credit_ledger WHERE date = $1`,
		utcDay(date),
	).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// EntriesForDate returns the per-endpoint breakdown for one UTC day.
func (r *CreditLedgerRepository) EntriesForDate(ctx context.Context, date time.Time) ([]domain.CreditLedgerEntry, error) {
	ctx, span := r.tracer.Start(ctx, "credit-ledger.entries-for-date")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT endpoint, date, credits_used FROM credit_ledger WHERE date = $1 ORDER BY endpoint`,
		utcDay(date),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.CreditLedgerEntry
	for rows.Next() {
		var e domain.CreditLedgerEntry
		if err := rows.Scan(&e.Endpoint, &e.Date, &e.CreditsUsed); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
