package quota

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// memoryLedger is the fallback when no durable ledger is wired. Spend
// tracking then resets with the process, so the durable path is
// preferred in production.
type memoryLedger struct {
	mu    sync.Mutex
	spent map[string]int
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{spent: make(map[string]int)}
}

func (l *memoryLedger) Add(ctx context.Context, endpoint string, credits int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.spent[dayKey(endpoint, time.Now())] += credits
	return nil
}

func (l *memoryLedger) SumForDate(ctx context.Context, date time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	suffix := date.UTC().Format("2006-01-02")
	total := 0
	for key, credits := range l.spent {
		if strings.HasSuffix(key, suffix) {
			total += credits
		}
	}
	return total, nil
}

func dayKey(endpoint string, t time.Time) string {
	return fmt.Sprintf("%s@%s", endpoint, t.UTC().Format("2006-01-02"))
}
