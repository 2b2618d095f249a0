// Package ledger keeps the bounded scan history and the point balance.
package ledger

import (
	"sync"

	"ecodining/internal/models"
)

const DefaultLimit = 10

// Ledger is safe for concurrent use. History and balance only change
// together through Commit.
type Ledger struct {
	mu      sync.RWMutex
	limit   int
	entries []models.HistoryEntry // newest first
	balance int
}

func New(startingBalance, limit int) *Ledger {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Ledger{
		limit:   limit,
		entries: make([]models.HistoryEntry, 0, limit),
		balance: startingBalance,
	}
}

// Commit records entry as the newest scan, evicts the oldest past the limit
// and credits entry.Points. It returns the new balance.
func (l *Ledger) Commit(entry models.HistoryEntry) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	keep := min(len(l.entries), l.limit-1)
	next := make([]models.HistoryEntry, 0, l.limit)
	next = append(next, entry)
	next = append(next, l.entries[:keep]...)
	l.entries = next
	l.balance += entry.Points
	return l.balance
}

// Entries returns a copy of the history, newest first.
func (l *Ledger) Entries() []models.HistoryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.HistoryEntry(nil), l.entries...)
}

func (l *Ledger) Balance() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balance
}

// Snapshot reads history and balance under one lock so callers never see
// one without the other.
func (l *Ledger) Snapshot() ([]models.HistoryEntry, int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.HistoryEntry(nil), l.entries...), l.balance
}

func (l *Ledger) Limit() int {
	return l.limit
}
