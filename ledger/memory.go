package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLedger is a process-local ledger for tests and single-instance
// development servers. It is not shared across instances.
type MemoryLedger struct {
	mu      sync.RWMutex
	records map[uuid.UUID]time.Time
}

// NewMemoryLedger returns an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{records: make(map[uuid.UUID]time.Time)}
}

func (l *MemoryLedger) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.records[id]
	return ok, nil
}

// Insert keeps the later of the existing and new keepUntil, so repeated
// inserts converge on the same record.
func (l *MemoryLedger) Insert(_ context.Context, id uuid.UUID, keepUntil time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.records[id]; !ok || keepUntil.After(cur) {
		l.records[id] = keepUntil
	}
	return nil
}

func (l *MemoryLedger) Purge(_ context.Context, before time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for id, keepUntil := range l.records {
		if keepUntil.Before(before) {
			delete(l.records, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored records.
func (l *MemoryLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
