package ledger

import (
	"context"
	"sync"
)

type MemLedger struct {
	lk     sync.Mutex
	counts map[string]*Counts
}

func NewMemLedger() *MemLedger {
	return &MemLedger{
		counts: make(map[string]*Counts),
	}
}

func (l *MemLedger) entry(userID string) *Counts {
	c, ok := l.counts[userID]
	if !ok {
		c = &Counts{}
		l.counts[userID] = c
	}
	return c
}

func (l *MemLedger) RecordWarning(ctx context.Context, userID string) (int, error) {
	l.lk.Lock()
	defer l.lk.Unlock()
	c := l.entry(userID)
	c.Warnings++
	return c.Warnings, nil
}

func (l *MemLedger) RecordSuspension(ctx context.Context, userID string) (int, error) {
	l.lk.Lock()
	defer l.lk.Unlock()
	c := l.entry(userID)
	c.Suspensions++
	return c.Suspensions, nil
}

func (l *MemLedger) RecordFalseReport(ctx context.Context, userID string) (int, error) {
	l.lk.Lock()
	defer l.lk.Unlock()
	c := l.entry(userID)
	c.FalseReports++
	return c.FalseReports, nil
}

func (l *MemLedger) GetCounts(ctx context.Context, userID string) (Counts, error) {
	l.lk.Lock()
	defer l.lk.Unlock()
	c, ok := l.counts[userID]
	if !ok {
		return Counts{}, nil
	}
	return *c, nil
}
