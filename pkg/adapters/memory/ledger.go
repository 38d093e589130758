package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/animgate/pkg/domain"
)

// Ledger implements ports.RunLedger in memory.
// Safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	runs     map[string]domain.Run
	outcomes map[string][]domain.Outcome
}

// NewLedger creates an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{
		runs:     make(map[string]domain.Run),
		outcomes: make(map[string][]domain.Outcome),
	}
}

func (l *Ledger) BeginRun(ctx context.Context, run domain.Run) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.runs[run.ID]; ok {
		return fmt.Errorf("run %s already recorded", run.ID)
	}
	l.runs[run.ID] = run
	return nil
}

func (l *Ledger) RecordOutcome(ctx context.Context, o domain.Outcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.runs[o.RunID]; !ok {
		return fmt.Errorf("run %s not found", o.RunID)
	}
	l.outcomes[o.RunID] = append(l.outcomes[o.RunID], o)
	return nil
}

func (l *Ledger) FinishRun(ctx context.Context, run domain.Run) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.runs[run.ID]; !ok {
		return fmt.Errorf("run %s not found", run.ID)
	}
	l.runs[run.ID] = run
	return nil
}

// Run returns the stored run.
func (l *Ledger) Run(id string) (domain.Run, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.runs[id]
	return r, ok
}

// Outcomes returns a copy of the outcomes recorded for a run.
func (l *Ledger) Outcomes(id string) []domain.Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Outcome(nil), l.outcomes[id]...)
}
