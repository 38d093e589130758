package ports

import (
	"context"

	"github.com/aretw0/animgate/pkg/domain"
)

// RunLedger persists the history of batch runs.
type RunLedger interface {
	// BeginRun records the start of a run.
	BeginRun(ctx context.Context, run domain.Run) error

	// RecordOutcome appends the result for one controller of a run.
	RecordOutcome(ctx context.Context, outcome domain.Outcome) error

	// FinishRun stores the final counters of a run.
	FinishRun(ctx context.Context, run domain.Run) error
}
