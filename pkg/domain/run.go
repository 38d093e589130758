package domain

import "time"

// OutcomeStatus classifies what a batch run did with one controller.
type OutcomeStatus string

const (
	// OutcomeFixed means the controller was changed (and saved unless dry-run).
	OutcomeFixed OutcomeStatus = "fixed"
	// OutcomeSkipped means the controller already satisfied every invariant.
	OutcomeSkipped OutcomeStatus = "skipped"
	// OutcomeFailed means the controller could not be loaded, normalized or saved.
	OutcomeFailed OutcomeStatus = "failed"
)

// Run is one batch normalization over a store.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	DryRun     bool      `json:"dry_run"`
	Total      int       `json:"total"`
	Fixed      int       `json:"fixed"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
}

// Outcome is the result of a run for a single controller.
type Outcome struct {
	RunID        string        `json:"run_id"`
	Controller   string        `json:"controller"`
	Status       OutcomeStatus `json:"status"`
	ChangedCount int           `json:"changed_count"`
	Warnings     int           `json:"warnings"`
	Error        string        `json:"error,omitempty"`
}

// Tally adds o to the run counters.
func (r *Run) Tally(o Outcome) {
	r.Total++
	switch o.Status {
	case OutcomeFixed:
		r.Fixed++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	}
}
