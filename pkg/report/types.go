package report

import (
	"time"

	"github.com/strataconf/strata/pkg/merge"
	"github.com/strataconf/strata/pkg/resolver"
	"github.com/strataconf/strata/pkg/schema"
)

// StoredRun is one persisted resolution run.
type StoredRun struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	// Duration in nanoseconds, as stored.
	Duration time.Duration `json:"duration"`

	Total    int `json:"total"`
	Resolved int `json:"resolved"`
	Failed   int `json:"failed"`

	CreatedAt time.Time `json:"created_at"`
}

// StoredTargetResult is one persisted per-target outcome.
type StoredTargetResult struct {
	ID     string `json:"id"`
	RunID  string `json:"run_id"`
	Target string `json:"target"`

	// Groups is the target's declared group list.
	Groups []string `json:"groups,omitempty"`

	Status resolver.TargetStatus `json:"status"`

	// Config is the resolved configuration as a generic value tree. Nil
	// for failed targets.
	Config any `json:"config,omitempty"`

	// Errors holds the validation errors of a failed target.
	Errors []schema.ValidationError `json:"errors,omitempty"`

	// Provenance maps field paths to the scope that supplied them.
	Provenance map[string]merge.Provenance `json:"provenance,omitempty"`

	Duration time.Duration `json:"duration"`
}
