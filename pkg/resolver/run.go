package resolver

import (
	"time"

	"github.com/strataconf/strata/pkg/merge"
	"github.com/strataconf/strata/pkg/schema"
)

// TargetStatus is the terminal state of one target's resolution.
type TargetStatus string

const (
	// TargetStatusResolved means the target produced a complete typed
	// configuration.
	TargetStatusResolved TargetStatus = "resolved"

	// TargetStatusFailed means validation found at least one error and no
	// configuration was produced.
	TargetStatusFailed TargetStatus = "failed"
)

// TargetResult is the resolution report for one target. Exactly one of
// Config or Errors is populated, matching Status.
type TargetResult struct {
	// Target is the target name.
	Target string `json:"target"`

	// Groups is the target's declared group list, in declaration order.
	Groups []string `json:"groups,omitempty"`

	// Status is resolved or failed.
	Status TargetStatus `json:"status"`

	// Config is the validated, coerced configuration. Nil when failed.
	Config *schema.ResolvedConfiguration `json:"config,omitempty"`

	// Errors holds every validation error found for this target, ordered
	// depth-first by field path. Empty when resolved.
	Errors []schema.ValidationError `json:"errors,omitempty"`

	// Provenance maps each resolved leaf path to the scope that supplied
	// its value. Populated only when resolved.
	Provenance map[string]merge.Provenance `json:"provenance,omitempty"`

	// Duration is the wall-clock time spent resolving this target.
	Duration time.Duration `json:"duration"`
}

// RunSummary aggregates per-target outcomes.
type RunSummary struct {
	// Total is the number of targets in the run.
	Total int `json:"total"`

	// Resolved is the number of targets that produced a configuration.
	Resolved int `json:"resolved"`

	// Failed is the number of targets with validation errors.
	Failed int `json:"failed"`
}

// Run is the complete report of one resolution run over a sealed registry.
type Run struct {
	// ID uniquely identifies the run.
	ID string `json:"id"`

	// StartedAt is when resolution began.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the last target finished.
	CompletedAt time.Time `json:"completed_at"`

	// Duration is CompletedAt minus StartedAt.
	Duration time.Duration `json:"duration"`

	// Targets holds one result per target, ordered by target name.
	Targets []TargetResult `json:"targets"`

	// Summary aggregates the per-target outcomes.
	Summary RunSummary `json:"summary"`
}

// Failed reports whether any target in the run failed validation.
func (r *Run) Failed() bool {
	return r.Summary.Failed > 0
}

// Result returns the result for the named target, or nil.
func (r *Run) Result(target string) *TargetResult {
	for i := range r.Targets {
		if r.Targets[i].Target == target {
			return &r.Targets[i]
		}
	}
	return nil
}
