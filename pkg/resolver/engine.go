package resolver

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/strataconf/strata/pkg/merge"
	"github.com/strataconf/strata/pkg/registry"
	"github.com/strataconf/strata/pkg/schema"
	"github.com/strataconf/strata/pkg/telemetry"
)

// DefaultMaxParallel is the worker count used when Options leaves
// MaxParallel unset.
const DefaultMaxParallel = 8

// Options configures an Engine. The zero value is usable.
type Options struct {
	// MaxParallel is the maximum number of targets resolved concurrently.
	MaxParallel int

	// Metrics receives resolution counters and timings. Nil disables
	// instrumentation.
	Metrics *telemetry.Metrics

	// Tracer emits a span per run and per target. Nil disables tracing.
	Tracer *telemetry.Tracer

	// Logger is the engine's structured logger. Defaults to the global
	// logger.
	Logger *zerolog.Logger
}

// Engine resolves targets against a sealed registry and a schema.
type Engine struct {
	reg  *registry.Registry
	spec *schema.FieldSpec

	maxParallel int
	metrics     *telemetry.Metrics
	tracer      *telemetry.Tracer
	logger      zerolog.Logger
}

// NewEngine creates an engine for one registry/schema pair. The registry
// must be sealed before Resolve is called.
func NewEngine(reg *registry.Registry, spec *schema.FieldSpec, opts Options) *Engine {
	maxParallel := opts.MaxParallel
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallel
	}

	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Engine{
		reg:         reg,
		spec:        spec,
		maxParallel: maxParallel,
		metrics:     opts.Metrics,
		tracer:      opts.Tracer,
		logger:      telemetry.ComponentLogger(logger, "resolver"),
	}
}

// Resolve runs the pipeline for every target and returns the full Run
// report. Validation failures are reported inside the Run; only structural
// input defects, cancellation, or a schema that fails its own structural
// check return an error, in which case no Run is produced.
func (e *Engine) Resolve(ctx context.Context, targets []registry.Target) (*Run, error) {
	if err := e.spec.Check(); err != nil {
		return nil, NewStructuralError("invalid schema", err)
	}

	run := &Run{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
	}

	e.metrics.RunStarted()
	ctx, runSpan := e.tracer.StartRun(ctx, run.ID, len(targets))
	defer runSpan.End()

	e.logger.Info().
		Str("run_id", run.ID).
		Int("targets", len(targets)).
		Int("max_parallel", e.maxParallel).
		Msg("resolution run started")

	results, err := e.resolveAll(ctx, targets)
	if err != nil {
		e.metrics.RunAborted()
		e.metrics.StructuralError()
		telemetry.RecordError(runSpan, err)
		e.logger.Error().
			Str("run_id", run.ID).
			Err(err).
			Msg("resolution run aborted")
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Target < results[j].Target
	})

	run.Targets = results
	run.CompletedAt = time.Now()
	run.Duration = run.CompletedAt.Sub(run.StartedAt)
	run.Summary = summarize(results)

	e.metrics.RunCompleted(run.Duration)
	e.logger.Info().
		Str("run_id", run.ID).
		Int("resolved", run.Summary.Resolved).
		Int("failed", run.Summary.Failed).
		Dur("duration", run.Duration).
		Msg("resolution run completed")

	return run, nil
}

// resolveAll fans targets out to a bounded worker pool. The first
// structural error cancels the remaining work and is returned; validation
// failures land in their target's result instead.
func (e *Engine) resolveAll(ctx context.Context, targets []registry.Target) ([]TargetResult, error) {
	workerCount := e.maxParallel
	if len(targets) < workerCount {
		workerCount = len(targets)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workQueue := make(chan int, len(targets))
	for i := range targets {
		workQueue <- i
	}
	close(workQueue)

	results := make([]TargetResult, len(targets))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for idx := range workQueue {
				select {
				case <-ctx.Done():
					return
				default:
				}

				result, err := e.resolveTarget(ctx, targets[idx])
				if err != nil {
					fail(err)
					return
				}
				results[idx] = result
			}
		}()
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, NewInternalError("resolution cancelled", err)
	}

	return results, nil
}

// resolveTarget merges and validates a single target. The returned error is
// always structural; validation errors are folded into the result.
func (e *Engine) resolveTarget(ctx context.Context, target registry.Target) (TargetResult, error) {
	start := time.Now()
	_, span := e.tracer.StartTarget(ctx, target.Name)
	defer span.End()

	merged, err := merge.Merge(e.reg, target)
	if err != nil {
		telemetry.RecordError(span, err)
		return TargetResult{}, NewStructuralError("merging scope documents", err).WithTarget(target.Name)
	}

	result := TargetResult{
		Target: target.Name,
		Groups: target.Groups,
	}

	cfg, errs := schema.Validate(e.spec, merged)
	if len(errs) > 0 {
		result.Status = TargetStatusFailed
		result.Errors = errs
		for _, verr := range errs {
			e.metrics.ValidationError(string(verr.Kind))
		}
		e.logger.Warn().
			Str("target", target.Name).
			Int("errors", len(errs)).
			Msg("target failed validation")
	} else {
		result.Status = TargetStatusResolved
		result.Config = cfg
		result.Provenance = cfg.Provenance
		e.logger.Debug().
			Str("target", target.Name).
			Int("fields", len(cfg.Provenance)).
			Msg("target resolved")
	}

	result.Duration = time.Since(start)
	e.metrics.TargetResolved(string(result.Status), result.Duration)

	return result, nil
}

func summarize(results []TargetResult) RunSummary {
	summary := RunSummary{Total: len(results)}
	for i := range results {
		switch results[i].Status {
		case TargetStatusResolved:
			summary.Resolved++
		case TargetStatusFailed:
			summary.Failed++
		}
	}
	return summary
}
