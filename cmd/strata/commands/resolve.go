package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/strataconf/strata/pkg/loader"
	"github.com/strataconf/strata/pkg/registry"
	"github.com/strataconf/strata/pkg/report"
	"github.com/strataconf/strata/pkg/resolver"
	"github.com/strataconf/strata/pkg/telemetry"
	"github.com/strataconf/strata/pkg/vars"
)

type resolveOptions struct {
	inventoryPath  string
	schemaPath     string
	moduleDefaults []string
	moduleVars     []string
	playVars       []string
	taskVars       []string
	factVars       []string
	extraVars      []string
	limit          []string
	parallel       int
	storePath      string
	trace          bool
	metricsListen  string

	metrics *telemetry.Metrics
}

func newResolveCommand() *cobra.Command {
	opts := &resolveOptions{}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve configuration for every target",
		Long: `Resolve configuration for every target in the inventory.

Variables from all sources are merged by scope precedence, validated
against the schema, and reported per target with provenance. The full
report is always printed; the command exits non-zero if any target
failed validation.`,
		Example: `  # Resolve an inventory against a schema
  strata resolve -i inventory.yaml -s schema.yaml

  # Layer play variables and command-line overrides on top
  strata resolve -i inventory.yaml -s schema.yaml --play-vars play.yaml -e mtu=9000

  # Persist the run to an audit store
  strata resolve -i inventory.yaml -s schema.yaml --store runs.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := executeResolve(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if err := printRun(cmd.OutOrStdout(), run); err != nil {
				return err
			}

			if opts.storePath != "" {
				if err := saveRun(cmd.Context(), opts.storePath, run); err != nil {
					return err
				}
			}

			if run.Failed() {
				return fmt.Errorf("%d of %d targets failed validation",
					run.Summary.Failed, run.Summary.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.inventoryPath, "inventory", "i", "", "inventory file path")
	cmd.Flags().StringVarP(&opts.schemaPath, "schema", "s", "", "schema file path")
	cmd.Flags().StringSliceVar(&opts.moduleDefaults, "module-defaults", nil, "module default variable files")
	cmd.Flags().StringSliceVar(&opts.moduleVars, "module-vars", nil, "module internal variable files")
	cmd.Flags().StringSliceVar(&opts.playVars, "play-vars", nil, "play-local variable files")
	cmd.Flags().StringSliceVar(&opts.taskVars, "task-vars", nil, "task-local variable files")
	cmd.Flags().StringSliceVar(&opts.factVars, "facts", nil, "runtime fact files")
	cmd.Flags().StringArrayVarP(&opts.extraVars, "extra-var", "e", nil, "override variable (key=value, highest precedence)")
	cmd.Flags().StringSliceVarP(&opts.limit, "limit", "l", nil, "resolve only the named targets")
	cmd.Flags().IntVarP(&opts.parallel, "parallel", "p", 0, "max targets resolved concurrently")
	cmd.Flags().StringVar(&opts.storePath, "store", "", "SQLite audit store path (optional)")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "emit a stdout trace span per target")
	_ = cmd.MarkFlagRequired("inventory")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

// scopeFileFlags pairs each variable-file flag with the scope it feeds.
func (o *resolveOptions) scopeFiles() []struct {
	scope registry.ScopeKind
	paths []string
} {
	return []struct {
		scope registry.ScopeKind
		paths []string
	}{
		{registry.ScopeModuleDefault, o.moduleDefaults},
		{registry.ScopeModuleInternal, o.moduleVars},
		{registry.ScopePlayLocal, o.playVars},
		{registry.ScopeTaskLocal, o.taskVars},
		{registry.ScopeRuntimeFact, o.factVars},
	}
}

// executeResolve loads every input document, seals the registry, and runs
// the engine.
func executeResolve(ctx context.Context, opts *resolveOptions) (*resolver.Run, error) {
	l := loader.New()

	spec, err := l.LoadSchema(opts.schemaPath)
	if err != nil {
		return nil, err
	}

	inv, err := l.LoadInventory(opts.inventoryPath)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	targets, err := l.ApplyInventory(reg, inv)
	if err != nil {
		return nil, err
	}
	targets = filterTargets(targets, opts.limit)

	for _, sf := range opts.scopeFiles() {
		for _, path := range sf.paths {
			doc, err := l.LoadScopeDocument(path)
			if err != nil {
				return nil, err
			}
			if err := reg.Register(sf.scope, "", doc); err != nil {
				return nil, fmt.Errorf("registering %s: %w", path, err)
			}
		}
	}

	if len(opts.extraVars) > 0 {
		overrides, err := loader.ParseOverrides(opts.extraVars)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(registry.ScopeOverride, "", overrides); err != nil {
			return nil, fmt.Errorf("registering overrides: %w", err)
		}
	}

	if err := reg.Seal(); err != nil {
		return nil, fmt.Errorf("sealing registry: %w", err)
	}

	var tracer *telemetry.Tracer
	if opts.trace {
		tracer, err = telemetry.NewTracer(telemetry.TracingConfig{
			Enabled:      true,
			Exporter:     "stdout",
			SamplingRate: 1.0,
		}, "strata", "cli")
		if err != nil {
			return nil, fmt.Errorf("starting tracer: %w", err)
		}
		defer func() {
			if err := tracer.Shutdown(context.Background()); err != nil {
				log.Warn().Err(err).Msg("Tracer shutdown failed")
			}
		}()
	}

	engine := resolver.NewEngine(reg, spec, resolver.Options{
		MaxParallel: opts.parallel,
		Metrics:     opts.metrics,
		Tracer:      tracer,
	})
	return engine.Resolve(ctx, targets)
}

func filterTargets(targets []registry.Target, limit []string) []registry.Target {
	if len(limit) == 0 {
		return targets
	}
	wanted := make(map[string]bool, len(limit))
	for _, name := range limit {
		wanted[name] = true
	}
	out := targets[:0]
	for _, t := range targets {
		if wanted[t.Name] {
			out = append(out, t)
		}
	}
	return out
}

func saveRun(ctx context.Context, path string, run *resolver.Run) error {
	store, err := report.NewStore(report.Config{Path: path})
	if err != nil {
		return err
	}
	if err := store.Init(ctx); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	if err := store.SaveRun(ctx, run); err != nil {
		return err
	}

	log.Info().Str("run_id", run.ID).Str("store", path).Msg("Run persisted")
	return nil
}

// printRun renders the full resolution report, JSON or human-readable.
func printRun(out io.Writer, run *resolver.Run) error {
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	for i := range run.Targets {
		result := &run.Targets[i]
		fmt.Fprintf(out, "%s: %s (%s)\n", result.Target, result.Status, result.Duration)

		if result.Status == resolver.TargetStatusFailed {
			for _, verr := range result.Errors {
				fmt.Fprintf(out, "  %s\n", verr.Error())
			}
			continue
		}

		leaves := map[string]vars.Value{}
		collectLeaves(result.Config.Values, "", leaves)
		paths := make([]string, 0, len(leaves))
		for path := range leaves {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, path := range paths {
			fmt.Fprintf(out, "  %s = %s  [%s]\n", path, leaves[path].String(), result.Provenance[path].String())
		}
	}

	fmt.Fprintf(out, "\nrun %s: %d targets, %d resolved, %d failed in %s\n",
		run.ID, run.Summary.Total, run.Summary.Resolved, run.Summary.Failed, run.Duration)
	return nil
}

// collectLeaves flattens a value tree to dotted leaf paths. Sequences and
// empty mappings are leaves, matching how provenance is recorded.
func collectLeaves(v vars.Value, path string, out map[string]vars.Value) {
	if v.Kind() == vars.KindMapping && v.Len() > 0 {
		for _, key := range v.Keys() {
			child, _ := v.Get(key)
			childPath := key
			if path != "" {
				childPath = path + "." + key
			}
			collectLeaves(child, childPath, out)
		}
		return
	}
	if path == "" {
		return
	}
	out[path] = v
}
