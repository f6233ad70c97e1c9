package commands

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/strataconf/strata/pkg/telemetry"
)

func newWatchCommand() *cobra.Command {
	opts := &resolveOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-resolve whenever a source document changes",
		Long: `Watch the inventory, schema, and variable files and re-run resolution
on every change. Failures are reported but do not stop the loop; press
Ctrl-C to exit.`,
		Example: `  strata watch -i inventory.yaml -s schema.yaml --play-vars play.yaml

  # Expose resolution metrics for Prometheus to scrape
  strata watch -i inventory.yaml -s schema.yaml --metrics-listen :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts)
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
	cmd.Flags().StringVar(&opts.metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address (host:port)")
	_ = cmd.MarkFlagRequired("inventory")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *resolveOptions) error {
	if opts.metricsListen != "" {
		opts.metrics = telemetry.NewMetrics(telemetry.MetricsConfig{
			Enabled:       true,
			Namespace:     "strata",
			ListenAddress: opts.metricsListen,
		})
		opts.metrics.StartServer()
		log.Info().Str("addr", opts.metricsListen).Msg("Serving metrics")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	watched := []string{opts.inventoryPath, opts.schemaPath}
	for _, sf := range opts.scopeFiles() {
		watched = append(watched, sf.paths...)
	}
	for _, path := range watched {
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
	}

	resolveOnce := func() {
		run, err := executeResolve(cmd.Context(), opts)
		if err != nil {
			log.Error().Err(err).Msg("Resolution failed")
			return
		}
		if err := printRun(cmd.OutOrStdout(), run); err != nil {
			log.Error().Err(err).Msg("Printing report failed")
		}
	}

	log.Info().Strs("files", watched).Msg("Watching for changes")
	resolveOnce()

	// Editors often emit bursts of events per save; coalesce them.
	var debounce *time.Timer
	debounced := make(chan struct{}, 1)

	for {
		select {
		case <-cmd.Context().Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Source changed")

			// Some editors replace the file on save, dropping the watch.
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Create) {
				_ = watcher.Add(event.Name)
			}

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(250*time.Millisecond, func() {
				select {
				case debounced <- struct{}{}:
				default:
				}
			})

		case <-debounced:
			resolveOnce()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Watcher error")
		}
	}
}
