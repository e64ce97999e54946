package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"kubeship/internal/cli"
	"kubeship/internal/reconciler"
	"kubeship/internal/upgrade"
	"kubeship/internal/watcher"
	"kubeship/pkg/logging"
)

func newWatchCmd() *cobra.Command {
	var (
		workers  int
		mode     string
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reconcile services whenever their configuration changes",
		Long: `Watch the configuration directory and reconcile the services whose files
change. Editing config.yaml or a shared template reconciles every service in
the region. Failures are logged and watching continues.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := upgrade.ParseMode(mode)
			if err != nil {
				return err
			}
			ws, err := cli.LoadWorkspace(&rootFlags, true)
			if err != nil {
				return err
			}
			client, notifier, err := newClusterClient(ws)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			changes := make(chan watcher.Change, 64)
			detector := watcher.NewDetector(rootFlags.ConfigPath, debounce)
			if err := detector.Start(ctx, changes); err != nil {
				return err
			}
			defer detector.Stop()

			metrics := reconciler.NewMetrics()
			for {
				select {
				case <-ctx.Done():
					s := metrics.GetSummary()
					logging.Info("CLI", "Stopped watching after %d batches (%d failed)", s.TotalBatches, s.FailedBatches)
					return nil
				case change := <-changes:
					reconcileChange(ctx, change, m, workers, func(ws *cli.Workspace) *reconciler.Orchestrator {
						return reconciler.New(ws.Region, client, notifier, reconciler.Options{Metrics: metrics})
					})
				}
			}
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", DefaultWorkers, "Number of services reconciled concurrently")
	cmd.Flags().StringVar(&mode, "mode", string(upgrade.ModeUpgrade), "Reconcile mode (diff, upgrade-no-wait, upgrade)")
	cmd.Flags().DurationVar(&debounce, "debounce", watcher.DefaultDebounceInterval, "Quiet period before a change is acted on")
	return cmd
}

// reconcileChange reloads the workspace and reconciles what change affects.
// Errors are logged only.
func reconcileChange(ctx context.Context, change watcher.Change, mode upgrade.Mode, workers int, orchestrator func(*cli.Workspace) *reconciler.Orchestrator) {
	ws, err := cli.LoadWorkspace(&rootFlags, true)
	if err != nil {
		logging.Error("CLI", err, "Failed to reload configuration")
		return
	}

	var names []string
	if !change.Global {
		if change.Operation == watcher.OperationDelete {
			logging.Info("CLI", "Files of %s were removed, not reconciling", change.Service)
			return
		}
		sm, err := ws.Store.LoadSimple(change.Service, ws.Config, ws.Region)
		if err != nil {
			logging.Error("CLI", err, "Failed to resolve %s", change.Service)
			return
		}
		if !sm.Enabled || sm.External {
			logging.Debug("CLI", "%s is not reconciled in %s", change.Service, ws.Region.Name)
			return
		}
		names = []string{change.Service}
	}

	jobs, err := ws.Jobs(names...)
	if err != nil {
		logging.Error("CLI", err, "Failed to select services")
		return
	}
	if err := orchestrator(ws).ReconcileJobs(ctx, jobs, mode, workers); err != nil {
		logging.Error("CLI", err, "Reconciliation failed")
	}
}
