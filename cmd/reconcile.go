package cmd

import (
	"github.com/spf13/cobra"

	"kubeship/internal/cli"
	"kubeship/internal/reconciler"
	"kubeship/internal/upgrade"
)

// DefaultWorkers is the default size of the reconciliation worker pool.
const DefaultWorkers = 4

func newReconcileCmd() *cobra.Command {
	var (
		workers int
		mode    string
	)

	cmd := &cobra.Command{
		Use:   "reconcile [service...]",
		Short: "Reconcile services in a region against its cluster",
		Long: `Resolve the manifests of the region's services and roll each of them out.

Without arguments every enabled, non-external service of the region is
reconciled. Services that pin no version and are not yet running are skipped
with a warning.

Modes:
  diff             report what would change
  upgrade-no-wait  apply without waiting for rollouts
  upgrade          apply and wait for every rollout to complete`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := upgrade.ParseMode(mode)
			if err != nil {
				return err
			}

			ws, err := cli.LoadWorkspace(&rootFlags, true)
			if err != nil {
				return err
			}
			jobs, err := ws.Jobs(args...)
			if err != nil {
				return err
			}

			client, notifier, err := newClusterClient(ws)
			if err != nil {
				return err
			}

			orch := reconciler.New(ws.Region, client, notifier, reconciler.Options{})
			return orch.ReconcileJobs(cmd.Context(), jobs, m, workers)
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", DefaultWorkers, "Number of services reconciled concurrently")
	cmd.Flags().StringVar(&mode, "mode", string(upgrade.ModeUpgrade), "Reconcile mode (diff, upgrade-no-wait, upgrade)")
	return cmd
}
