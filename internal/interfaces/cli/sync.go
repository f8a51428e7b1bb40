package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// newSyncCmd runs one sync cycle for a single case.  The argument is the
// internal case id, or a radicado when --owner is given.
func newSyncCmd(opts *rootOptions) *cobra.Command {
	var ownerID string

	cmd := &cobra.Command{
		Use:   "sync <case-id | radicado>",
		Short: "Synchronize one case against the judicial portal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			caseID := args[0]
			if ownerID != "" {
				rec, err := a.caseRepo.GetByRadicado(ctx, ownerID, args[0])
				if err != nil {
					return err
				}
				caseID = rec.ID
			}

			lock := a.lockFactory()(caseID)
			ok, err := lock.TryLock(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("case %s is being synchronized by another instance", caseID)
			}
			defer func() { _ = lock.Unlock(ctx) }()

			report, err := a.pipeline.SyncCase(ctx, caseID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"case %s synced: %d new acts, %d changes, %d notifications\n",
				report.Case.Radicado, report.NewActs, len(report.Changes), report.Notifications)
			return nil
		},
	}

	cmd.Flags().StringVar(&ownerID, "owner", "", "owner user id (treat the argument as a radicado)")
	return cmd
}
