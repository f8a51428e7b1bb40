package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// newPurgeCmd deletes read notifications older than the retention window.
func newPurgeCmd(opts *rootOptions) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete read notifications past the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			retention := days
			if retention == 0 {
				retention = a.cfg.Notifications.RetentionDays
			}
			purged, err := a.notifications.PurgeOld(ctx, retention)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d notifications older than %d days\n", purged, retention)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "retention window in days (default: configured value)")
	return cmd
}
