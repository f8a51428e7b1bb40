package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// newTrackCmd registers a case for an owner.  The first sync happens on the
// next worker pass or via `arconte sync`.
func newTrackCmd(opts *rootOptions) *cobra.Command {
	var ownerID string

	cmd := &cobra.Command{
		Use:   "track <radicado>",
		Short: "Register a case for tracking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.pipeline.Register(ctx, ownerID, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "case %s registered with id %s\n", rec.Radicado, rec.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&ownerID, "owner", "", "owner user id")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
