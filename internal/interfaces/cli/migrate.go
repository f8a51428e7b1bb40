package cli

import (
	"github.com/spf13/cobra"

	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/database/postgres"
)

// newMigrateCmd applies pending schema migrations.  It only needs the
// database section, so it skips the full dependency graph.
func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return postgres.Migrate(cfg.Database, cfg.Migrations.Path, logger)
		},
	}
}
