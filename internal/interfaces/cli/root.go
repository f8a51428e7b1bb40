// Package cli defines the arconte command tree: case registration, one-shot
// and background synchronization, notification retention, and migrations.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

// rootOptions holds global CLI flags.
type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCommand creates the root command with all global flags and
// subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "arconte",
		Short: "Arconte case-tracking core",
		Long: "Arconte tracks Colombian judicial cases: it pulls normalized snapshots\n" +
			"from the ingest service, detects new procedural acts and status changes,\n" +
			"classifies orders, and turns changes into prioritized notifications.",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "config file path")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	cmd.AddCommand(
		newTrackCmd(opts),
		newSyncCmd(opts),
		newWorkerCmd(opts),
		newEventsCmd(opts),
		newPurgeCmd(opts),
		newMigrateCmd(opts),
	)
	return cmd
}

// Execute runs the CLI and returns the command error, if any.
func Execute() error {
	return NewRootCommand().Execute()
}
