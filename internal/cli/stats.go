package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Long: `Report the number of stored edit records and manifests.

Example:
  palimpsest stats --db ./notes.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, rootOpts)
		},
	}
	return cmd
}

func runStats(cmd *cobra.Command, opts *RootOptions) error {
	eng, err := openEngine(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer closeEngine(eng)

	formatter := newFormatter(cmd, opts)
	stats, err := eng.Stats(cmd.Context())
	if err != nil {
		_ = formatter.Error(storeErrorCode(err), err.Error(), nil)
		return wrapStoreError("stats failed", err)
	}

	if opts.Format == "json" {
		return formatter.Success(stats)
	}
	return formatter.Success(fmt.Sprintf("edits: %d, manifests: %d, active locks: %d",
		stats.EditCount, stats.ManifestCount, stats.ActiveLockedKeys))
}
