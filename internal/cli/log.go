package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log <note> <branch>",
		Short: "Show the revision timeline for a scope",
		Long: `List every record in a (note, branch) scope, oldest first. The
timeline is ordered by the store's logical sequence number, not wall
time.

Example:
  palimpsest log --db ./notes.db my-note main
  palimpsest log --db ./notes.db my-note main --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(cmd, rootOpts, args)
		},
	}
	return cmd
}

func runLog(cmd *cobra.Command, opts *RootOptions, args []string) error {
	eng, err := openEngine(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer closeEngine(eng)

	edits, err := eng.ListEdits(cmd.Context(), args[0], args[1])
	formatter := newFormatter(cmd, opts)
	if err != nil {
		_ = formatter.Error(storeErrorCode(err), err.Error(), nil)
		return wrapStoreError("listing failed", err)
	}

	if opts.Format == "json" {
		return formatter.Success(edits)
	}

	if len(edits) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no revisions")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tEDIT\tTYPE\tCHAIN\tSIZE\tCREATED")
	for _, e := range edits {
		storage := string(e.Storage)
		if storage == "" {
			storage = "legacy"
		}
		created := time.UnixMilli(e.CreatedAt).UTC().Format(time.RFC3339)
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\n",
			e.Seq, e.EditID, storage, e.ChainLength, e.Size, created)
	}
	return w.Flush()
}
