package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <note> <branch> <edit>",
		Short: "Delete a revision, healing the chain around it",
		Long: `Delete one record. Diff children of the deleted record are promoted
to full snapshots and their descendants rebased, so every remaining
revision stays reconstructible. All writes commit in one transaction.

Example:
  palimpsest delete --db ./notes.db my-note main 0190a8f2-...`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, rootOpts, args)
		},
	}
	return cmd
}

func runDelete(cmd *cobra.Command, opts *RootOptions, args []string) error {
	eng, err := openEngine(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer closeEngine(eng)

	formatter := newFormatter(cmd, opts)
	if err := eng.DeleteEdit(cmd.Context(), args[0], args[1], args[2]); err != nil {
		_ = formatter.Error(storeErrorCode(err), err.Error(), nil)
		return wrapStoreError("delete failed", err)
	}
	return formatter.Success(fmt.Sprintf("deleted %s", args[2]))
}

// NewDeleteHistoryCommand creates the delete-history command.
func NewDeleteHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-history <note>",
		Short: "Delete a note's entire history and manifest",
		Long: `Remove every record for a note across all branches, along with its
manifest, in one transaction.

Example:
  palimpsest delete-history --db ./notes.db my-note`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeleteHistory(cmd, rootOpts, args)
		},
	}
	return cmd
}

func runDeleteHistory(cmd *cobra.Command, opts *RootOptions, args []string) error {
	eng, err := openEngine(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer closeEngine(eng)

	formatter := newFormatter(cmd, opts)
	if err := eng.DeleteNoteHistory(cmd.Context(), args[0]); err != nil {
		_ = formatter.Error(storeErrorCode(err), err.Error(), nil)
		return wrapStoreError("delete-history failed", err)
	}
	return formatter.Success(fmt.Sprintf("deleted history of %s", args[0]))
}
