package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCatCommand creates the cat command.
func NewCatCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat <note> <branch> <edit>",
		Short: "Print the reconstructed content of a revision",
		Long: `Reconstruct one revision by replaying its patch chain and print the
content. The result is verified against the stored digest; corruption
is an error, never silently wrong output.

Example:
  palimpsest cat --db ./notes.db my-note main 0190a8f2-...`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCat(cmd, rootOpts, args)
		},
	}
	return cmd
}

func runCat(cmd *cobra.Command, opts *RootOptions, args []string) error {
	eng, err := openEngine(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer closeEngine(eng)

	content, found, err := eng.GetEditContent(cmd.Context(), args[0], args[1], args[2])
	formatter := newFormatter(cmd, opts)
	if err != nil {
		_ = formatter.Error(storeErrorCode(err), err.Error(), nil)
		return wrapStoreError("reconstruction failed", err)
	}
	if !found {
		_ = formatter.Error("NOT_FOUND", fmt.Sprintf("edit %s does not exist", args[2]), nil)
		return NewExitError(ExitCommandError, "edit not found")
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]string{"content": content})
	}
	fmt.Fprint(cmd.OutOrStdout(), content)
	return nil
}
