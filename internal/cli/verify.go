package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"palimpsest/internal/engine"
)

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <note> <branch> [edit]",
		Short: "Verify revision integrity against stored digests",
		Long: `Recompute digests by replaying chains and compare them to the stored
values. With an edit id, checks that one revision; without, sweeps the
whole branch. Any invalid record makes the command exit non-zero.

Example:
  palimpsest verify --db ./notes.db my-note main
  palimpsest verify --db ./notes.db my-note main 0190a8f2-...`,
		Args:          cobra.RangeArgs(2, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, rootOpts, args)
		},
	}
	return cmd
}

func runVerify(cmd *cobra.Command, opts *RootOptions, args []string) error {
	eng, err := openEngine(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer closeEngine(eng)

	formatter := newFormatter(cmd, opts)

	var reports []engine.VerifyReport
	if len(args) == 3 {
		report, err := eng.VerifyEditIntegrity(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			_ = formatter.Error(storeErrorCode(err), err.Error(), nil)
			return wrapStoreError("verify failed", err)
		}
		reports = []engine.VerifyReport{report}
	} else {
		reports, err = eng.VerifyBranchIntegrity(cmd.Context(), args[0], args[1])
		if err != nil {
			_ = formatter.Error(storeErrorCode(err), err.Error(), nil)
			return wrapStoreError("verify failed", err)
		}
	}

	formatter.VerboseLog("verified %d record(s) in %s/%s", len(reports), args[0], args[1])

	invalid := 0
	for _, r := range reports {
		if !r.Valid {
			invalid++
		}
	}

	if opts.Format == "json" {
		if err := formatter.Success(reports); err != nil {
			return err
		}
	} else {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "EDIT\tVALID\tDETAIL")
		for _, r := range reports {
			detail := ""
			switch {
			case r.Error != "":
				detail = r.Error
			case !r.Valid:
				detail = fmt.Sprintf("expected %s, got %s", r.ExpectedDigest, r.ActualDigest)
			}
			fmt.Fprintf(w, "%s\t%t\t%s\n", r.EditID, r.Valid, detail)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d records failed verification", invalid, len(reports)))
	}
	return nil
}
