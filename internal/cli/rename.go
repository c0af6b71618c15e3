package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRenameEditCommand creates the rename-edit command.
func NewRenameEditCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename-edit <note> <old-edit> <new-edit>",
		Short: "Rekey an edit id across all branches of a note",
		Long: `Rename an edit. Every chain reference to the old id and the
manifest's version entry are rewritten in the same transaction. The
new id must not already be in use in the note.

Example:
  palimpsest rename-edit --db ./notes.db my-note old-id new-id`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRenameEdit(cmd, rootOpts, args)
		},
	}
	return cmd
}

func runRenameEdit(cmd *cobra.Command, opts *RootOptions, args []string) error {
	eng, err := openEngine(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer closeEngine(eng)

	formatter := newFormatter(cmd, opts)
	if err := eng.RenameEdit(cmd.Context(), args[0], args[1], args[2]); err != nil {
		_ = formatter.Error(storeErrorCode(err), err.Error(), nil)
		return wrapStoreError("rename-edit failed", err)
	}
	return formatter.Success(fmt.Sprintf("renamed %s to %s", args[1], args[2]))
}

// RenameNoteOptions holds flags for the rename-note command.
type RenameNoteOptions struct {
	*RootOptions
	Path string
}

// NewRenameNoteCommand creates the rename-note command.
func NewRenameNoteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenameNoteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rename-note <old-note> <new-note>",
		Short: "Move a note's history and manifest to a new note id",
		Long: `Rename a note. The entire history across all branches and the
manifest move to the new id; --path additionally replaces the stored
path. The target note must not already have history.

Example:
  palimpsest rename-note --db ./notes.db old-note new-note --path notes/new.md`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRenameNote(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Path, "path", "", "new path to record in the manifest")

	return cmd
}

func runRenameNote(cmd *cobra.Command, opts *RenameNoteOptions, args []string) error {
	eng, err := openEngine(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeEngine(eng)

	formatter := newFormatter(cmd, opts.RootOptions)
	if err := eng.RenameNote(cmd.Context(), args[0], args[1], opts.Path); err != nil {
		_ = formatter.Error(storeErrorCode(err), err.Error(), nil)
		return wrapStoreError("rename-note failed", err)
	}
	return formatter.Success(fmt.Sprintf("renamed %s to %s", args[0], args[1]))
}
