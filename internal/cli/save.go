package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"palimpsest/internal/engine"
)

// SaveOptions holds flags for the save command.
type SaveOptions struct {
	*RootOptions
	EditID       string
	ManifestFile string
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SaveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "save <note> <branch> [file]",
		Short: "Save a revision of a note",
		Long: `Save one revision of a note. Content is read from the given file,
or from stdin when no file is named. The engine decides whether the
revision is stored as a full snapshot or as a patch against the
previous head.

Example:
  palimpsest save --db ./notes.db my-note main draft.md
  echo "hello" | palimpsest save --db ./notes.db my-note main`,
		Args:          cobra.RangeArgs(2, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.EditID, "edit-id", "", "edit id (generated when empty)")
	cmd.Flags().StringVar(&opts.ManifestFile, "manifest", "", "path to a manifest snapshot JSON to commit alongside")

	return cmd
}

func runSave(cmd *cobra.Command, opts *SaveOptions, args []string) error {
	content, err := readContent(cmd.InOrStdin(), args)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read content", err)
	}

	var manifestPayload []byte
	if opts.ManifestFile != "" {
		manifestPayload, err = os.ReadFile(opts.ManifestFile)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read manifest", err)
		}
	}

	eng, err := openEngine(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeEngine(eng)

	res, err := eng.SaveEdit(cmd.Context(), engine.SaveRequest{
		NoteID:          args[0],
		Branch:          args[1],
		EditID:          opts.EditID,
		Content:         content,
		ManifestPayload: manifestPayload,
	})
	if err != nil {
		formatter := newFormatter(cmd, opts.RootOptions)
		_ = formatter.Error(storeErrorCode(err), err.Error(), nil)
		return wrapStoreError("save failed", err)
	}

	formatter := newFormatter(cmd, opts.RootOptions)
	formatter.VerboseLog("read %d bytes for %s/%s", len(content), args[0], args[1])
	if opts.Format == "json" {
		return formatter.Success(res)
	}
	verb := "saved"
	if res.Existed {
		verb = "already saved"
	}
	return formatter.Success(fmt.Sprintf("%s %s as %s (chain length %d, seq %d)",
		verb, res.EditID, res.Storage, res.ChainLength, res.Seq))
}

// readContent reads the revision body from the optional file argument
// or from stdin.
func readContent(stdin io.Reader, args []string) (string, error) {
	if len(args) == 3 {
		data, err := os.ReadFile(args[2])
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
