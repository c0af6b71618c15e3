package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execCLI runs the CLI with args, feeding stdin, and returns stdout.
func execCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_SaveCatRoundTrip(t *testing.T) {
	db := filepath.Join(t.TempDir(), "notes.db")

	out, err := execCLI(t, "hello world\n",
		"save", "--db", db, "my-note", "main", "--edit-id", "edit-a")
	require.NoError(t, err)
	assert.Contains(t, out, "edit-a")
	assert.Contains(t, out, "full")

	out, err = execCLI(t, "", "cat", "--db", db, "my-note", "main", "edit-a")
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", out)
}

func TestCLI_SaveFromFile(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "notes.db")
	file := filepath.Join(dir, "draft.md")
	require.NoError(t, os.WriteFile(file, []byte("from a file"), 0o644))

	_, err := execCLI(t, "", "save", "--db", db, "my-note", "main", file, "--edit-id", "edit-a")
	require.NoError(t, err)

	out, err := execCLI(t, "", "cat", "--db", db, "my-note", "main", "edit-a")
	require.NoError(t, err)
	assert.Equal(t, "from a file", out)
}

func TestCLI_SaveJSONOutput(t *testing.T) {
	db := filepath.Join(t.TempDir(), "notes.db")

	out, err := execCLI(t, "hello",
		"save", "--db", db, "--format", "json", "my-note", "main", "--edit-id", "edit-a")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "edit-a", data["EditID"])
}

func TestCLI_VerboseDiagnosticsGoToStderr(t *testing.T) {
	db := filepath.Join(t.TempDir(), "notes.db")

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader("hello\n"))
	cmd.SetArgs([]string{"save", "--db", db, "--format", "json", "--verbose",
		"my-note", "main", "--edit-id", "edit-a"})
	require.NoError(t, cmd.Execute())

	// Diagnostics must not corrupt the JSON on stdout.
	assert.Contains(t, errOut.String(), "read 6 bytes for my-note/main")
	var resp CLIResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCLI_LogTimeline(t *testing.T) {
	db := filepath.Join(t.TempDir(), "notes.db")

	for _, id := range []string{"edit-a", "edit-b"} {
		_, err := execCLI(t, "content for "+id,
			"save", "--db", db, "my-note", "main", "--edit-id", id)
		require.NoError(t, err)
	}

	out, err := execCLI(t, "", "log", "--db", db, "my-note", "main")
	require.NoError(t, err)
	assert.Contains(t, out, "edit-a")
	assert.Contains(t, out, "edit-b")
	assert.Contains(t, out, "SEQ")

	out, err = execCLI(t, "", "log", "--db", db, "my-note", "other-branch")
	require.NoError(t, err)
	assert.Contains(t, out, "no revisions")
}

func TestCLI_VerifyCleanBranch(t *testing.T) {
	db := filepath.Join(t.TempDir(), "notes.db")

	_, err := execCLI(t, "hello", "save", "--db", db, "my-note", "main", "--edit-id", "edit-a")
	require.NoError(t, err)

	out, err := execCLI(t, "", "verify", "--db", db, "my-note", "main")
	require.NoError(t, err)
	assert.Contains(t, out, "edit-a")
	assert.Contains(t, out, "true")
}

func TestCLI_DeleteAndStats(t *testing.T) {
	db := filepath.Join(t.TempDir(), "notes.db")

	_, err := execCLI(t, "hello", "save", "--db", db, "my-note", "main", "--edit-id", "edit-a")
	require.NoError(t, err)
	_, err = execCLI(t, "world", "save", "--db", db, "my-note", "main", "--edit-id", "edit-b")
	require.NoError(t, err)

	_, err = execCLI(t, "", "delete", "--db", db, "my-note", "main", "edit-a")
	require.NoError(t, err)

	out, err := execCLI(t, "", "stats", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "edits: 1")
}

func TestCLI_RenameEdit(t *testing.T) {
	db := filepath.Join(t.TempDir(), "notes.db")

	_, err := execCLI(t, "hello", "save", "--db", db, "my-note", "main", "--edit-id", "edit-a")
	require.NoError(t, err)

	_, err = execCLI(t, "", "rename-edit", "--db", db, "my-note", "edit-a", "edit-z")
	require.NoError(t, err)

	out, err := execCLI(t, "", "cat", "--db", db, "my-note", "main", "edit-z")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestCLI_MissingDatabaseFlag(t *testing.T) {
	_, err := execCLI(t, "", "stats")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCLI_CatMissingEdit(t *testing.T) {
	db := filepath.Join(t.TempDir(), "notes.db")

	_, err := execCLI(t, "hello", "save", "--db", db, "my-note", "main", "--edit-id", "edit-a")
	require.NoError(t, err)

	_, err = execCLI(t, "", "cat", "--db", db, "my-note", "main", "no-such-edit")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
