package cli

import (
	"context"
	"log/slog"
	"os"

	"palimpsest/internal/config"
	"palimpsest/internal/engine"
	"palimpsest/internal/store"
)

// setupLogging installs the default text handler on stderr, honoring
// the verbose flag.
func setupLogging(verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// openEngine opens the database named by --db and constructs an engine
// with the limits from --config (or the compiled-in defaults).
func openEngine(ctx context.Context, opts *RootOptions) (*engine.Engine, error) {
	setupLogging(opts.Verbose)

	if opts.Database == "" {
		return nil, NewExitError(ExitCommandError, "--db is required")
	}

	limits, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	slog.Debug("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	eng, err := engine.New(ctx, st, engine.WithLimits(limits))
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to initialize engine", err)
	}
	return eng, nil
}

// closeEngine releases the engine, logging rather than failing on a
// close error so a command's own result wins.
func closeEngine(eng *engine.Engine) {
	if err := eng.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
