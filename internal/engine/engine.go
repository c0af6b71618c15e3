package engine

import (
	"context"
	"fmt"

	"palimpsest/internal/config"
	"palimpsest/internal/keymutex"
	"palimpsest/internal/store"
)

// Engine is the delta-chain edit store orchestrator.
//
// One Engine owns one open store. All operations take a context and
// are safe for concurrent use; mutual exclusion per note is handled
// internally (see package doc). The lifecycle is explicit: construct
// with New, release with Close. There is no lazily-initialized global
// handle.
type Engine struct {
	store  *store.Store
	locks  *keymutex.KeyedMutex
	clock  *Clock
	idGen  EditIDGenerator
	limits config.Limits
}

// Option configures an Engine.
type Option func(*Engine)

// WithLimits overrides the default engine limits.
func WithLimits(limits config.Limits) Option {
	return func(e *Engine) {
		e.limits = limits
	}
}

// WithIDGenerator overrides the edit-ID generator. Tests inject fixed
// generators for deterministic histories.
func WithIDGenerator(gen EditIDGenerator) Option {
	return func(e *Engine) {
		e.idGen = gen
	}
}

// New creates an Engine over an open store. The logical clock resumes
// from the highest persisted sequence number so reopened databases
// keep a gapless total order.
func New(ctx context.Context, st *store.Store, opts ...Option) (*Engine, error) {
	maxSeq, err := st.MaxSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed clock: %w", err)
	}

	e := &Engine{
		store:  st,
		locks:  keymutex.New(),
		clock:  NewClockAt(maxSeq),
		idGen:  UUIDv7Generator{},
		limits: config.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Close releases the underlying store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Limits returns the engine's active limits.
func (e *Engine) Limits() config.Limits {
	return e.limits
}

// EditInfo is record metadata without the payload, as returned by
// ListEdits for timelines and tooling.
type EditInfo struct {
	NoteID           string            `json:"noteId"`
	Branch           string            `json:"branch"`
	EditID           string            `json:"editId"`
	Storage          store.StorageType `json:"storageType"`
	ContentHash      string            `json:"contentHash,omitempty"`
	BaseEditID       string            `json:"baseEditId,omitempty"`
	PreviousEditID   string            `json:"previousEditId,omitempty"`
	ChainLength      int               `json:"chainLength"`
	Seq              int64             `json:"seq"`
	CreatedAt        int64             `json:"createdAt"`
	Size             int64             `json:"size"`
	UncompressedSize int64             `json:"uncompressedSize"`
}

// ListEdits returns the metadata of every record in a (note, branch)
// scope, oldest first. Faults surface; this is core API, not a UI
// degradation path.
func (e *Engine) ListEdits(ctx context.Context, noteID, branch string) ([]EditInfo, error) {
	noteID, branch, err := e.normalizeScope(noteID, branch)
	if err != nil {
		return nil, err
	}

	records, err := e.store.ListEdits(ctx, noteID, branch)
	if err != nil {
		return nil, fmt.Errorf("list edits: %w", err)
	}

	infos := make([]EditInfo, 0, len(records))
	for _, rec := range records {
		infos = append(infos, toEditInfo(rec))
	}
	return infos, nil
}

func toEditInfo(rec store.EditRecord) EditInfo {
	return EditInfo{
		NoteID:           rec.NoteID,
		Branch:           rec.Branch,
		EditID:           rec.EditID,
		Storage:          rec.Storage,
		ContentHash:      rec.ContentHash,
		BaseEditID:       rec.BaseEditID,
		PreviousEditID:   rec.PreviousEditID,
		ChainLength:      rec.ChainLength,
		Seq:              rec.Seq,
		CreatedAt:        rec.CreatedAt,
		Size:             rec.Size,
		UncompressedSize: rec.UncompressedSize,
	}
}

// DatabaseStats summarizes store state for diagnostics.
type DatabaseStats struct {
	EditCount        int64 `json:"editCount"`
	ManifestCount    int64 `json:"manifestCount"`
	ActiveLockedKeys int   `json:"activeLockedKeys"`
}

// Stats reports record counts and the number of notes with an active
// or queued critical section.
func (e *Engine) Stats(ctx context.Context) (DatabaseStats, error) {
	counts, err := e.store.Counts(ctx)
	if err != nil {
		return DatabaseStats{}, fmt.Errorf("stats: %w", err)
	}
	return DatabaseStats{
		EditCount:        counts.EditCount,
		ManifestCount:    counts.ManifestCount,
		ActiveLockedKeys: e.locks.ActiveKeys(),
	}, nil
}
