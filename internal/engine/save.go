package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"palimpsest/internal/compress"
	"palimpsest/internal/diff"
	"palimpsest/internal/hash"
	"palimpsest/internal/manifest"
	"palimpsest/internal/store"
)

// SaveRequest describes one revision to persist.
type SaveRequest struct {
	NoteID string
	Branch string

	// EditID identifies the revision. When empty the engine generates
	// one; callers that supply their own get idempotent saves.
	EditID string

	Content string

	// ManifestPayload, when non-nil, is committed to the manifests
	// table in the same transaction as the edit record.
	ManifestPayload []byte
}

// SaveResult reports how a revision was stored.
type SaveResult struct {
	EditID      string
	Storage     store.StorageType
	ChainLength int
	Seq         int64

	// Existed is true when a record with the same identity already
	// existed and the save was an idempotent no-op.
	Existed bool
}

// errHeadAdvanced aborts a commit whose optimistic head check failed.
// Internal to the retry loop; callers only see it after retries are
// exhausted, wrapped in a state-consistency fault.
var errHeadAdvanced = errors.New("head advanced during commit")

// SaveEdit persists one revision, choosing full-snapshot or diff
// storage against the current head.
//
// CPU-bound work (digest, compression, diffing) runs before the
// per-note lock so the critical section stays I/O-bound. Inside the
// lock the commit re-validates that the head seq it based the format
// decision on is still the head; a concurrent advance aborts the
// transaction and the attempt retries with doubling backoff.
func (e *Engine) SaveEdit(ctx context.Context, req SaveRequest) (SaveResult, error) {
	noteID, branch, err := e.normalizeScope(req.NoteID, req.Branch)
	if err != nil {
		return SaveResult{}, err
	}
	editID := req.EditID
	if editID == "" {
		editID = e.idGen.Generate()
	}
	editID, err = e.normalizeID("edit id", editID)
	if err != nil {
		return SaveResult{}, err
	}
	if err := e.validateContent(req.Content); err != nil {
		return SaveResult{}, err
	}
	if req.ManifestPayload != nil {
		if _, err := manifest.Decode(req.ManifestPayload); err != nil {
			return SaveResult{}, validationError("manifest payload is not a valid snapshot: " + err.Error())
		}
	}

	// Pre-lock CPU work. The full-snapshot payload is always computed;
	// the diff payload depends on the head and is computed per attempt.
	digest := hash.Digest(req.Content)
	fullPayload, err := compress.Compress(req.Content)
	if err != nil {
		return SaveResult{}, securityError("compress content", err)
	}

	var result SaveResult
	lockErr := e.locks.WithLock(noteID, func() error {
		var err error
		result, err = e.saveLocked(ctx, noteID, branch, editID, req.Content,
			digest, fullPayload, req.ManifestPayload)
		return err
	})
	return result, lockErr
}

func (e *Engine) saveLocked(ctx context.Context, noteID, branch, editID, content, digest string, fullPayload, manifestPayload []byte) (SaveResult, error) {
	backoff := e.limits.RetryBackoff()

	for attempt := 0; attempt < e.limits.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, backoff); err != nil {
				return SaveResult{}, err
			}
			backoff *= 2
		}

		existing, err := e.store.GetEdit(ctx, noteID, branch, editID)
		if err != nil {
			return SaveResult{}, err
		}
		if existing != nil {
			return SaveResult{
				EditID:      existing.EditID,
				Storage:     existing.Storage,
				ChainLength: existing.ChainLength,
				Seq:         existing.Seq,
				Existed:     true,
			}, nil
		}

		head, err := e.loadHead(ctx, noteID, branch)
		if err != nil {
			return SaveResult{}, err
		}

		rec := e.buildRecord(noteID, branch, editID, content, digest, fullPayload, head)
		rec.Seq = e.clock.Next()
		rec.CreatedAt = time.Now().UnixMilli()

		err = e.store.InTx(ctx, func(tx *store.Tx) error {
			seq, ok, err := tx.HeadSeq(ctx, noteID, branch)
			if err != nil {
				return err
			}
			if ok != !head.empty() || (ok && seq != head.headSeq) {
				return errHeadAdvanced
			}
			if err := tx.InsertEdit(ctx, rec); err != nil {
				return err
			}
			if manifestPayload != nil {
				return touchManifest(ctx, tx, noteID, manifestPayload)
			}
			// Without a caller-supplied snapshot, refresh the stats of
			// this version in any existing manifest so it never drifts
			// from the edit table. Labels are preserved.
			return transformManifest(ctx, tx, noteID, func(s manifest.Snapshot) manifest.Snapshot {
				return s.WithVersion(manifest.Version{
					ID:               rec.EditID,
					Branch:           branch,
					ContentHash:      rec.ContentHash,
					Size:             rec.Size,
					UncompressedSize: rec.UncompressedSize,
					CreatedAt:        rec.CreatedAt,
				})
			})
		})
		if errors.Is(err, errHeadAdvanced) {
			slog.Debug("save conflicted with concurrent head, retrying",
				"note", noteID, "branch", branch, "attempt", attempt+1)
			continue
		}
		// Another writer (a second process, outside our lock) inserted
		// the same identity between the pre-check and the commit. The
		// next attempt finds the record and reports it as existing.
		if errors.Is(err, store.ErrDuplicateEdit) {
			slog.Debug("save lost an insert race, rechecking",
				"note", noteID, "branch", branch, "edit", editID, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return SaveResult{}, fmt.Errorf("commit edit: %w", err)
		}

		return SaveResult{
			EditID:      rec.EditID,
			Storage:     rec.Storage,
			ChainLength: rec.ChainLength,
			Seq:         rec.Seq,
		}, nil
	}

	return SaveResult{}, consistencyError(noteID, branch, editID,
		fmt.Sprintf("commit retries exhausted after %d attempts", e.limits.MaxRetries), nil)
}

// buildRecord runs the storage-format decision against the current
// head and assembles the record, minus seq and timestamp.
//
// Policy: no head, or a head chain at the configured bound, forces a
// full snapshot. Otherwise a patch against the head is stored when it
// is smaller than the threshold fraction of the new content; a patch
// that saves too little is discarded for a fresh snapshot, which also
// resets the chain.
func (e *Engine) buildRecord(noteID, branch, editID, content, digest string, fullPayload []byte, head *headState) store.EditRecord {
	rec := store.EditRecord{
		NoteID:           noteID,
		Branch:           branch,
		EditID:           editID,
		Storage:          store.StorageFull,
		Content:          fullPayload,
		ContentHash:      digest,
		BaseEditID:       editID,
		ChainLength:      0,
		Size:             int64(len(fullPayload)),
		UncompressedSize: int64(len(content)),
	}
	if head.empty() {
		return rec
	}

	// A full record after an existing head still links to it so
	// deletion rebasing can preserve temporal ordering.
	rec.PreviousEditID = head.head.EditID

	// A diff child would carry chainLength head+1; force a snapshot
	// before that reaches the bound so no stored record ever carries a
	// chain length at or above it.
	if head.head.ChainLength+1 >= e.limits.MaxChainLength {
		return rec
	}

	patch, err := diff.CreatePatch(head.content, content)
	if err != nil {
		// Inputs the patch library cannot handle are stored as
		// snapshots, same as patches that save too little.
		slog.Warn("patch creation failed, storing full snapshot",
			"note", noteID, "edit", editID, "error", err)
		return rec
	}
	threshold := float64(len(content)) * e.limits.DiffSizeThreshold
	if float64(diff.EstimateSize(patch)) >= threshold {
		return rec
	}

	patchPayload, err := compress.Compress(patch)
	if err != nil {
		// Deflate over an in-memory buffer does not fail in practice;
		// fall back to the snapshot rather than failing the save.
		slog.Warn("patch compression failed, storing full snapshot",
			"note", noteID, "edit", editID, "error", err)
		return rec
	}

	rec.Storage = store.StorageDiff
	rec.Content = patchPayload
	rec.BaseEditID = head.baseID
	rec.ChainLength = head.head.ChainLength + 1
	rec.Size = int64(len(patchPayload))
	return rec
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
