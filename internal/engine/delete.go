package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"palimpsest/internal/compress"
	"palimpsest/internal/hash"
	"palimpsest/internal/manifest"
	"palimpsest/internal/store"
)

// DeleteEdit removes one record and heals the chain around it.
//
// Diff children of the deleted record cannot remain patches against a
// missing base, so each is promoted to a full snapshot: its content is
// reconstructed from the pre-deletion scope, recompressed, and
// rewritten with chainLength 0 and previousEditID re-pointed to the
// deleted record's own predecessor. Descendants of a promoted child
// keep their payloads; only their base and chain-length bookkeeping is
// recomputed, breadth-first, relative to the new snapshot. The delete
// and every rewrite commit in one transaction.
//
// Deleting a record that does not exist is a no-op.
func (e *Engine) DeleteEdit(ctx context.Context, noteID, branch, editID string) error {
	noteID, branch, err := e.normalizeScope(noteID, branch)
	if err != nil {
		return err
	}
	editID, err = e.normalizeID("edit id", editID)
	if err != nil {
		return err
	}

	return e.locks.WithLock(noteID, func() error {
		return e.deleteLocked(ctx, noteID, branch, editID)
	})
}

func (e *Engine) deleteLocked(ctx context.Context, noteID, branch, editID string) error {
	records, err := e.store.ListEdits(ctx, noteID, branch)
	if err != nil {
		return fmt.Errorf("load scope: %w", err)
	}
	byID := indexRecords(records)
	target, ok := byID[editID]
	if !ok {
		return nil
	}

	// All reconstruction and recompression happens here, before the
	// transaction, so the commit applies a precomputed batch.
	var rewrites []store.EditRecord
	var metaUpdates []store.EditRecord
	for i := range records {
		child := &records[i]
		if child.PreviousEditID != editID {
			continue
		}
		if child.Storage != store.StorageDiff {
			// A full or legacy child only needs its predecessor link
			// re-pointed past the deleted record.
			repointed := *child
			repointed.PreviousEditID = target.PreviousEditID
			rewrites = append(rewrites, repointed)
			*child = repointed
			continue
		}

		content, err := reconstructContent(byID, child.EditID)
		if err != nil {
			return err
		}
		payload, err := compress.Compress(content)
		if err != nil {
			return securityError("compress promoted child", err)
		}

		promoted := *child
		promoted.Storage = store.StorageFull
		promoted.Content = payload
		promoted.BaseEditID = promoted.EditID
		promoted.PreviousEditID = target.PreviousEditID
		promoted.ChainLength = 0
		promoted.Size = int64(len(payload))
		promoted.UncompressedSize = int64(len(content))
		if promoted.ContentHash == "" {
			// Legacy-origin rows gain a digest on promotion.
			promoted.ContentHash = hash.Digest(content)
		}
		rewrites = append(rewrites, promoted)
		*child = promoted

		updates, err := rebaseDescendants(records, promoted.EditID)
		if err != nil {
			return err
		}
		metaUpdates = append(metaUpdates, updates...)

		slog.Debug("promoted diff child to full snapshot",
			"note", noteID, "branch", branch,
			"child", promoted.EditID, "deleted", editID,
			"rebasedDescendants", len(updates))
	}

	return e.store.InTx(ctx, func(tx *store.Tx) error {
		if err := tx.DeleteEdit(ctx, noteID, branch, editID); err != nil {
			return err
		}
		for _, rec := range rewrites {
			if err := tx.UpdateEdit(ctx, rec); err != nil {
				return err
			}
		}
		for _, rec := range metaUpdates {
			if err := tx.UpdateChainMeta(ctx, rec.NoteID, rec.Branch, rec.EditID,
				rec.BaseEditID, rec.ChainLength); err != nil {
				return err
			}
		}
		return transformManifest(ctx, tx, noteID, func(s manifest.Snapshot) manifest.Snapshot {
			return s.WithoutVersion(branch, editID)
		})
	})
}

// rebaseDescendants walks the diff descendants of a newly promoted
// snapshot breadth-first, recomputing base and chain length. Payloads
// stay untouched; each descendant remains a patch against its
// unchanged immediate predecessor. Full descendants start chains of
// their own and stop the walk.
func rebaseDescendants(records []store.EditRecord, promotedID string) ([]store.EditRecord, error) {
	type frame struct {
		editID      string
		baseID      string
		chainLength int
	}
	queue := []frame{{editID: promotedID, baseID: promotedID, chainLength: 0}}
	visited := map[string]bool{promotedID: true}

	var updates []store.EditRecord
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for i := range records {
			desc := &records[i]
			if desc.PreviousEditID != cur.editID || desc.Storage != store.StorageDiff {
				continue
			}
			if visited[desc.EditID] {
				return nil, consistencyError(desc.NoteID, desc.Branch, desc.EditID,
					"cycle detected while rebasing descendants", nil)
			}
			visited[desc.EditID] = true

			desc.BaseEditID = cur.baseID
			desc.ChainLength = cur.chainLength + 1
			updates = append(updates, *desc)
			queue = append(queue, frame{
				editID:      desc.EditID,
				baseID:      cur.baseID,
				chainLength: desc.ChainLength,
			})
		}
	}
	return updates, nil
}

// DeleteNoteHistory removes every record for a note across all
// branches, along with its manifest, in one transaction.
func (e *Engine) DeleteNoteHistory(ctx context.Context, noteID string) error {
	noteID, err := e.normalizeID("note id", noteID)
	if err != nil {
		return err
	}

	return e.locks.WithLock(noteID, func() error {
		return e.store.InTx(ctx, func(tx *store.Tx) error {
			if err := tx.DeleteNoteEdits(ctx, noteID); err != nil {
				return err
			}
			return tx.DeleteManifest(ctx, noteID)
		})
	})
}

// touchManifest rewrites a note's manifest payload with a fresh
// updated-at stamp inside an existing transaction.
func touchManifest(ctx context.Context, tx *store.Tx, noteID string, payload []byte) error {
	return tx.UpsertManifest(ctx, store.ManifestRow{
		NoteID:    noteID,
		Payload:   payload,
		UpdatedAt: time.Now().UnixMilli(),
	})
}
