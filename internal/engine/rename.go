package engine

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"palimpsest/internal/manifest"
	"palimpsest/internal/store"
)

// RenameEdit rekeys an edit ID across all branches of a note. Every
// chain reference to the old ID (previous and base links) and the
// manifest's version entry are rewritten in the same transaction.
// The new ID must not already be in use anywhere in the note.
func (e *Engine) RenameEdit(ctx context.Context, noteID, oldEditID, newEditID string) error {
	noteID, err := e.normalizeID("note id", noteID)
	if err != nil {
		return err
	}
	oldEditID, err = e.normalizeID("old edit id", oldEditID)
	if err != nil {
		return err
	}
	newEditID, err = e.normalizeID("new edit id", newEditID)
	if err != nil {
		return err
	}
	if oldEditID == newEditID {
		return nil
	}

	return e.locks.WithLock(noteID, func() error {
		records, err := e.store.ListNoteEdits(ctx, noteID)
		if err != nil {
			return fmt.Errorf("load note: %w", err)
		}
		found := false
		for _, rec := range records {
			if rec.EditID == newEditID {
				return validationError(fmt.Sprintf("edit id %s is already in use", newEditID))
			}
			if rec.EditID == oldEditID {
				found = true
			}
		}
		if !found {
			return nil
		}

		return e.store.InTx(ctx, func(tx *store.Tx) error {
			if err := tx.RenameEdit(ctx, noteID, oldEditID, newEditID); err != nil {
				return err
			}
			return transformManifest(ctx, tx, noteID, func(s manifest.Snapshot) manifest.Snapshot {
				return s.WithVersionRenamed(oldEditID, newEditID)
			})
		})
	})
}

// RenameNote moves a note's entire history and manifest to a new note
// ID, optionally replacing the stored path. The target must not
// already have history.
func (e *Engine) RenameNote(ctx context.Context, oldNoteID, newNoteID, newPath string) error {
	oldNoteID, err := e.normalizeID("old note id", oldNoteID)
	if err != nil {
		return err
	}
	newNoteID, err = e.normalizeID("new note id", newNoteID)
	if err != nil {
		return err
	}
	newPath, err = e.normalizePath(newPath)
	if err != nil {
		return err
	}
	if oldNoteID == newNoteID {
		return e.UpdateNotePath(ctx, oldNoteID, newPath)
	}

	// Both critical sections, in stable order, so two renames crossing
	// each other cannot deadlock.
	first, second := oldNoteID, newNoteID
	if first > second {
		first, second = second, first
	}
	e.locks.Lock(first)
	defer e.locks.Unlock(first)
	e.locks.Lock(second)
	defer e.locks.Unlock(second)

	existing, err := e.store.ListNoteEdits(ctx, newNoteID)
	if err != nil {
		return fmt.Errorf("load target note: %w", err)
	}
	if len(existing) > 0 {
		return validationError(fmt.Sprintf("note %s already has history", newNoteID))
	}

	return e.store.InTx(ctx, func(tx *store.Tx) error {
		if err := tx.RenameNoteEdits(ctx, oldNoteID, newNoteID); err != nil {
			return err
		}

		row, err := tx.GetManifest(ctx, oldNoteID)
		if err != nil {
			return err
		}
		if row == nil {
			return nil
		}
		snap, err := manifest.Decode(row.Payload)
		if err != nil {
			return err
		}
		snap = snap.WithNoteID(newNoteID)
		if newPath != "" {
			snap = snap.WithPath(newPath)
		}
		payload, err := snap.Encode()
		if err != nil {
			return err
		}
		if err := tx.DeleteManifest(ctx, oldNoteID); err != nil {
			return err
		}
		return touchManifest(ctx, tx, newNoteID, payload)
	})
}

// UpdateNotePath rewrites the path recorded in a note's manifest,
// creating a minimal manifest when the note has none yet.
func (e *Engine) UpdateNotePath(ctx context.Context, noteID, newPath string) error {
	noteID, err := e.normalizeID("note id", noteID)
	if err != nil {
		return err
	}
	newPath, err = e.normalizePath(newPath)
	if err != nil {
		return err
	}

	return e.locks.WithLock(noteID, func() error {
		return e.store.InTx(ctx, func(tx *store.Tx) error {
			row, err := tx.GetManifest(ctx, noteID)
			if err != nil {
				return err
			}
			snap := manifest.Snapshot{NoteID: noteID}
			if row != nil {
				if snap, err = manifest.Decode(row.Payload); err != nil {
					return err
				}
			}
			payload, err := snap.WithPath(newPath).Encode()
			if err != nil {
				return err
			}
			return touchManifest(ctx, tx, noteID, payload)
		})
	})
}

// SaveEditManifest replaces a note's manifest snapshot wholesale. The
// payload must decode as a snapshot; beyond that it is caller-owned.
func (e *Engine) SaveEditManifest(ctx context.Context, noteID string, payload []byte) error {
	noteID, err := e.normalizeID("note id", noteID)
	if err != nil {
		return err
	}
	if _, err := manifest.Decode(payload); err != nil {
		return validationError("manifest payload is not a valid snapshot: " + err.Error())
	}

	return e.locks.WithLock(noteID, func() error {
		return e.store.InTx(ctx, func(tx *store.Tx) error {
			return touchManifest(ctx, tx, noteID, payload)
		})
	})
}

// GetEditManifest returns a note's manifest payload. found is false
// when the note has none.
func (e *Engine) GetEditManifest(ctx context.Context, noteID string) ([]byte, bool, error) {
	noteID, err := e.normalizeID("note id", noteID)
	if err != nil {
		return nil, false, err
	}
	row, err := e.store.GetManifest(ctx, noteID)
	if err != nil {
		return nil, false, err
	}
	if row == nil {
		return nil, false, nil
	}
	return row.Payload, true, nil
}

// transformManifest applies a snapshot transform to a note's manifest
// inside an existing transaction. Notes without a manifest are left
// without one.
func transformManifest(ctx context.Context, tx *store.Tx, noteID string, fn func(manifest.Snapshot) manifest.Snapshot) error {
	row, err := tx.GetManifest(ctx, noteID)
	if err != nil {
		return err
	}
	if row == nil {
		return nil
	}
	snap, err := manifest.Decode(row.Payload)
	if err != nil {
		return err
	}
	payload, err := fn(snap).Encode()
	if err != nil {
		return err
	}
	return touchManifest(ctx, tx, noteID, payload)
}

// normalizePath validates a manifest path. Unlike identifiers, paths
// may be empty (clearing the stored path) and may contain separators.
func (e *Engine) normalizePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if !utf8.ValidString(path) {
		return "", validationError("path is not valid UTF-8")
	}
	if len(path) > e.limits.MaxIDBytes {
		return "", validationError(fmt.Sprintf("path exceeds %d bytes", e.limits.MaxIDBytes))
	}
	return path, nil
}
