package engine

import (
	"context"
	"fmt"

	"palimpsest/internal/compress"
	"palimpsest/internal/diff"
	"palimpsest/internal/hash"
	"palimpsest/internal/store"
)

// decodePayload inflates a record's stored payload: the full snapshot
// text for full records, the patch text for diff records, and the raw
// bytes for legacy rows that predate compression.
func decodePayload(rec *store.EditRecord) (string, error) {
	if rec.Storage == store.StorageLegacy {
		return compress.DecompressLegacy(rec.Content), nil
	}
	text, err := compress.Decompress(rec.Content)
	if err != nil {
		return "", &StoreError{
			Code:    ErrCodeSecurity,
			Message: "payload failed to decompress",
			NoteID:  rec.NoteID,
			Branch:  rec.Branch,
			EditID:  rec.EditID,
			Err:     err,
		}
	}
	return text, nil
}

func indexRecords(records []store.EditRecord) map[string]*store.EditRecord {
	byID := make(map[string]*store.EditRecord, len(records))
	for i := range records {
		byID[records[i].EditID] = &records[i]
	}
	return byID
}

// reconstructContent rebuilds the uncompressed content of the record
// editID from an indexed (note, branch) scope.
//
// The walk is iterative: follow previous-edit links backward until a
// full (or legacy) record, then replay the collected patches forward.
// A missing link, a diff with no predecessor, or a cycle is a
// state-consistency fault. A patch that fails to apply is likewise a
// consistency fault; strict matching means it never fuzzy-applies over
// a corrupt base.
func reconstructContent(byID map[string]*store.EditRecord, editID string) (string, error) {
	target, ok := byID[editID]
	if !ok {
		return "", consistencyError("", "", editID, "record not found in scope", nil)
	}

	// Backward walk: chain[0] is the target, chain[len-1] the snapshot.
	var chain []*store.EditRecord
	visited := make(map[string]bool)
	cur := target
	for {
		if visited[cur.EditID] {
			return "", consistencyError(cur.NoteID, cur.Branch, cur.EditID,
				"cycle detected in edit chain", nil)
		}
		visited[cur.EditID] = true
		chain = append(chain, cur)

		if cur.Storage != store.StorageDiff {
			break
		}
		if cur.PreviousEditID == "" {
			return "", consistencyError(cur.NoteID, cur.Branch, cur.EditID,
				"diff record has no predecessor", nil)
		}
		prev, ok := byID[cur.PreviousEditID]
		if !ok {
			return "", consistencyError(cur.NoteID, cur.Branch, cur.EditID,
				fmt.Sprintf("predecessor %s is missing", cur.PreviousEditID), nil)
		}
		cur = prev
	}

	// Forward replay from the snapshot back down to the target.
	content, err := decodePayload(chain[len(chain)-1])
	if err != nil {
		return "", err
	}
	for i := len(chain) - 2; i >= 0; i-- {
		patch, err := decodePayload(chain[i])
		if err != nil {
			return "", err
		}
		content, err = diff.ApplyPatch(content, patch)
		if err != nil {
			return "", consistencyError(chain[i].NoteID, chain[i].Branch, chain[i].EditID,
				"patch failed to apply", err)
		}
	}
	return content, nil
}

// reconstruct loads the scope and rebuilds the content of one record.
// The record pointer is nil when the edit does not exist; that is not
// an error. With verifyDigest set, the rebuilt content is checked
// against the stored digest and a mismatch is an integrity fault.
func (e *Engine) reconstruct(ctx context.Context, noteID, branch, editID string, verifyDigest bool) (string, *store.EditRecord, error) {
	records, err := e.store.ListEdits(ctx, noteID, branch)
	if err != nil {
		return "", nil, fmt.Errorf("load scope: %w", err)
	}

	byID := indexRecords(records)
	target, ok := byID[editID]
	if !ok {
		return "", nil, nil
	}

	content, err := reconstructContent(byID, editID)
	if err != nil {
		return "", nil, err
	}

	if verifyDigest && !hash.Verify(content, target.ContentHash) {
		return "", nil, integrityError(noteID, branch, editID,
			target.ContentHash, hash.Digest(content))
	}
	return content, target, nil
}
