package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const editColumns = `note_id, branch, edit_id, storage_type, content, content_hash,
	base_edit_id, previous_edit_id, chain_length, seq, created_at, size, uncompressed_size`

// GetEdit returns the record for (note, branch, edit), or nil when no
// such record exists.
func (s *Store) GetEdit(ctx context.Context, noteID, branch, editID string) (*EditRecord, error) {
	return getEdit(ctx, s.db, noteID, branch, editID)
}

// GetEdit is the transactional variant of Store.GetEdit.
func (t *Tx) GetEdit(ctx context.Context, noteID, branch, editID string) (*EditRecord, error) {
	return getEdit(ctx, t.q, noteID, branch, editID)
}

func getEdit(ctx context.Context, q querier, noteID, branch, editID string) (*EditRecord, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+editColumns+`
		FROM edit_records
		WHERE note_id = ? AND branch = ? AND edit_id = ?
	`, noteID, branch, editID)

	rec, err := scanEdit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get edit: %w", err)
	}
	return rec, nil
}

// ListEdits returns every record in the (note, branch) scope ordered
// by logical sequence, oldest first.
func (s *Store) ListEdits(ctx context.Context, noteID, branch string) ([]EditRecord, error) {
	return listEdits(ctx, s.db, `
		SELECT `+editColumns+`
		FROM edit_records
		WHERE note_id = ? AND branch = ?
		ORDER BY seq ASC
	`, noteID, branch)
}

// ListEdits is the transactional variant of Store.ListEdits.
func (t *Tx) ListEdits(ctx context.Context, noteID, branch string) ([]EditRecord, error) {
	return listEdits(ctx, t.q, `
		SELECT `+editColumns+`
		FROM edit_records
		WHERE note_id = ? AND branch = ?
		ORDER BY seq ASC
	`, noteID, branch)
}

// ListNoteEdits returns every record for a note across all branches,
// ordered by logical sequence. Used by note-level operations (rename,
// history deletion).
func (s *Store) ListNoteEdits(ctx context.Context, noteID string) ([]EditRecord, error) {
	return listEdits(ctx, s.db, `
		SELECT `+editColumns+`
		FROM edit_records
		WHERE note_id = ?
		ORDER BY seq ASC
	`, noteID)
}

func listEdits(ctx context.Context, q querier, query string, args ...any) ([]EditRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list edits: %w", err)
	}
	defer rows.Close()

	var records []EditRecord
	for rows.Next() {
		rec, err := scanEdit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan edit: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edits: %w", err)
	}
	return records, nil
}

// HeadSeq returns the highest sequence number in the (note, branch)
// scope. ok is false when the scope is empty.
func (s *Store) HeadSeq(ctx context.Context, noteID, branch string) (seq int64, ok bool, err error) {
	return headSeq(ctx, s.db, noteID, branch)
}

// HeadSeq is the transactional variant of Store.HeadSeq. The engine
// calls it inside a commit to re-validate that the head it based its
// format decision on has not advanced.
func (t *Tx) HeadSeq(ctx context.Context, noteID, branch string) (seq int64, ok bool, err error) {
	return headSeq(ctx, t.q, noteID, branch)
}

func headSeq(ctx context.Context, q querier, noteID, branch string) (int64, bool, error) {
	var seq sql.NullInt64
	err := q.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM edit_records WHERE note_id = ? AND branch = ?
	`, noteID, branch).Scan(&seq)
	if err != nil {
		return 0, false, fmt.Errorf("head seq: %w", err)
	}
	return seq.Int64, seq.Valid, nil
}

// MaxSeq returns the highest sequence number across the whole store,
// or zero on an empty store. The engine seeds its logical clock from
// this at open time.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM edit_records`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq.Int64, nil
}

// ErrDuplicateEdit reports an insert that collided with an existing
// record on the identity triple. The existing record is untouched.
var ErrDuplicateEdit = errors.New("edit record already exists")

// InsertEdit inserts a record. A conflict on the identity triple
// leaves the existing record untouched and returns ErrDuplicateEdit,
// so the caller knows its seq and payload were not persisted. Other
// constraint violations return their own errors.
func (t *Tx) InsertEdit(ctx context.Context, rec EditRecord) error {
	res, err := t.q.ExecContext(ctx, `
		INSERT INTO edit_records (`+editColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(note_id, branch, edit_id) DO NOTHING
	`,
		rec.NoteID, rec.Branch, rec.EditID, string(rec.Storage), rec.Content,
		rec.ContentHash, rec.BaseEditID, rec.PreviousEditID, rec.ChainLength,
		rec.Seq, rec.CreatedAt, rec.Size, rec.UncompressedSize,
	)
	if err != nil {
		return fmt.Errorf("insert edit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert edit: %w", err)
	}
	if n == 0 {
		return ErrDuplicateEdit
	}
	return nil
}

// UpdateEdit rewrites an existing record in full. Only deletion
// rebasing uses this: promoting a diff child to a full snapshot is
// the single case where a stored record changes after creation.
func (t *Tx) UpdateEdit(ctx context.Context, rec EditRecord) error {
	res, err := t.q.ExecContext(ctx, `
		UPDATE edit_records
		SET storage_type = ?, content = ?, content_hash = ?, base_edit_id = ?,
			previous_edit_id = ?, chain_length = ?, size = ?, uncompressed_size = ?
		WHERE note_id = ? AND branch = ? AND edit_id = ?
	`,
		string(rec.Storage), rec.Content, rec.ContentHash, rec.BaseEditID,
		rec.PreviousEditID, rec.ChainLength, rec.Size, rec.UncompressedSize,
		rec.NoteID, rec.Branch, rec.EditID,
	)
	if err != nil {
		return fmt.Errorf("update edit: %w", err)
	}
	return requireOneRow(res, "update edit")
}

// UpdateChainMeta rewrites only the bookkeeping fields of a record.
// Used for descendants of a promoted child, whose payloads stay
// untouched.
func (t *Tx) UpdateChainMeta(ctx context.Context, noteID, branch, editID, baseEditID string, chainLength int) error {
	res, err := t.q.ExecContext(ctx, `
		UPDATE edit_records
		SET base_edit_id = ?, chain_length = ?
		WHERE note_id = ? AND branch = ? AND edit_id = ?
	`, baseEditID, chainLength, noteID, branch, editID)
	if err != nil {
		return fmt.Errorf("update chain meta: %w", err)
	}
	return requireOneRow(res, "update chain meta")
}

// DeleteEdit removes a single record.
func (t *Tx) DeleteEdit(ctx context.Context, noteID, branch, editID string) error {
	_, err := t.q.ExecContext(ctx, `
		DELETE FROM edit_records WHERE note_id = ? AND branch = ? AND edit_id = ?
	`, noteID, branch, editID)
	if err != nil {
		return fmt.Errorf("delete edit: %w", err)
	}
	return nil
}

// DeleteNoteEdits removes every record for a note across all branches.
func (t *Tx) DeleteNoteEdits(ctx context.Context, noteID string) error {
	_, err := t.q.ExecContext(ctx, `DELETE FROM edit_records WHERE note_id = ?`, noteID)
	if err != nil {
		return fmt.Errorf("delete note edits: %w", err)
	}
	return nil
}

// RenameEdit rekeys an edit ID across all branches of a note and
// rewrites every chain reference to it. Runs three updates that must
// share one transaction.
func (t *Tx) RenameEdit(ctx context.Context, noteID, oldEditID, newEditID string) error {
	if _, err := t.q.ExecContext(ctx, `
		UPDATE edit_records SET edit_id = ? WHERE note_id = ? AND edit_id = ?
	`, newEditID, noteID, oldEditID); err != nil {
		return fmt.Errorf("rename edit id: %w", err)
	}
	if _, err := t.q.ExecContext(ctx, `
		UPDATE edit_records SET previous_edit_id = ? WHERE note_id = ? AND previous_edit_id = ?
	`, newEditID, noteID, oldEditID); err != nil {
		return fmt.Errorf("rename previous references: %w", err)
	}
	if _, err := t.q.ExecContext(ctx, `
		UPDATE edit_records SET base_edit_id = ? WHERE note_id = ? AND base_edit_id = ?
	`, newEditID, noteID, oldEditID); err != nil {
		return fmt.Errorf("rename base references: %w", err)
	}
	return nil
}

// RenameNoteEdits moves every record of a note to a new note ID.
func (t *Tx) RenameNoteEdits(ctx context.Context, oldNoteID, newNoteID string) error {
	_, err := t.q.ExecContext(ctx, `
		UPDATE edit_records SET note_id = ? WHERE note_id = ?
	`, newNoteID, oldNoteID)
	if err != nil {
		return fmt.Errorf("rename note edits: %w", err)
	}
	return nil
}

func requireOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n != 1 {
		return fmt.Errorf("%s: affected %d rows, want 1", op, n)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanEdit.
type scanner interface {
	Scan(dest ...any) error
}

func scanEdit(s scanner) (*EditRecord, error) {
	var rec EditRecord
	var storage string
	err := s.Scan(
		&rec.NoteID, &rec.Branch, &rec.EditID, &storage, &rec.Content,
		&rec.ContentHash, &rec.BaseEditID, &rec.PreviousEditID, &rec.ChainLength,
		&rec.Seq, &rec.CreatedAt, &rec.Size, &rec.UncompressedSize,
	)
	if err != nil {
		return nil, err
	}
	rec.Storage = StorageType(storage)
	return &rec, nil
}
