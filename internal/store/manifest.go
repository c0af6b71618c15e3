package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetManifest returns the manifest row for a note, or nil when the
// note has none.
func (s *Store) GetManifest(ctx context.Context, noteID string) (*ManifestRow, error) {
	return getManifest(ctx, s.db, noteID)
}

// GetManifest is the transactional variant of Store.GetManifest.
func (t *Tx) GetManifest(ctx context.Context, noteID string) (*ManifestRow, error) {
	return getManifest(ctx, t.q, noteID)
}

func getManifest(ctx context.Context, q querier, noteID string) (*ManifestRow, error) {
	var row ManifestRow
	err := q.QueryRowContext(ctx, `
		SELECT note_id, payload, updated_at FROM manifests WHERE note_id = ?
	`, noteID).Scan(&row.NoteID, &row.Payload, &row.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get manifest: %w", err)
	}
	return &row, nil
}

// UpsertManifest writes the manifest row for a note, replacing any
// existing payload. Manifests are whole-value snapshots; partial
// updates never happen at this layer.
func (t *Tx) UpsertManifest(ctx context.Context, row ManifestRow) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO manifests (note_id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(note_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, row.NoteID, row.Payload, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert manifest: %w", err)
	}
	return nil
}

// DeleteManifest removes the manifest row for a note.
func (t *Tx) DeleteManifest(ctx context.Context, noteID string) error {
	_, err := t.q.ExecContext(ctx, `DELETE FROM manifests WHERE note_id = ?`, noteID)
	if err != nil {
		return fmt.Errorf("delete manifest: %w", err)
	}
	return nil
}

// Counts reports table sizes for database stats.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM edit_records`).Scan(&c.EditCount); err != nil {
		return Counts{}, fmt.Errorf("count edits: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM manifests`).Scan(&c.ManifestCount); err != nil {
		return Counts{}, fmt.Errorf("count manifests: %w", err)
	}
	return c, nil
}
