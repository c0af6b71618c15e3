package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(noteID, branch, editID string, seq int64) EditRecord {
	return EditRecord{
		NoteID:           noteID,
		Branch:           branch,
		EditID:           editID,
		Storage:          StorageFull,
		Content:          []byte("payload-" + editID),
		ContentHash:      "hash-" + editID,
		BaseEditID:       editID,
		ChainLength:      0,
		Seq:              seq,
		CreatedAt:        time.Now().UnixMilli(),
		Size:             int64(len("payload-" + editID)),
		UncompressedSize: 64,
	}
}

func insertRecord(t *testing.T, s *Store, rec EditRecord) {
	t.Helper()
	err := s.InTx(context.Background(), func(tx *Tx) error {
		return tx.InsertEdit(context.Background(), rec)
	})
	if err != nil {
		t.Fatalf("insert %s failed: %v", rec.EditID, err)
	}
}

func TestInsertAndGetEdit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := testRecord("note", "main", "e1", 1)
	want.PreviousEditID = "e0"
	want.ChainLength = 2
	want.Storage = StorageDiff
	insertRecord(t, s, want)

	got, err := s.GetEdit(ctx, "note", "main", "e1")
	if err != nil {
		t.Fatalf("GetEdit() failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetEdit() returned nil for existing record")
	}
	if got.Storage != StorageDiff || got.PreviousEditID != "e0" || got.ChainLength != 2 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if string(got.Content) != "payload-e1" {
		t.Errorf("content mismatch: %q", got.Content)
	}
}

func TestGetEdit_Missing(t *testing.T) {
	s := openTestStore(t)

	rec, err := s.GetEdit(context.Background(), "no", "such", "record")
	if err != nil {
		t.Fatalf("GetEdit() failed: %v", err)
	}
	if rec != nil {
		t.Errorf("GetEdit() = %+v, want nil", rec)
	}
}

func TestInsertEdit_DuplicateReportsConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := testRecord("note", "main", "e1", 1)
	insertRecord(t, s, first)

	// A second insert on the same identity must not overwrite the
	// record, and must not pretend the new seq was persisted.
	second := testRecord("note", "main", "e1", 2)
	second.Content = []byte("different payload")
	err := s.InTx(ctx, func(tx *Tx) error {
		return tx.InsertEdit(ctx, second)
	})
	if !errors.Is(err, ErrDuplicateEdit) {
		t.Fatalf("duplicate insert error = %v, want ErrDuplicateEdit", err)
	}

	got, err := s.GetEdit(ctx, "note", "main", "e1")
	if err != nil {
		t.Fatalf("GetEdit() failed: %v", err)
	}
	if string(got.Content) != "payload-e1" || got.Seq != 1 {
		t.Errorf("duplicate insert disturbed the original record: %+v", got)
	}
}

func TestListEdits_OrderedBySeq(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Insert out of order; list must come back in seq order.
	insertRecord(t, s, testRecord("note", "main", "e3", 3))
	insertRecord(t, s, testRecord("note", "main", "e1", 1))
	insertRecord(t, s, testRecord("note", "main", "e2", 2))
	insertRecord(t, s, testRecord("note", "draft", "d1", 4))
	insertRecord(t, s, testRecord("other", "main", "x1", 5))

	records, err := s.ListEdits(ctx, "note", "main")
	if err != nil {
		t.Fatalf("ListEdits() failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("ListEdits() returned %d records, want 3", len(records))
	}
	for i, want := range []string{"e1", "e2", "e3"} {
		if records[i].EditID != want {
			t.Errorf("records[%d] = %s, want %s", i, records[i].EditID, want)
		}
	}
}

func TestHeadSeq(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, ok, err := s.HeadSeq(ctx, "note", "main")
	if err != nil {
		t.Fatalf("HeadSeq() failed: %v", err)
	}
	if ok {
		t.Error("HeadSeq() on empty scope should report ok=false")
	}

	insertRecord(t, s, testRecord("note", "main", "e1", 7))
	insertRecord(t, s, testRecord("note", "main", "e2", 9))

	seq, ok, err := s.HeadSeq(ctx, "note", "main")
	if err != nil {
		t.Fatalf("HeadSeq() failed: %v", err)
	}
	if !ok || seq != 9 {
		t.Errorf("HeadSeq() = (%d, %v), want (9, true)", seq, ok)
	}
}

func TestMaxSeq(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seq, err := s.MaxSeq(ctx)
	if err != nil {
		t.Fatalf("MaxSeq() failed: %v", err)
	}
	if seq != 0 {
		t.Errorf("MaxSeq() on empty store = %d, want 0", seq)
	}

	insertRecord(t, s, testRecord("a", "main", "e1", 3))
	insertRecord(t, s, testRecord("b", "main", "e1", 11))

	seq, err = s.MaxSeq(ctx)
	if err != nil {
		t.Fatalf("MaxSeq() failed: %v", err)
	}
	if seq != 11 {
		t.Errorf("MaxSeq() = %d, want 11", seq)
	}
}

func TestUpdateEdit_RewritesPayload(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := testRecord("note", "main", "e1", 1)
	rec.Storage = StorageDiff
	rec.PreviousEditID = "e0"
	rec.ChainLength = 1
	insertRecord(t, s, rec)

	rec.Storage = StorageFull
	rec.Content = []byte("promoted full snapshot")
	rec.BaseEditID = "e1"
	rec.PreviousEditID = ""
	rec.ChainLength = 0
	err := s.InTx(ctx, func(tx *Tx) error {
		return tx.UpdateEdit(ctx, rec)
	})
	if err != nil {
		t.Fatalf("UpdateEdit() failed: %v", err)
	}

	got, err := s.GetEdit(ctx, "note", "main", "e1")
	if err != nil {
		t.Fatalf("GetEdit() failed: %v", err)
	}
	if got.Storage != StorageFull || got.ChainLength != 0 || got.PreviousEditID != "" {
		t.Errorf("promotion not persisted: %+v", got)
	}
	if string(got.Content) != "promoted full snapshot" {
		t.Errorf("payload not rewritten: %q", got.Content)
	}
}

func TestUpdateEdit_MissingRecordFails(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx *Tx) error {
		return tx.UpdateEdit(ctx, testRecord("ghost", "main", "e1", 1))
	})
	if err == nil {
		t.Error("UpdateEdit() of missing record should fail")
	}
}

func TestRenameEdit_RewritesReferences(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	full := testRecord("note", "main", "e1", 1)
	insertRecord(t, s, full)

	child := testRecord("note", "main", "e2", 2)
	child.Storage = StorageDiff
	child.BaseEditID = "e1"
	child.PreviousEditID = "e1"
	child.ChainLength = 1
	insertRecord(t, s, child)

	err := s.InTx(ctx, func(tx *Tx) error {
		return tx.RenameEdit(ctx, "note", "e1", "renamed")
	})
	if err != nil {
		t.Fatalf("RenameEdit() failed: %v", err)
	}

	if rec, _ := s.GetEdit(ctx, "note", "main", "e1"); rec != nil {
		t.Error("old edit ID still present after rename")
	}
	renamed, err := s.GetEdit(ctx, "note", "main", "renamed")
	if err != nil || renamed == nil {
		t.Fatalf("renamed record missing: %v", err)
	}
	got, err := s.GetEdit(ctx, "note", "main", "e2")
	if err != nil {
		t.Fatalf("GetEdit(e2) failed: %v", err)
	}
	if got.PreviousEditID != "renamed" || got.BaseEditID != "renamed" {
		t.Errorf("chain references not rewritten: prev=%s base=%s", got.PreviousEditID, got.BaseEditID)
	}
}

func TestDeleteNoteEdits_ScopedToNote(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	insertRecord(t, s, testRecord("doomed", "main", "e1", 1))
	insertRecord(t, s, testRecord("doomed", "draft", "e2", 2))
	insertRecord(t, s, testRecord("kept", "main", "e1", 3))

	err := s.InTx(ctx, func(tx *Tx) error {
		return tx.DeleteNoteEdits(ctx, "doomed")
	})
	if err != nil {
		t.Fatalf("DeleteNoteEdits() failed: %v", err)
	}

	remaining, err := s.ListNoteEdits(ctx, "doomed")
	if err != nil {
		t.Fatalf("ListNoteEdits() failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("%d records survived note deletion", len(remaining))
	}
	kept, err := s.ListNoteEdits(ctx, "kept")
	if err != nil {
		t.Fatalf("ListNoteEdits(kept) failed: %v", err)
	}
	if len(kept) != 1 {
		t.Errorf("unrelated note lost records: %d", len(kept))
	}
}

func TestManifestRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	row := ManifestRow{NoteID: "note", Payload: []byte(`{"noteId":"note"}`), UpdatedAt: 123}
	err := s.InTx(ctx, func(tx *Tx) error {
		return tx.UpsertManifest(ctx, row)
	})
	if err != nil {
		t.Fatalf("UpsertManifest() failed: %v", err)
	}

	got, err := s.GetManifest(ctx, "note")
	if err != nil {
		t.Fatalf("GetManifest() failed: %v", err)
	}
	if got == nil || string(got.Payload) != `{"noteId":"note"}` {
		t.Fatalf("manifest round trip mismatch: %+v", got)
	}

	// Upsert replaces the whole payload.
	row.Payload = []byte(`{"noteId":"note","path":"a.md"}`)
	err = s.InTx(ctx, func(tx *Tx) error {
		return tx.UpsertManifest(ctx, row)
	})
	if err != nil {
		t.Fatalf("second UpsertManifest() failed: %v", err)
	}
	got, _ = s.GetManifest(ctx, "note")
	if string(got.Payload) != `{"noteId":"note","path":"a.md"}` {
		t.Errorf("upsert did not replace payload: %s", got.Payload)
	}

	missing, err := s.GetManifest(ctx, "ghost")
	if err != nil {
		t.Fatalf("GetManifest(ghost) failed: %v", err)
	}
	if missing != nil {
		t.Error("GetManifest() of missing note should be nil")
	}
}

func TestCounts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	insertRecord(t, s, testRecord("a", "main", "e1", 1))
	insertRecord(t, s, testRecord("a", "main", "e2", 2))
	err := s.InTx(ctx, func(tx *Tx) error {
		return tx.UpsertManifest(ctx, ManifestRow{NoteID: "a", Payload: []byte(`{}`), UpdatedAt: 1})
	})
	if err != nil {
		t.Fatalf("UpsertManifest() failed: %v", err)
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts() failed: %v", err)
	}
	if counts.EditCount != 2 || counts.ManifestCount != 1 {
		t.Errorf("Counts() = %+v, want 2 edits / 1 manifest", counts)
	}
}
