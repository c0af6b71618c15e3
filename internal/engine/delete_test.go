package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"palimpsest/internal/store"
)

func TestDeleteEdit_PromotesDiffChild(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	// Force the second save onto the diff path with a head large
	// enough that the append patch clears the size threshold.
	base := largeDoc(100)
	a, err := eng.SaveEdit(ctx, SaveRequest{NoteID: "note-1", Branch: "main", Content: base})
	require.NoError(t, err)
	b, err := eng.SaveEdit(ctx, SaveRequest{NoteID: "note-1", Branch: "main", Content: base + "world\n"})
	require.NoError(t, err)
	require.Equal(t, store.StorageDiff, b.Storage)

	require.NoError(t, eng.DeleteEdit(ctx, "note-1", "main", a.EditID))

	edits, err := eng.ListEdits(ctx, "note-1", "main")
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t, store.StorageFull, edits[0].Storage)
	assert.Equal(t, 0, edits[0].ChainLength)
	assert.Equal(t, edits[0].EditID, edits[0].BaseEditID)
	assert.Empty(t, edits[0].PreviousEditID)

	content, found, err := eng.GetEditContent(ctx, "note-1", "main", b.EditID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, base+"world\n", content)
}

func TestDeleteEdit_InteriorPreservesReachability(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	content := largeDoc(100)
	contents := make(map[string]string)
	var ids []string
	for i := 0; i < 6; i++ {
		content += fmt.Sprintf("revision %d\n", i)
		res, err := eng.SaveEdit(ctx, SaveRequest{NoteID: "note-1", Branch: "main", Content: content})
		require.NoError(t, err)
		ids = append(ids, res.EditID)
		contents[res.EditID] = content
	}

	// Delete an interior record; its diff child is promoted and every
	// descendant rebased onto the promoted snapshot.
	require.NoError(t, eng.DeleteEdit(ctx, "note-1", "main", ids[2]))

	for i, id := range ids {
		if i == 2 {
			continue
		}
		got, found, err := eng.GetEditContent(ctx, "note-1", "main", id)
		require.NoError(t, err)
		require.True(t, found, "edit %s lost after deletion", id)
		assert.Equal(t, contents[id], got)
	}

	// Chain bookkeeping is consistent with the promoted snapshot.
	edits, err := eng.ListEdits(ctx, "note-1", "main")
	require.NoError(t, err)
	byID := make(map[string]EditInfo)
	for _, e := range edits {
		byID[e.EditID] = e
	}
	promoted := byID[ids[3]]
	assert.Equal(t, store.StorageFull, promoted.Storage)
	assert.Equal(t, 0, promoted.ChainLength)
	assert.Equal(t, ids[1], promoted.PreviousEditID)
	for _, id := range ids[4:] {
		desc := byID[id]
		assert.Equal(t, store.StorageDiff, desc.Storage)
		assert.Equal(t, ids[3], desc.BaseEditID)
	}
}

func TestDeleteEdit_TailIsPlainRemoval(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	base := largeDoc(100)
	a, err := eng.SaveEdit(ctx, SaveRequest{NoteID: "note-1", Branch: "main", Content: base})
	require.NoError(t, err)
	b, err := eng.SaveEdit(ctx, SaveRequest{NoteID: "note-1", Branch: "main", Content: base + "tail\n"})
	require.NoError(t, err)

	require.NoError(t, eng.DeleteEdit(ctx, "note-1", "main", b.EditID))

	edits, err := eng.ListEdits(ctx, "note-1", "main")
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t, a.EditID, edits[0].EditID)
	assert.Equal(t, store.StorageFull, edits[0].Storage)

	content, found, err := eng.GetEditContent(ctx, "note-1", "main", a.EditID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, base, content)
}

func TestDeleteEdit_MissingIsNoOp(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.SaveEdit(ctx, SaveRequest{NoteID: "note-1", Branch: "main", Content: "hello"})
	require.NoError(t, err)

	require.NoError(t, eng.DeleteEdit(ctx, "note-1", "main", "no-such-edit"))

	edits, err := eng.ListEdits(ctx, "note-1", "main")
	require.NoError(t, err)
	assert.Len(t, edits, 1)
}

func TestDeleteNoteHistory(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	for _, branch := range []string{"main", "draft"} {
		for i := 0; i < 3; i++ {
			_, err := eng.SaveEdit(ctx, SaveRequest{
				NoteID: "note-1", Branch: branch, Content: fmt.Sprintf("%s %d", branch, i),
			})
			require.NoError(t, err)
		}
	}
	_, err := eng.SaveEdit(ctx, SaveRequest{NoteID: "note-2", Branch: "main", Content: "other note"})
	require.NoError(t, err)
	require.NoError(t, eng.SaveEditManifest(ctx, "note-1", []byte(`{"noteId":"note-1","path":"a.md"}`)))

	require.NoError(t, eng.DeleteNoteHistory(ctx, "note-1"))

	for _, branch := range []string{"main", "draft"} {
		edits, err := eng.ListEdits(ctx, "note-1", branch)
		require.NoError(t, err)
		assert.Empty(t, edits)
	}
	_, found, err := eng.GetEditManifest(ctx, "note-1")
	require.NoError(t, err)
	assert.False(t, found)

	// Unrelated notes are untouched.
	edits, err := eng.ListEdits(ctx, "note-2", "main")
	require.NoError(t, err)
	assert.Len(t, edits, 1)
}
