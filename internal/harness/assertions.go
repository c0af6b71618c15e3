package harness

import "context"

// assertContent checks one expect_content step: the revision must
// exist and reconstruct to exactly the expected text.
func (h *harness) assertContent(ctx context.Context, index int, s *ExpectContentStep) {
	content, found, err := h.eng.GetEditContent(ctx, s.Note, s.Branch, s.Edit)
	if err != nil {
		h.fail("steps[%d]: expect_content %s: reconstruction failed: %v", index, s.Edit, err)
		return
	}
	if !found {
		h.fail("steps[%d]: expect_content %s: edit does not exist", index, s.Edit)
		return
	}
	if want := s.EffectiveContent(); content != want {
		h.fail("steps[%d]: expect_content %s: content mismatch (got %d bytes, want %d bytes)",
			index, s.Edit, len(content), len(want))
	}
}

// assertChain checks one expect_chain step: the scope must contain
// exactly the listed records, in order, with matching storage type and
// chain bookkeeping.
func (h *harness) assertChain(ctx context.Context, index int, s *ExpectChainStep) {
	edits, err := h.eng.ListEdits(ctx, s.Note, s.Branch)
	if err != nil {
		h.fail("steps[%d]: expect_chain: listing failed: %v", index, err)
		return
	}
	if len(edits) != len(s.Records) {
		h.fail("steps[%d]: expect_chain: got %d records, want %d", index, len(edits), len(s.Records))
		return
	}

	for i, want := range s.Records {
		got := edits[i]
		if got.EditID != want.Edit {
			h.fail("steps[%d]: expect_chain[%d]: edit %s, want %s", index, i, got.EditID, want.Edit)
			continue
		}
		if string(got.Storage) != want.Storage {
			h.fail("steps[%d]: expect_chain[%d] (%s): storage %q, want %q",
				index, i, want.Edit, got.Storage, want.Storage)
		}
		if got.ChainLength != want.ChainLength {
			h.fail("steps[%d]: expect_chain[%d] (%s): chain length %d, want %d",
				index, i, want.Edit, got.ChainLength, want.ChainLength)
		}
		if want.Base != "" && got.BaseEditID != want.Base {
			h.fail("steps[%d]: expect_chain[%d] (%s): base %s, want %s",
				index, i, want.Edit, got.BaseEditID, want.Base)
		}
		if got.PreviousEditID != want.Previous {
			h.fail("steps[%d]: expect_chain[%d] (%s): previous %q, want %q",
				index, i, want.Edit, got.PreviousEditID, want.Previous)
		}
	}
}
