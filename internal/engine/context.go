package engine

import (
	"context"
	"fmt"

	"palimpsest/internal/store"
)

// headState captures what the write path needs to know about the
// current head of a (note, branch) scope before deciding a storage
// format: the head record, its reconstructed content, and the highest
// sequence number observed, which the commit re-validates.
type headState struct {
	head    *store.EditRecord // nil when the scope is empty
	content string            // reconstructed head content, "" when empty
	headSeq int64             // 0 when the scope is empty
	baseID  string            // effective base snapshot of the head
}

func (h *headState) empty() bool {
	return h.head == nil
}

// loadHead selects the head of a scope by highest seq and rebuilds its
// content. Selection never consults wall-clock timestamps.
func (e *Engine) loadHead(ctx context.Context, noteID, branch string) (*headState, error) {
	records, err := e.store.ListEdits(ctx, noteID, branch)
	if err != nil {
		return nil, fmt.Errorf("load scope: %w", err)
	}
	if len(records) == 0 {
		return &headState{}, nil
	}

	byID := indexRecords(records)
	head := &records[0]
	for i := range records {
		if records[i].Seq > head.Seq {
			head = &records[i]
		}
	}

	content, err := reconstructContent(byID, head.EditID)
	if err != nil {
		return nil, err
	}
	return &headState{
		head:    head,
		content: content,
		headSeq: head.Seq,
		baseID:  resolveBase(byID, head),
	}, nil
}

// resolveBase determines the head's effective base snapshot. Records
// written by this engine carry it directly; legacy rows may not, so the
// fallback walks the chain to the snapshot. Reconstruction has already
// validated the walk, so it cannot dead-end here.
func resolveBase(byID map[string]*store.EditRecord, head *store.EditRecord) string {
	if head.BaseEditID != "" {
		return head.BaseEditID
	}
	cur := head
	for cur.Storage == store.StorageDiff && cur.PreviousEditID != "" {
		prev, ok := byID[cur.PreviousEditID]
		if !ok {
			break
		}
		cur = prev
	}
	return cur.EditID
}
