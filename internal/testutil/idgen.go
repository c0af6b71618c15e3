package testutil

import (
	"fmt"
	"sync/atomic"
)

// SequenceIDGenerator generates edit IDs in a deterministic sequence.
//
// This enables deterministic test execution and golden snapshot
// comparison: the same scenario with the same generator produces
// byte-identical chain dumps. IDs look like "edit-0001", "edit-0002".
//
// Thread-safety: safe for concurrent use (atomic counter), though
// concurrent tests then depend on arrival order for which goroutine
// receives which ID.
type SequenceIDGenerator struct {
	prefix string
	n      atomic.Int64
}

// NewSequenceIDGenerator creates a sequence generator. An empty prefix
// defaults to "edit".
func NewSequenceIDGenerator(prefix string) *SequenceIDGenerator {
	if prefix == "" {
		prefix = "edit"
	}
	return &SequenceIDGenerator{prefix: prefix}
}

// Generate returns the next ID in the sequence.
//
// Implements engine.EditIDGenerator.
func (g *SequenceIDGenerator) Generate() string {
	return fmt.Sprintf("%s-%04d", g.prefix, g.n.Add(1))
}

// FixedIDGenerator always returns the same edit ID. Useful for
// idempotency tests where every save must address the same record.
//
// Thread-safety: stateless after construction, safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a fixed generator. An empty id defaults
// to "edit-fixed".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "edit-fixed"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed edit ID.
//
// Implements engine.EditIDGenerator.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
