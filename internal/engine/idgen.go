package engine

import "github.com/google/uuid"

// EditIDGenerator supplies edit IDs when a save request does not carry
// one. Implemented by UUIDv7Generator (production) and the fixed
// generators in internal/testutil (tests).
type EditIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 edit IDs.
//
// UUIDv7 embeds a timestamp in the most significant bits, so generated
// IDs sort by creation time, which is convenient when eyeballing a timeline.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
