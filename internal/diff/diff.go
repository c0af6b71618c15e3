// Package diff produces and applies textual patches between document
// revisions.
//
// Patches use the diff-match-patch text format with a fixed context
// margin, which is compact enough to make the full-vs-diff storage
// decision meaningful and unambiguous enough to detect a corrupt base.
// Application is strict: a patch that does not cleanly apply is an
// error, never a silent fallback to the base content: a failed apply
// is the primary signal that a chain is corrupt.
package diff

import (
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// patchMargin is the number of context characters kept around each
// hunk. Matches the 3-line-context convention of unified diffs closely
// enough for the size heuristic while keeping patches small.
const patchMargin = 3

// ErrPatchFailed reports a patch that did not cleanly apply to its
// base. Callers treat this as chain corruption.
var ErrPatchFailed = fmt.Errorf("patch did not cleanly apply")

// ErrPatchCreation reports input the patch library cannot handle.
// Callers fall back to snapshot storage.
var ErrPatchCreation = fmt.Errorf("patch creation failed")

func newMatcher() *diffmatchpatch.DiffMatchPatch {
	dmp := diffmatchpatch.New()
	dmp.PatchMargin = patchMargin
	// Exact matching only. Fuzzy application would mask a corrupt or
	// reordered chain by producing plausible-looking wrong content.
	dmp.MatchThreshold = 0
	return dmp
}

// CreatePatch computes a textual patch transforming old into new.
// The patch is self-describing and can be persisted as-is.
//
// go-diff's PatchMake panics with an out-of-range slice index on some
// inputs with many small substitutions. The panic is caught and
// surfaced as ErrPatchCreation so revisions in that input class can
// still be stored as snapshots.
func CreatePatch(oldContent, newContent string) (patchText string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPatchCreation, r)
		}
	}()
	dmp := newMatcher()
	patches := dmp.PatchMake(oldContent, newContent)
	return dmp.PatchToText(patches), nil
}

// ApplyPatch applies a patch produced by CreatePatch to base.
// Returns ErrPatchFailed (wrapped) if any hunk fails to apply or the
// patch text cannot be parsed.
func ApplyPatch(base, patchText string) (string, error) {
	dmp := newMatcher()
	patches, err := dmp.PatchFromText(patchText)
	if err != nil {
		return "", fmt.Errorf("parse patch: %w: %v", ErrPatchFailed, err)
	}

	result, applied := dmp.PatchApply(patches, base)
	for i, ok := range applied {
		if !ok {
			return "", fmt.Errorf("apply hunk %d/%d: %w", i+1, len(applied), ErrPatchFailed)
		}
	}
	return result, nil
}

// EstimateSize measures the UTF-8 byte length of a patch. Used by the
// storage-format decision to compare a patch against what a fresh
// snapshot would cost.
func EstimateSize(patchText string) int {
	return len(patchText)
}
