package diff

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestCreateApplyRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		old  string
		new  string
	}{
		{"append", "hello", "hello world"},
		{"prepend", "world", "hello world"},
		{"middle edit", "one two three\nfour five six\n", "one 2 three\nfour five six\n"},
		{"delete lines", "a\nb\nc\nd\n", "a\nd\n"},
		{"replace everything", "old document", "entirely new text"},
		{"empty to content", "", "first draft"},
		{"content to empty", "last words", ""},
		{"unicode", "Grüße aus Köln", "Grüße aus Berlin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patch, err := CreatePatch(tt.old, tt.new)
			if err != nil {
				t.Fatalf("CreatePatch() failed: %v", err)
			}
			got, err := ApplyPatch(tt.old, patch)
			if err != nil {
				t.Fatalf("ApplyPatch() failed: %v", err)
			}
			if got != tt.new {
				t.Errorf("round trip = %q, want %q", got, tt.new)
			}
		})
	}
}

func TestApplyPatch_WrongBase(t *testing.T) {
	patch, err := CreatePatch(
		"the quick brown fox jumps over the lazy dog",
		"the quick brown fox leaps over the lazy dog",
	)
	if err != nil {
		t.Fatalf("CreatePatch() failed: %v", err)
	}

	_, err = ApplyPatch("completely unrelated base content here", patch)
	if err == nil {
		t.Fatal("applying patch to wrong base should fail")
	}
	if !errors.Is(err, ErrPatchFailed) {
		t.Errorf("error should wrap ErrPatchFailed, got: %v", err)
	}
}

func TestApplyPatch_MalformedPatchText(t *testing.T) {
	_, err := ApplyPatch("base", "@@ this is not a valid patch @@")
	if err == nil {
		t.Fatal("malformed patch text should fail to parse")
	}
	if !errors.Is(err, ErrPatchFailed) {
		t.Errorf("error should wrap ErrPatchFailed, got: %v", err)
	}
}

func TestCreatePatch_Deterministic(t *testing.T) {
	old := "alpha\nbeta\ngamma\n"
	new := "alpha\nBETA\ngamma\n"
	first, err := CreatePatch(old, new)
	if err != nil {
		t.Fatalf("CreatePatch() failed: %v", err)
	}
	second, err := CreatePatch(old, new)
	if err != nil {
		t.Fatalf("CreatePatch() failed: %v", err)
	}
	if first != second {
		t.Error("identical inputs produced different patches")
	}
}

func TestCreatePatch_ManySmallSubstitutions(t *testing.T) {
	// One short substitution per line across a long document. go-diff's
	// PatchMake panics on this input class; CreatePatch must return an
	// error or a working patch, never crash.
	var oldDoc, newDoc strings.Builder
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&oldDoc, "line %03d of the working document\n", i)
		fmt.Fprintf(&newDoc, "row! %03d of the working document\n", i)
	}

	patch, err := CreatePatch(oldDoc.String(), newDoc.String())
	if err != nil {
		if !errors.Is(err, ErrPatchCreation) {
			t.Fatalf("error should wrap ErrPatchCreation, got: %v", err)
		}
		return
	}
	got, err := ApplyPatch(oldDoc.String(), patch)
	if err != nil {
		t.Fatalf("ApplyPatch() failed: %v", err)
	}
	if got != newDoc.String() {
		t.Error("round trip produced wrong content")
	}
}

func TestEstimateSize(t *testing.T) {
	patch, err := CreatePatch("short", "short and longer")
	if err != nil {
		t.Fatalf("CreatePatch() failed: %v", err)
	}
	if EstimateSize(patch) != len(patch) {
		t.Errorf("EstimateSize = %d, want byte length %d", EstimateSize(patch), len(patch))
	}
	// Multi-byte runes count as bytes, not runes.
	if EstimateSize("äöü") != 6 {
		t.Errorf("EstimateSize(\"äöü\") = %d, want 6", EstimateSize("äöü"))
	}
}

func TestSmallEditProducesSmallPatch(t *testing.T) {
	old := strings.Repeat("stable paragraph of text.\n", 200)
	new := old + "one new trailing line\n"
	patch, err := CreatePatch(old, new)
	if err != nil {
		t.Fatalf("CreatePatch() failed: %v", err)
	}
	if EstimateSize(patch) >= len(new) {
		t.Errorf("patch (%d bytes) should be far smaller than content (%d bytes)",
			EstimateSize(patch), len(new))
	}
}
