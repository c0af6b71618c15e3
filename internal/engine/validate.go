package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// normalizeID canonicalizes a single identifier: trims surrounding
// whitespace and applies Unicode NFC so visually identical IDs entered
// in composed and decomposed form address the same record. Rejects
// empty, oversized, invalid-UTF-8, and control-character identifiers.
func (e *Engine) normalizeID(field, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", validationError(field + " must not be empty")
	}
	if !utf8.ValidString(id) {
		return "", validationError(field + " is not valid UTF-8")
	}
	id = norm.NFC.String(id)
	if len(id) > e.limits.MaxIDBytes {
		return "", validationError(fmt.Sprintf("%s exceeds %d bytes", field, e.limits.MaxIDBytes))
	}
	for _, r := range id {
		if r < 0x20 || r == 0x7f {
			return "", validationError(field + " contains control characters")
		}
	}
	return id, nil
}

// normalizeScope canonicalizes a (note, branch) pair.
func (e *Engine) normalizeScope(noteID, branch string) (string, string, error) {
	noteID, err := e.normalizeID("note id", noteID)
	if err != nil {
		return "", "", err
	}
	branch, err = e.normalizeID("branch", branch)
	if err != nil {
		return "", "", err
	}
	return noteID, branch, nil
}

// validateContent bounds the uncompressed payload. Empty content is
// legal; a revision can be an empty note.
func (e *Engine) validateContent(content string) error {
	if !utf8.ValidString(content) {
		return validationError("content is not valid UTF-8")
	}
	if len(content) > e.limits.MaxContentBytes {
		return validationError(fmt.Sprintf("content exceeds %d bytes", e.limits.MaxContentBytes))
	}
	return nil
}
