package engine

import (
	"errors"
	"fmt"
)

// StoreError represents a fault detected by the edit store.
//
// The taxonomy:
//   - Validation: malformed or oversized input, rejected before any I/O
//   - Security: a payload failed to decompress
//   - StateConsistency: broken chain, cycle, patch failed to apply,
//     or optimistic-commit retries exhausted
//   - Integrity: a recomputed digest does not match the stored digest
//
// StoreError includes structured fields for diagnostics. Write paths
// never swallow these; they surface to the caller.
type StoreError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// NoteID, Branch, EditID identify the affected record where known.
	NoteID string
	Branch string
	EditID string

	// ExpectedDigest and ActualDigest are populated for integrity
	// faults so callers can report both values.
	ExpectedDigest string
	ActualDigest   string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeValidation indicates malformed or oversized input.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeSecurity indicates a compression or decompression failure.
	ErrCodeSecurity ErrorCode = "SECURITY"

	// ErrCodeStateConsistency indicates a structurally broken chain or
	// exhausted commit retries.
	ErrCodeStateConsistency ErrorCode = "STATE_CONSISTENCY"

	// ErrCodeIntegrity indicates a content digest mismatch.
	ErrCodeIntegrity ErrorCode = "INTEGRITY"
)

// Error implements the error interface.
func (e *StoreError) Error() string {
	scope := ""
	if e.NoteID != "" {
		scope = fmt.Sprintf(" (note=%s", e.NoteID)
		if e.Branch != "" {
			scope += ", branch=" + e.Branch
		}
		if e.EditID != "" {
			scope += ", edit=" + e.EditID
		}
		scope += ")"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s%s: %v", e.Code, e.Message, scope, e.Err)
	}
	return fmt.Sprintf("%s: %s%s", e.Code, e.Message, scope)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a validation fault.
// Uses errors.As to handle wrapped errors.
func IsValidation(err error) bool { return hasCode(err, ErrCodeValidation) }

// IsSecurity reports whether err is a compression-layer fault.
func IsSecurity(err error) bool { return hasCode(err, ErrCodeSecurity) }

// IsStateConsistency reports whether err is a chain-consistency fault.
func IsStateConsistency(err error) bool { return hasCode(err, ErrCodeStateConsistency) }

// IsIntegrity reports whether err is a digest-mismatch fault.
func IsIntegrity(err error) bool { return hasCode(err, ErrCodeIntegrity) }

func hasCode(err error, code ErrorCode) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

func validationError(message string) *StoreError {
	return &StoreError{Code: ErrCodeValidation, Message: message}
}

func securityError(message string, cause error) *StoreError {
	return &StoreError{Code: ErrCodeSecurity, Message: message, Err: cause}
}

func consistencyError(noteID, branch, editID, message string, cause error) *StoreError {
	return &StoreError{
		Code:    ErrCodeStateConsistency,
		Message: message,
		NoteID:  noteID,
		Branch:  branch,
		EditID:  editID,
		Err:     cause,
	}
}

func integrityError(noteID, branch, editID, expected, actual string) *StoreError {
	return &StoreError{
		Code:           ErrCodeIntegrity,
		Message:        "content digest mismatch",
		NoteID:         noteID,
		Branch:         branch,
		EditID:         editID,
		ExpectedDigest: expected,
		ActualDigest:   actual,
	}
}
