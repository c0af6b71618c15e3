// Package harness runs YAML conformance scenarios against a real edit
// store engine.
//
// Each scenario executes its steps in order against a fresh database:
// saves, deletions, and renames go through the public engine API, and
// expectation steps assert on reconstructed content and final chain
// shape. Golden files capture a deterministic dump of the chains a
// scenario leaves behind, so structural regressions show up as a diff
// rather than a hunt through assertion failures.
//
// Determinism: scenarios name their own edit IDs, the logical clock
// starts at zero on the fresh database, and the golden dump excludes
// wall-clock timestamps and compressed sizes.
package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"palimpsest/internal/engine"
	"palimpsest/internal/store"
)

// Result is the outcome of running one scenario.
type Result struct {
	// Passed is true when every expectation step held.
	Passed bool

	// Failures lists every expectation that did not hold, in step
	// order.
	Failures []string

	// Scopes are the (note, branch) pairs the scenario touched, in
	// first-mention order. The golden dump covers exactly these.
	Scopes []Scope

	// Snapshot is the final chain dump for golden comparison.
	Snapshot ChainSnapshot
}

// Scope identifies one (note, branch) chain.
type Scope struct {
	Note   string
	Branch string
}

type harness struct {
	eng    *engine.Engine
	result *Result
	seen   map[Scope]bool
}

// Run executes a scenario against a fresh database in a temporary
// directory and returns the result. Operation errors abort the run;
// failed expectations are collected instead.
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "palimpsest-harness-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "scenario.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario store: %w", err)
	}

	ctx := context.Background()
	eng, err := engine.New(ctx, st)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	defer eng.Close()

	h := &harness{
		eng:    eng,
		result: &Result{Passed: true},
		seen:   make(map[Scope]bool),
	}
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step); err != nil {
			return nil, err
		}
	}

	snap, err := h.snapshot(ctx, scenario.Name)
	if err != nil {
		return nil, err
	}
	h.result.Snapshot = snap
	return h.result, nil
}

func (h *harness) executeStep(ctx context.Context, index int, step Step) error {
	switch {
	case step.Save != nil:
		s := step.Save
		h.touch(s.Note, s.Branch)
		_, err := h.eng.SaveEdit(ctx, engine.SaveRequest{
			NoteID:  s.Note,
			Branch:  s.Branch,
			EditID:  s.Edit,
			Content: s.EffectiveContent(),
		})
		if err != nil {
			return fmt.Errorf("steps[%d]: save %s failed: %w", index, s.Edit, err)
		}
		return nil

	case step.Delete != nil:
		s := step.Delete
		h.touch(s.Note, s.Branch)
		if err := h.eng.DeleteEdit(ctx, s.Note, s.Branch, s.Edit); err != nil {
			return fmt.Errorf("steps[%d]: delete %s failed: %w", index, s.Edit, err)
		}
		return nil

	case step.DeleteHistory != nil:
		s := step.DeleteHistory
		if err := h.eng.DeleteNoteHistory(ctx, s.Note); err != nil {
			return fmt.Errorf("steps[%d]: delete_history %s failed: %w", index, s.Note, err)
		}
		return nil

	case step.RenameEdit != nil:
		s := step.RenameEdit
		if err := h.eng.RenameEdit(ctx, s.Note, s.OldEdit, s.NewEdit); err != nil {
			return fmt.Errorf("steps[%d]: rename_edit %s failed: %w", index, s.OldEdit, err)
		}
		return nil

	case step.ExpectContent != nil:
		s := step.ExpectContent
		h.touch(s.Note, s.Branch)
		h.assertContent(ctx, index, s)
		return nil

	case step.ExpectChain != nil:
		s := step.ExpectChain
		h.touch(s.Note, s.Branch)
		h.assertChain(ctx, index, s)
		return nil
	}
	return fmt.Errorf("steps[%d]: empty step", index)
}

func (h *harness) touch(note, branch string) {
	scope := Scope{Note: note, Branch: branch}
	if !h.seen[scope] {
		h.seen[scope] = true
		h.result.Scopes = append(h.result.Scopes, scope)
	}
}

func (h *harness) fail(format string, args ...any) {
	h.result.Passed = false
	h.result.Failures = append(h.result.Failures, fmt.Sprintf(format, args...))
}
