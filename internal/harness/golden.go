package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// ChainSnapshot is the deterministic dump of every chain a scenario
// touched, compared against golden files. Wall-clock timestamps and
// compressed sizes are excluded; everything else is a pure function of
// the scenario's steps.
type ChainSnapshot struct {
	Scenario string       `json:"scenario"`
	Scopes   []ChainScope `json:"scopes"`
}

// ChainScope is the dump of one (note, branch) chain, oldest first.
type ChainScope struct {
	Note    string        `json:"note"`
	Branch  string        `json:"branch"`
	Records []ChainRecord `json:"records"`
}

// ChainRecord is the deterministic subset of one stored record.
type ChainRecord struct {
	EditID           string `json:"editId"`
	Storage          string `json:"storageType"`
	ChainLength      int    `json:"chainLength"`
	BaseEditID       string `json:"baseEditId,omitempty"`
	PreviousEditID   string `json:"previousEditId,omitempty"`
	Seq              int64  `json:"seq"`
	ContentHash      string `json:"contentHash,omitempty"`
	UncompressedSize int64  `json:"uncompressedSize"`
}

// snapshot dumps the final chain state of every touched scope.
func (h *harness) snapshot(ctx context.Context, scenarioName string) (ChainSnapshot, error) {
	snap := ChainSnapshot{Scenario: scenarioName, Scopes: []ChainScope{}}
	for _, scope := range h.result.Scopes {
		edits, err := h.eng.ListEdits(ctx, scope.Note, scope.Branch)
		if err != nil {
			return ChainSnapshot{}, fmt.Errorf("dump scope %s/%s: %w", scope.Note, scope.Branch, err)
		}
		dump := ChainScope{Note: scope.Note, Branch: scope.Branch, Records: []ChainRecord{}}
		for _, e := range edits {
			dump.Records = append(dump.Records, ChainRecord{
				EditID:           e.EditID,
				Storage:          string(e.Storage),
				ChainLength:      e.ChainLength,
				BaseEditID:       e.BaseEditID,
				PreviousEditID:   e.PreviousEditID,
				Seq:              e.Seq,
				ContentHash:      e.ContentHash,
				UncompressedSize: e.UncompressedSize,
			})
		}
		snap.Scopes = append(snap.Scopes, dump)
	}
	return snap, nil
}

// RunWithGolden executes a scenario and compares the final chain dump
// against a golden file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	dump, err := json.MarshalIndent(result.Snapshot, "", "  ")
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, dump)

	return result, nil
}
