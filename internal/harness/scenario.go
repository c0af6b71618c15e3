package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario for the edit store.
// A scenario executes a sequence of store operations against a fresh
// database and asserts on reconstructed content and final chain shape.
type Scenario struct {
	// Name uniquely identifies this scenario. Doubles as the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Steps are executed in order. Each step names exactly one
	// operation or expectation.
	Steps []Step `yaml:"steps"`
}

// Step is one scenario step. Exactly one field must be set.
type Step struct {
	Save          *SaveStep          `yaml:"save,omitempty"`
	Delete        *DeleteStep        `yaml:"delete,omitempty"`
	DeleteHistory *DeleteHistoryStep `yaml:"delete_history,omitempty"`
	RenameEdit    *RenameEditStep    `yaml:"rename_edit,omitempty"`
	ExpectContent *ExpectContentStep `yaml:"expect_content,omitempty"`
	ExpectChain   *ExpectChainStep   `yaml:"expect_chain,omitempty"`
}

// SaveStep persists one revision. The effective content is
// strings.Repeat(Content, max(Repeat, 1)) + Append, which keeps large
// documents expressible in a few YAML lines.
type SaveStep struct {
	Note    string `yaml:"note"`
	Branch  string `yaml:"branch"`
	Edit    string `yaml:"edit"`
	Content string `yaml:"content"`
	Repeat  int    `yaml:"repeat,omitempty"`
	Append  string `yaml:"append,omitempty"`
}

// EffectiveContent expands the content shorthand.
func (s *SaveStep) EffectiveContent() string {
	return expandContent(s.Content, s.Repeat, s.Append)
}

// DeleteStep removes one record, exercising chain rebasing.
type DeleteStep struct {
	Note   string `yaml:"note"`
	Branch string `yaml:"branch"`
	Edit   string `yaml:"edit"`
}

// DeleteHistoryStep removes a note's entire history.
type DeleteHistoryStep struct {
	Note string `yaml:"note"`
}

// RenameEditStep rekeys an edit across all branches of a note.
type RenameEditStep struct {
	Note    string `yaml:"note"`
	OldEdit string `yaml:"old_edit"`
	NewEdit string `yaml:"new_edit"`
}

// ExpectContentStep asserts the reconstructed content of one revision,
// using the same content shorthand as SaveStep.
type ExpectContentStep struct {
	Note    string `yaml:"note"`
	Branch  string `yaml:"branch"`
	Edit    string `yaml:"edit"`
	Content string `yaml:"content"`
	Repeat  int    `yaml:"repeat,omitempty"`
	Append  string `yaml:"append,omitempty"`
}

// EffectiveContent expands the content shorthand.
func (s *ExpectContentStep) EffectiveContent() string {
	return expandContent(s.Content, s.Repeat, s.Append)
}

// ExpectChainStep asserts the full chain shape of a scope, oldest
// first. Every stored record must be listed.
type ExpectChainStep struct {
	Note    string         `yaml:"note"`
	Branch  string         `yaml:"branch"`
	Records []ExpectRecord `yaml:"records"`
}

// ExpectRecord is the expected shape of one stored record.
type ExpectRecord struct {
	Edit        string `yaml:"edit"`
	Storage     string `yaml:"storage"` // "full" or "diff"
	ChainLength int    `yaml:"chain_length"`
	Base        string `yaml:"base,omitempty"`
	Previous    string `yaml:"previous,omitempty"`
}

func expandContent(content string, repeat int, appendix string) string {
	if repeat < 1 {
		repeat = 1
	}
	return strings.Repeat(content, repeat) + appendix
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so a typo in a step name fails loudly instead of
// silently skipping the step.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and that
// every step names exactly one operation.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		set := 0
		if step.Save != nil {
			set++
			if step.Save.Note == "" || step.Save.Branch == "" || step.Save.Edit == "" {
				return fmt.Errorf("steps[%d].save: note, branch, and edit are required", i)
			}
		}
		if step.Delete != nil {
			set++
			if step.Delete.Note == "" || step.Delete.Branch == "" || step.Delete.Edit == "" {
				return fmt.Errorf("steps[%d].delete: note, branch, and edit are required", i)
			}
		}
		if step.DeleteHistory != nil {
			set++
			if step.DeleteHistory.Note == "" {
				return fmt.Errorf("steps[%d].delete_history: note is required", i)
			}
		}
		if step.RenameEdit != nil {
			set++
			if step.RenameEdit.Note == "" || step.RenameEdit.OldEdit == "" || step.RenameEdit.NewEdit == "" {
				return fmt.Errorf("steps[%d].rename_edit: note, old_edit, and new_edit are required", i)
			}
		}
		if step.ExpectContent != nil {
			set++
			if step.ExpectContent.Note == "" || step.ExpectContent.Branch == "" || step.ExpectContent.Edit == "" {
				return fmt.Errorf("steps[%d].expect_content: note, branch, and edit are required", i)
			}
		}
		if step.ExpectChain != nil {
			set++
			if step.ExpectChain.Note == "" || step.ExpectChain.Branch == "" {
				return fmt.Errorf("steps[%d].expect_chain: note and branch are required", i)
			}
			if len(step.ExpectChain.Records) == 0 {
				return fmt.Errorf("steps[%d].expect_chain: records list must be non-empty", i)
			}
		}
		if set != 1 {
			return fmt.Errorf("steps[%d]: exactly one operation per step, got %d", i, set)
		}
	}
	return nil
}
