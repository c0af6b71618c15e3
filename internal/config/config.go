// Package config loads engine limits from an optional CUE file.
//
// The schema (schema.cue) carries a default for every field, so the
// zero configuration is simply the schema evaluated with no overrides,
// and a user file only names what it changes. CUE validates types and
// ranges before the limits ever reach the engine.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaCUE string

// Limits are the tunable bounds of the edit store engine.
type Limits struct {
	MaxChainLength    int     `json:"maxChainLength"`
	DiffSizeThreshold float64 `json:"diffSizeThreshold"`
	MaxRetries        int     `json:"maxRetries"`
	RetryBackoffMs    int     `json:"retryBackoffMs"`
	MaxContentBytes   int     `json:"maxContentBytes"`
	MaxIDBytes        int     `json:"maxIDBytes"`
}

// RetryBackoff returns the base backoff as a duration.
func (l Limits) RetryBackoff() time.Duration {
	return time.Duration(l.RetryBackoffMs) * time.Millisecond
}

// Default returns the limits with every field at its schema default.
func Default() Limits {
	limits, err := decode(schemaValue(cuecontext.New()))
	if err != nil {
		// The embedded schema is validated by tests; failing to decode
		// it is a build defect, not a runtime condition.
		panic(fmt.Sprintf("config: embedded schema is invalid: %v", err))
	}
	return limits
}

// Load reads a CUE config file and unifies it with the schema. An
// empty path returns the defaults.
func Load(path string) (Limits, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Limits{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse unifies raw CUE source with the schema and decodes the result.
func Parse(data []byte) (Limits, error) {
	ctx := cuecontext.New()

	user := ctx.CompileBytes(data)
	if err := user.Err(); err != nil {
		return Limits{}, fmt.Errorf("compile config: %w", err)
	}

	merged := schemaValue(ctx).Unify(user)
	if err := merged.Validate(cue.Concrete(true)); err != nil {
		return Limits{}, fmt.Errorf("validate config: %w", err)
	}

	return decode(merged)
}

func schemaValue(ctx *cue.Context) cue.Value {
	return ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
}

func decode(v cue.Value) (Limits, error) {
	var limits Limits
	if err := v.Decode(&limits); err != nil {
		return Limits{}, fmt.Errorf("decode config: %w", err)
	}
	return limits, nil
}
