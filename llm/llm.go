// Package llm resolves generation parameters and drives model loading
// for an external generation engine. The engine's numeric work — the
// forward pass, token sampling math, and the encoding of saved session
// state — lives behind the interfaces in this file.
package llm

import (
	"context"
	"errors"
)

// Vocabulary is the slice of the engine's token vocabulary this core
// needs: just the end-of-sequence token.
type Vocabulary interface {
	// EOS returns the token id that signals generation should stop.
	EOS() int32
}

// Engine generates text for a loaded model. Implementations own the
// forward pass and sampling; state in and out is the opaque session
// blob this core shuttles to and from disk.
type Engine interface {
	// Generate feeds prompt into the model, starting from state when
	// non-nil, and streams generated text through out. It returns the
	// updated session state.
	Generate(ctx context.Context, model *Model, params *SamplingParams, prompt string, state []byte, out func(text string)) ([]byte, error)
}

// ErrNoBackend is returned by Open when no model backend was linked
// into this build.
var ErrNoBackend = errors.New("no model backend available in this build")

// ErrNoEngine is returned by DefaultEngine when no generation engine
// was linked into this build.
var ErrNoEngine = errors.New("no generation engine available in this build")

var engine Engine

// RegisterEngine installs the generation engine returned by
// DefaultEngine. Intended to be called from the engine's init; the
// last registration wins.
func RegisterEngine(e Engine) {
	engine = e
}

func DefaultEngine() (Engine, error) {
	if engine == nil {
		return nil, ErrNoEngine
	}
	return engine, nil
}
