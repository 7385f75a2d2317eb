// Package api defines the request and option types shared between the
// command surface and the resolution core.
package api

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// GenerateRequest is one invocation of the generator as supplied by
// the user, before any resolution has happened.
type GenerateRequest struct {
	// Model is the path to the model to generate with.
	Model string `json:"model"`

	// Prompt is the text to feed the generator. When PromptFile is
	// also set and its contents contain the {{PROMPT}} placeholder,
	// Prompt is substituted into it.
	Prompt string `json:"prompt"`

	// PromptFile is an optional file to read the prompt from.
	PromptFile string `json:"prompt_file,omitempty"`

	// LoadSession restores engine state from the given path before
	// generating. Missing or unreadable files are fatal.
	LoadSession string `json:"load_session,omitempty"`

	// SaveSession writes engine state to the given path after
	// generating, overwriting any existing file.
	SaveSession string `json:"save_session,omitempty"`

	// PersistSession behaves as LoadSession and SaveSession on the
	// same path, except that a missing file means a fresh session
	// rather than an error.
	PersistSession string `json:"persist_session,omitempty"`

	Options Options `json:"options"`
}

// Options are the generation knobs. The zero value is not useful;
// start from DefaultOptions.
type Options struct {
	// NumPredict bounds how many tokens to generate. Zero generates
	// nothing, which is still useful with SaveSession to snapshot a
	// prompt.
	NumPredict int `json:"num_predict" mapstructure:"num_predict"`

	// NumCtx is the context window size in tokens.
	NumCtx int `json:"num_ctx" mapstructure:"num_ctx"`

	// NumBatch is how many prompt tokens to feed the engine at a time.
	NumBatch int `json:"num_batch" mapstructure:"num_batch"`

	// NumThread is the worker thread count. Zero means autodetect.
	NumThread int `json:"num_thread" mapstructure:"num_thread"`

	// RepeatLastN is how many recent tokens the repetition penalty
	// considers.
	RepeatLastN int `json:"repeat_last_n" mapstructure:"repeat_last_n"`

	RepeatPenalty float32 `json:"repeat_penalty" mapstructure:"repeat_penalty"`
	Temperature   float32 `json:"temperature" mapstructure:"temperature"`
	TopK          int     `json:"top_k" mapstructure:"top_k"`
	TopP          float32 `json:"top_p" mapstructure:"top_p"`

	// Seed makes sampling reproducible when non-negative.
	Seed int64 `json:"seed" mapstructure:"seed"`

	// F16KV stores the session key/value memory as 16-bit floats.
	// Sessions must be restored with the same setting they were saved
	// with; the blob itself carries no precision marker.
	F16KV bool `json:"f16_kv" mapstructure:"f16_kv"`

	// NoMmap disables memory-mapped model loading in favor of reading
	// the whole model into memory.
	NoMmap bool `json:"no_mmap" mapstructure:"no_mmap"`

	// TokenBias is a raw "TID=BIAS,TID=BIAS" specification. When set
	// it takes precedence over IgnoreEOS.
	TokenBias string `json:"token_bias,omitempty" mapstructure:"token_bias"`

	// IgnoreEOS suppresses the end-of-sequence token so generation
	// runs until NumPredict or the context is exhausted.
	IgnoreEOS bool `json:"ignore_eos" mapstructure:"ignore_eos"`
}

// DefaultOptions mirror the generator's historical command-line
// defaults.
func DefaultOptions() Options {
	return Options{
		NumPredict:    128,
		NumCtx:        2048,
		NumBatch:      8,
		NumThread:     0, // autodetect
		RepeatLastN:   64,
		RepeatPenalty: 1.3,
		Temperature:   0.8,
		TopK:          40,
		TopP:          0.95,
		Seed:          -1, // entropy
	}
}

// FromMap applies a loosely-typed override map on top of o. Keys match
// the mapstructure tags above; unknown keys are an error so typos do
// not silently resolve to defaults.
func (o *Options) FromMap(m map[string]any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           o,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}

	if err := decoder.Decode(m); err != nil {
		return fmt.Errorf("invalid option: %w", err)
	}
	return nil
}
