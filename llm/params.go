package llm

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/strutlabs/kiln/api"
	"github.com/strutlabs/kiln/discover"
	"github.com/strutlabs/kiln/sample"
)

// KVMemoryType is the storage precision of the engine's key/value
// session memory.
type KVMemoryType uint8

const (
	MemoryF32 KVMemoryType = iota
	MemoryF16
)

func (t KVMemoryType) String() string {
	if t == MemoryF16 {
		return "f16"
	}
	return "f32"
}

// SamplingParams is the fully resolved, internally consistent
// parameter set handed to the engine. Build one with
// ResolveSamplingParams and do not mutate it afterwards.
type SamplingParams struct {
	NumPredict  int
	NumThread   int
	NumBatch    int
	RepeatLastN int

	RepeatPenalty float32
	Temperature   float32
	TopK          int
	TopP          float32

	Bias sample.TokenBias

	// Memory must match the precision any restored session was saved
	// with; the session blob carries no marker, so a mismatch is
	// undefined behavior in the engine.
	Memory KVMemoryType

	// RNG drives sampling. Deterministic when the request carried a
	// seed, entropy-backed otherwise.
	RNG *rand.Rand
}

// ResolveSamplingParams merges user options into a SamplingParams,
// filling every gap: thread count is autodetected when unset, and the
// bias table is resolved with explicit-table-over-ignore-EOS
// precedence against vocab's end-of-sequence token.
func ResolveSamplingParams(opts api.Options, vocab Vocabulary) (*SamplingParams, error) {
	switch {
	case opts.NumPredict < 0:
		return nil, fmt.Errorf("num_predict must not be negative, got %d", opts.NumPredict)
	case opts.NumBatch < 1:
		return nil, fmt.Errorf("num_batch must be positive, got %d", opts.NumBatch)
	case opts.RepeatLastN < 0:
		return nil, fmt.Errorf("repeat_last_n must not be negative, got %d", opts.RepeatLastN)
	case opts.RepeatPenalty <= 0:
		return nil, fmt.Errorf("repeat_penalty must be positive, got %g", opts.RepeatPenalty)
	case opts.Temperature <= 0:
		return nil, fmt.Errorf("temperature must be positive, got %g", opts.Temperature)
	case opts.TopK < 1:
		return nil, fmt.Errorf("top_k must be positive, got %d", opts.TopK)
	case opts.TopP <= 0 || opts.TopP > 1:
		return nil, fmt.Errorf("top_p must be in (0, 1], got %g", opts.TopP)
	}

	bias, err := resolveBias(opts, vocab)
	if err != nil {
		return nil, err
	}

	memory := MemoryF32
	if opts.F16KV {
		memory = MemoryF16
	}

	return &SamplingParams{
		NumPredict:    opts.NumPredict,
		NumThread:     discover.ThreadCount(opts.NumThread),
		NumBatch:      opts.NumBatch,
		RepeatLastN:   opts.RepeatLastN,
		RepeatPenalty: opts.RepeatPenalty,
		Temperature:   opts.Temperature,
		TopK:          opts.TopK,
		TopP:          opts.TopP,
		Bias:          bias,
		Memory:        memory,
		RNG:           sample.NewRNG(opts.Seed),
	}, nil
}

// Exactly one bias policy applies: an explicit table wins over
// ignore_eos, which wins over the empty table.
func resolveBias(opts api.Options, vocab Vocabulary) (sample.TokenBias, error) {
	if opts.TokenBias != "" {
		if opts.IgnoreEOS {
			slog.Warn("token_bias overrides ignore_eos; the end-of-sequence token is not suppressed")
		}
		return sample.ParseTokenBias(opts.TokenBias)
	}

	if opts.IgnoreEOS {
		return sample.SuppressToken(vocab.EOS()), nil
	}

	return sample.TokenBias{}, nil
}
