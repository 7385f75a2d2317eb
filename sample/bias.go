package sample

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParseError reports a malformed segment in a token bias specification.
type ParseError struct {
	Segment string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid token bias %q: %v", e.Segment, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// TokenBias maps token ids to additive adjustments applied to their
// logits before sampling. A negative bias discourages a token, a
// positive one encourages it. The zero value is an empty table.
//
// A TokenBias is immutable once constructed.
type TokenBias struct {
	biases map[int32]float32
}

// NewTokenBias builds a table from explicit (id, bias) pairs. Later
// pairs win on duplicate ids.
func NewTokenBias(pairs map[int32]float32) TokenBias {
	if len(pairs) == 0 {
		return TokenBias{}
	}

	biases := make(map[int32]float32, len(pairs))
	for id, bias := range pairs {
		biases[id] = bias
	}
	return TokenBias{biases: biases}
}

// SuppressToken returns a single-entry table biasing id by -1.0,
// enough to keep the sampler from ever selecting it.
func SuppressToken(id int32) TokenBias {
	return TokenBias{biases: map[int32]float32{id: -1.0}}
}

// ParseTokenBias parses a specification of the form
// "TID=BIAS,TID=BIAS" where TID is an unsigned integer token id and
// BIAS is a decimal float. The last occurrence of a duplicate id wins.
// An empty string parses to an empty table.
func ParseTokenBias(s string) (TokenBias, error) {
	if s == "" {
		return TokenBias{}, nil
	}

	biases := make(map[int32]float32)
	for _, segment := range strings.Split(s, ",") {
		id, bias, ok := strings.Cut(segment, "=")
		if !ok {
			return TokenBias{}, &ParseError{Segment: segment, Err: fmt.Errorf("expected \"id=bias\"")}
		}

		tid, err := strconv.ParseUint(id, 10, 31)
		if err != nil {
			return TokenBias{}, &ParseError{Segment: segment, Err: fmt.Errorf("token id: %w", err)}
		}

		value, err := strconv.ParseFloat(bias, 32)
		if err != nil {
			return TokenBias{}, &ParseError{Segment: segment, Err: fmt.Errorf("bias: %w", err)}
		}

		biases[int32(tid)] = float32(value)
	}

	return TokenBias{biases: biases}, nil
}

// Get returns the bias for id, if any.
func (b TokenBias) Get(id int32) (float32, bool) {
	bias, ok := b.biases[id]
	return bias, ok
}

// Len returns the number of biased tokens.
func (b TokenBias) Len() int {
	return len(b.biases)
}

// Apply adds each bias to the logit at the corresponding token id.
// Ids outside the vocabulary are ignored.
func (b TokenBias) Apply(logits []float32) {
	for id, bias := range b.biases {
		if id >= 0 && int(id) < len(logits) {
			logits[id] += bias
		}
	}
}

func (b TokenBias) String() string {
	ids := make([]int32, 0, len(b.biases))
	for id := range b.biases {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var sb strings.Builder
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%d=%g", id, b.biases[id])
	}
	return sb.String()
}
