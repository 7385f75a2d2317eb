package sample

import (
	"errors"
	"testing"
)

func TestParseTokenBias(t *testing.T) {
	tests := []struct {
		name     string
		spec     string
		expected map[int32]float32
	}{
		{
			name:     "empty",
			spec:     "",
			expected: map[int32]float32{},
		},
		{
			name:     "single entry",
			spec:     "1=-1.0",
			expected: map[int32]float32{1: -1.0},
		},
		{
			name:     "multiple entries",
			spec:     "1=-1.0,2=-1.0",
			expected: map[int32]float32{1: -1.0, 2: -1.0},
		},
		{
			name:     "duplicate id last wins",
			spec:     "7=0.5,7=2.5",
			expected: map[int32]float32{7: 2.5},
		},
		{
			name:     "scientific notation",
			spec:     "3=1e-2",
			expected: map[int32]float32{3: 0.01},
		},
		{
			name:     "positive bias",
			spec:     "42=3.5",
			expected: map[int32]float32{42: 3.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bias, err := ParseTokenBias(tt.spec)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if bias.Len() != len(tt.expected) {
				t.Fatalf("got %d entries, want %d", bias.Len(), len(tt.expected))
			}

			for id, want := range tt.expected {
				got, ok := bias.Get(id)
				if !ok {
					t.Fatalf("missing entry for token %d", id)
				}
				if got != want {
					t.Errorf("token %d: got %g, want %g", id, got, want)
				}
			}
		})
	}
}

func TestParseTokenBiasInvalid(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		segment string
	}{
		{"missing separator", "12", "12"},
		{"missing bias", "12=", "12="},
		{"negative id", "-1=0.5", "-1=0.5"},
		{"non-numeric id", "abc=0.5", "abc=0.5"},
		{"non-numeric bias", "1=x", "1=x"},
		{"bad segment after good", "1=0.5,oops", "oops"},
		{"trailing comma", "1=0.5,", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTokenBias(tt.spec)
			if err == nil {
				t.Fatal("expected error")
			}

			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if parseErr.Segment != tt.segment {
				t.Errorf("got segment %q, want %q", parseErr.Segment, tt.segment)
			}
		})
	}
}

func TestTokenBiasRoundTrip(t *testing.T) {
	bias, err := ParseTokenBias("2=0.5,1=-1,2=1.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, want := bias.String(), "1=-1,2=1.5"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	again, err := ParseTokenBias(bias.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := again.String(), bias.String(); got != want {
		t.Errorf("reparse changed table: got %q, want %q", got, want)
	}
}

func TestSuppressToken(t *testing.T) {
	bias := SuppressToken(2)
	if bias.Len() != 1 {
		t.Fatalf("got %d entries, want 1", bias.Len())
	}
	if got, _ := bias.Get(2); got != -1.0 {
		t.Errorf("got bias %g, want -1.0", got)
	}
}

func TestTokenBiasApply(t *testing.T) {
	bias := NewTokenBias(map[int32]float32{0: 1.0, 2: -2.0, 9: 5.0})

	logits := []float32{0.5, 0.5, 0.5}
	bias.Apply(logits)

	want := []float32{1.5, 0.5, -1.5}
	for i := range want {
		if logits[i] != want[i] {
			t.Errorf("logit %d: got %g, want %g", i, logits[i], want[i])
		}
	}
}

func TestTokenBiasApplyOutOfVocabulary(t *testing.T) {
	// Ids outside the vocabulary, including negative ones from an
	// explicitly constructed table, are ignored.
	bias := NewTokenBias(map[int32]float32{-5: 1.0, 1: 2.0, 100: 3.0})

	logits := []float32{0.5, 0.5}
	bias.Apply(logits)

	want := []float32{0.5, 2.5}
	for i := range want {
		if logits[i] != want[i] {
			t.Errorf("logit %d: got %g, want %g", i, logits[i], want[i])
		}
	}
}
