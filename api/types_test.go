package api

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOptionsFromMap(t *testing.T) {
	opts := DefaultOptions()
	err := opts.FromMap(map[string]any{
		"temperature": 0.2,
		"top_k":       "10",
		"seed":        7,
		"ignore_eos":  true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := DefaultOptions()
	want.Temperature = 0.2
	want.TopK = 10
	want.Seed = 7
	want.IgnoreEOS = true

	if diff := cmp.Diff(want, opts); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestOptionsFromMapUnknownKey(t *testing.T) {
	opts := DefaultOptions()
	if err := opts.FromMap(map[string]any{"temprature": 0.2}); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestOptionsFromMapEmpty(t *testing.T) {
	opts := DefaultOptions()
	if err := opts.FromMap(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(DefaultOptions(), opts); diff != "" {
		t.Errorf("empty map changed options (-want +got):\n%s", diff)
	}
}
