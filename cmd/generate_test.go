package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/strutlabs/kiln/api"
	"github.com/strutlabs/kiln/envconfig"
	"github.com/strutlabs/kiln/llm"
)

type fakeVocab struct{}

func (fakeVocab) EOS() int32 { return 2 }

type fakeSource struct{}

func (fakeSource) ReadHyperparameters() (llm.Hyperparameters, error) {
	return llm.Hyperparameters{VocabSize: 64}, nil
}
func (fakeSource) ContextSize(numCtx int) uint64       { return uint64(numCtx) }
func (fakeSource) TensorCount() int                    { return 2 }
func (fakeSource) ReadTensor(int, bool) (int64, error) { return 16, nil }
func (fakeSource) Vocabulary() llm.Vocabulary          { return fakeVocab{} }

type fakeBackend struct{}

func (fakeBackend) Open(path string) (llm.ModelSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return fakeSource{}, nil
}

// fakeEngine emits a fixed string and appends one byte to the session
// state per call, so resumption is observable.
type fakeEngine struct {
	sawState []byte
	fail     bool
}

func (e *fakeEngine) Generate(ctx context.Context, model *llm.Model, params *llm.SamplingParams, prompt string, state []byte, out func(string)) ([]byte, error) {
	e.sawState = state
	if e.fail {
		return nil, errors.New("engine exploded")
	}
	out("hello ")
	out("world")
	return append(state, byte(len(state))), nil
}

func testRequest(t *testing.T) api.GenerateRequest {
	t.Helper()

	model := filepath.Join(t.TempDir(), "model.bin")
	if err := os.WriteFile(model, []byte("weights"), 0o644); err != nil {
		t.Fatal(err)
	}

	return api.GenerateRequest{
		Model:   model,
		Prompt:  "tell me a story",
		Options: api.DefaultOptions(),
	}
}

func setup(t *testing.T) *fakeEngine {
	t.Helper()
	llm.RegisterBackend(fakeBackend{})

	old := envconfig.NoProgress
	envconfig.NoProgress = true
	t.Cleanup(func() { envconfig.NoProgress = old })

	return &fakeEngine{}
}

func TestGenerate(t *testing.T) {
	engine := setup(t)

	var out bytes.Buffer
	if err := generate(context.Background(), engine, testRequest(t), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "hello world\n" {
		t.Errorf("got output %q", got)
	}
	if engine.sawState != nil {
		t.Errorf("expected fresh state, engine saw %x", engine.sawState)
	}
}

func TestGenerateNoPrompt(t *testing.T) {
	engine := setup(t)

	req := testRequest(t)
	req.Prompt = ""

	err := generate(context.Background(), engine, req, &bytes.Buffer{})
	if !errors.Is(err, errNoPrompt) {
		t.Fatalf("got %v, want errNoPrompt", err)
	}
}

func TestGenerateMissingPromptFile(t *testing.T) {
	engine := setup(t)

	req := testRequest(t)
	req.PromptFile = filepath.Join(t.TempDir(), "missing.txt")

	if err := generate(context.Background(), engine, req, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unreadable prompt file")
	}
}

func TestGeneratePersistSession(t *testing.T) {
	engine := setup(t)

	req := testRequest(t)
	req.PersistSession = filepath.Join(t.TempDir(), "session.bin")

	// First run: no prior session file, proceeds fresh and saves.
	if err := generate(context.Background(), engine, req, &bytes.Buffer{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if engine.sawState != nil {
		t.Errorf("first run should start fresh, engine saw %x", engine.sawState)
	}

	// Second run: resumes from the saved blob.
	if err := generate(context.Background(), engine, req, &bytes.Buffer{}); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(engine.sawState) != 1 {
		t.Errorf("second run should resume from 1 byte of state, saw %x", engine.sawState)
	}
}

func TestGenerateLoadSessionMissingIsFatal(t *testing.T) {
	engine := setup(t)

	req := testRequest(t)
	req.LoadSession = filepath.Join(t.TempDir(), "missing.bin")

	if err := generate(context.Background(), engine, req, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for missing load session")
	}
}

func TestGenerateSaveFailureAfterOutput(t *testing.T) {
	engine := setup(t)

	req := testRequest(t)
	req.SaveSession = filepath.Join(t.TempDir(), "no", "such", "dir", "session.bin")

	var out bytes.Buffer
	err := generate(context.Background(), engine, req, &out)
	if err == nil {
		t.Fatal("expected save failure")
	}
	if !strings.Contains(err.Error(), "generation succeeded") {
		t.Errorf("error should report partial success, got %v", err)
	}
	if got := out.String(); got != "hello world\n" {
		t.Errorf("output must be preserved despite save failure, got %q", got)
	}
}

func TestGenerateEngineFailure(t *testing.T) {
	engine := setup(t)
	engine.fail = true

	req := testRequest(t)
	path := filepath.Join(t.TempDir(), "session.bin")
	req.SaveSession = path

	if err := generate(context.Background(), engine, req, &bytes.Buffer{}); err == nil {
		t.Fatal("expected engine error")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Error("no session should be saved when generation fails")
	}
}

func TestGenerateConflictingSessionFlags(t *testing.T) {
	engine := setup(t)

	req := testRequest(t)
	req.LoadSession = "a"
	req.PersistSession = "b"

	if err := generate(context.Background(), engine, req, &bytes.Buffer{}); err == nil {
		t.Fatal("expected conflict error")
	}
}
