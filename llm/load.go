package llm

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/strutlabs/kiln/format"
)

// LoadProgress is one step of model materialization. The stream
// reported to a ProgressFunc is strictly ordered: one
// ProgressHyperparameters, one ProgressContextSize, a ProgressTensor
// per tensor with ascending Index, and a terminal ProgressDone.
type LoadProgress interface {
	loadProgress()
}

type ProgressHyperparameters struct{}

type ProgressContextSize struct {
	// Bytes the engine context will occupy.
	Bytes uint64
}

type ProgressTensor struct {
	Index int
	Total int
}

type ProgressDone struct {
	ByteSize    uint64
	TensorCount int
}

func (ProgressHyperparameters) loadProgress() {}
func (ProgressContextSize) loadProgress()     {}
func (ProgressTensor) loadProgress()          {}
func (ProgressDone) loadProgress()            {}

// ProgressFunc observes load progress. A nil ProgressFunc is valid and
// discards events.
type ProgressFunc func(LoadProgress)

// ModelOptions control model materialization.
type ModelOptions struct {
	// NumCtx bounds how much prompt and generation history the model
	// handle can address, in tokens.
	NumCtx int

	// UseMmap maps the model file instead of reading it fully into
	// memory.
	UseMmap bool
}

func DefaultModelOptions() ModelOptions {
	return ModelOptions{NumCtx: 2048, UseMmap: true}
}

// Hyperparameters are the engine-independent dimensions read from a
// model file header.
type Hyperparameters struct {
	VocabSize int
	EmbedSize int
	NumLayers int
	NumHeads  int
}

// ModelSource reads a model representation. The file format belongs to
// the backend; this package only drives the read order.
type ModelSource interface {
	ReadHyperparameters() (Hyperparameters, error)

	// ContextSize returns the bytes the engine context occupies for a
	// window of numCtx tokens.
	ContextSize(numCtx int) uint64

	TensorCount() int

	// ReadTensor materializes tensor index and returns its size in
	// bytes. useMmap selects mapping over copying where the backend
	// supports it.
	ReadTensor(index int, useMmap bool) (int64, error)

	Vocabulary() Vocabulary
}

// Backend opens model files for a particular format.
type Backend interface {
	Open(path string) (ModelSource, error)
}

// Model is a materialized model handle.
type Model struct {
	hyperparameters Hyperparameters
	numCtx          int
	vocab           Vocabulary
}

func (m *Model) Hyperparameters() Hyperparameters {
	return m.hyperparameters
}

// NumCtx is the context window the model was loaded with.
func (m *Model) NumCtx() int {
	return m.numCtx
}

func (m *Model) Vocabulary() Vocabulary {
	return m.vocab
}

var backend Backend

// RegisterBackend installs the model backend used by Open. Intended to
// be called from the backend's init; the last registration wins.
func RegisterBackend(b Backend) {
	backend = b
}

// ModelInfo is the header summary reported by Inspect.
type ModelInfo struct {
	Hyperparameters Hyperparameters
	TensorCount     int
	EOS             int32
}

// Inspect reads the model header at path with the registered backend,
// without materializing any tensors.
func Inspect(path string) (ModelInfo, error) {
	if backend == nil {
		return ModelInfo{}, ErrNoBackend
	}

	src, err := backend.Open(path)
	if err != nil {
		return ModelInfo{}, fmt.Errorf("open model: %w", err)
	}

	hp, err := src.ReadHyperparameters()
	if err != nil {
		return ModelInfo{}, fmt.Errorf("load hyperparameters: %w", err)
	}

	return ModelInfo{
		Hyperparameters: hp,
		TensorCount:     src.TensorCount(),
		EOS:             src.Vocabulary().EOS(),
	}, nil
}

// Open materializes the model at path with the registered backend,
// reporting progress through fn.
func Open(path string, opts ModelOptions, fn ProgressFunc) (*Model, error) {
	if backend == nil {
		return nil, ErrNoBackend
	}

	src, err := backend.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}

	start := time.Now()
	model, err := Load(src, opts, fn)
	if err != nil {
		return nil, err
	}

	slog.Info("model fully loaded", "elapsed", time.Since(start).Round(time.Millisecond))
	return model, nil
}

// Load drives src through materialization, emitting the ordered
// progress stream described on LoadProgress.
func Load(src ModelSource, opts ModelOptions, fn ProgressFunc) (*Model, error) {
	if fn == nil {
		fn = func(LoadProgress) {}
	}

	hp, err := src.ReadHyperparameters()
	if err != nil {
		return nil, fmt.Errorf("load hyperparameters: %w", err)
	}
	fn(ProgressHyperparameters{})

	ctxBytes := src.ContextSize(opts.NumCtx)
	slog.Debug("context allocated", "tokens", opts.NumCtx, "size", format.HumanBytes(int64(ctxBytes)))
	fn(ProgressContextSize{Bytes: ctxBytes})

	total := src.TensorCount()
	var byteSize uint64
	for i := 0; i < total; i++ {
		n, err := src.ReadTensor(i, opts.UseMmap)
		if err != nil {
			return nil, fmt.Errorf("load tensor %d/%d: %w", i, total, err)
		}
		byteSize += uint64(n)
		fn(ProgressTensor{Index: i, Total: total})
	}

	fn(ProgressDone{ByteSize: byteSize, TensorCount: total})

	return &Model{
		hyperparameters: hp,
		numCtx:          opts.NumCtx,
		vocab:           src.Vocabulary(),
	}, nil
}
