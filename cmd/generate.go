package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/strutlabs/kiln/api"
	"github.com/strutlabs/kiln/envconfig"
	"github.com/strutlabs/kiln/format"
	"github.com/strutlabs/kiln/llm"
	"github.com/strutlabs/kiln/progress"
	"github.com/strutlabs/kiln/prompt"
	"github.com/strutlabs/kiln/session"
)

var errNoPrompt = errors.New("no prompt or prompt file was provided")

// generate runs one full invocation: resolve the prompt and sampling
// parameters, load the model, restore any prior session, generate
// through the engine, and persist the session afterwards. Generated
// text goes to out; progress and logs go to stderr.
func generate(ctx context.Context, engine llm.Engine, req api.GenerateRequest, out io.Writer) error {
	text, err := prompt.Resolve(req.Prompt, req.PromptFile)
	if err != nil {
		return err
	}

	sess, err := session.Resolve(req.LoadSession, req.SaveSession, req.PersistSession)
	if err != nil {
		return err
	}

	// With a restored session the prompt may legitimately be empty;
	// otherwise there is nothing to generate from.
	if text == "" && !sess.HasLoad() {
		return errNoPrompt
	}

	model, err := loadModel(req)
	if err != nil {
		return err
	}

	params, err := llm.ResolveSamplingParams(req.Options, model.Vocabulary())
	if err != nil {
		return err
	}

	if sess.HasLoad() && params.Memory == llm.MemoryF16 {
		// The blob carries no precision marker; restoring a session
		// saved with 32-bit memory under f16 is undefined.
		slog.Warn("restoring a session with f16 memory; the session must have been saved with --float16 as well")
	}

	state, err := sess.Load()
	if err != nil {
		return err
	}

	state, err = engine.Generate(ctx, model, params, text, state, func(piece string) {
		fmt.Fprint(out, piece)
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out)

	if err := sess.Save(state); err != nil {
		// Generation already reached the user; say so instead of
		// letting the save failure read like a total loss.
		return fmt.Errorf("generation succeeded but the session could not be saved: %w", err)
	}
	return nil
}

func loadModel(req api.GenerateRequest) (*llm.Model, error) {
	opts := llm.ModelOptions{
		NumCtx:  req.Options.NumCtx,
		UseMmap: !req.Options.NoMmap && !envconfig.NoMmap,
	}

	var p *progress.Progress
	var bar *progress.Bar
	spinner := progress.NewSpinner("loading model")
	if !envconfig.NoProgress {
		p = progress.NewProgress(os.Stderr)
		p.Add(spinner)
		defer p.StopAndClear()
	}

	model, err := llm.Open(req.Model, opts, func(ev llm.LoadProgress) {
		switch ev := ev.(type) {
		case llm.ProgressHyperparameters:
			slog.Debug("hyperparameters loaded")
		case llm.ProgressContextSize:
			slog.Debug("context size", "size", format.HumanBytes(int64(ev.Bytes)))
		case llm.ProgressTensor:
			if bar == nil {
				spinner.Stop()
				bar = progress.NewBar("loading tensors", int64(ev.Total))
				if p != nil {
					p.Add(bar)
				}
			}
			bar.Set(int64(ev.Index + 1))
			if (ev.Index+1)%8 == 0 {
				slog.Debug("loaded tensors", "current", ev.Index+1, "total", ev.Total)
			}
		case llm.ProgressDone:
			slog.Info("model loaded", "size", format.HumanBytes(int64(ev.ByteSize)), "tensors", ev.TensorCount)
		}
	})
	if err != nil {
		return nil, err
	}
	return model, nil
}
