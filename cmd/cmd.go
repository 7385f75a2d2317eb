// Package cmd is the kiln command-line surface.
package cmd

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/strutlabs/kiln/api"
	"github.com/strutlabs/kiln/envconfig"
	"github.com/strutlabs/kiln/format"
	"github.com/strutlabs/kiln/llm"
	"github.com/strutlabs/kiln/logutil"
	"github.com/strutlabs/kiln/sample"
	"github.com/strutlabs/kiln/version"
)

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "kiln",
		Short:         "Run local text generation models",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logutil.Init(os.Stderr, envconfig.Debug)
		},
	}

	inferCmd := &cobra.Command{
		Use:   "infer",
		Short: "Use a model to infer the next tokens in a sequence, and exit",
		Args:  cobra.ExactArgs(0),
		RunE:  InferHandler,
	}

	f := inferCmd.Flags()
	opts := api.DefaultOptions()
	f.StringP("model", "m", "", "Path to the model to generate with (required)")
	f.StringP("prompt", "p", "", "The prompt to feed the generator; with --prompt-file, replaces {{PROMPT}} in the file")
	f.StringP("prompt-file", "f", "", "A file to read the prompt from")
	f.IntP("num-predict", "n", opts.NumPredict, "How many tokens to generate; 0 with --save-session saves just the prompt")
	f.Int("num-ctx", opts.NumCtx, "Context window size in tokens")
	f.Int("batch-size", opts.NumBatch, "How many prompt tokens to feed the engine at a time")
	f.IntP("threads", "t", 0, "Worker thread count (default: autodetect)")
	f.Int("repeat-last-n", opts.RepeatLastN, "How many recent tokens the repeat penalty considers")
	f.Float32("repeat-penalty", opts.RepeatPenalty, "Penalty for repeating recent tokens")
	f.Float32("temperature", opts.Temperature, "Sampling temperature")
	f.Int("top-k", opts.TopK, "Keep only the K highest scored tokens while sampling")
	f.Float32("top-p", opts.TopP, "Cumulative probability cutoff while sampling")
	f.Int64("seed", opts.Seed, "Sampling seed; negative seeds from entropy")
	f.Bool("float16", false, "Use 16-bit floats for session key/value memory")
	f.Bool("no-mmap", false, "Do not memory-map the model")
	f.String("token-bias", "", `Comma separated token bias list, e.g. "1=-1.0,2=-1.0"; overrides --ignore-eos`)
	f.Bool("ignore-eos", false, "Suppress the end-of-sequence token")
	f.StringArrayP("option", "o", nil, "Additional option as key=value (e.g. -o temperature=0.2), applied after the flags above")
	f.String("load-session", "", "Restore engine state from this path before generating")
	f.String("save-session", "", "Write engine state to this path after generating")
	f.String("persist-session", "", "Like --load-session and --save-session on one path, tolerating a missing file")
	_ = inferCmd.MarkFlagRequired("model")

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show information about a model",
		Args:  cobra.ExactArgs(0),
		RunE:  InfoHandler,
	}
	infoCmd.Flags().StringP("model", "m", "", "The model to inspect (required)")
	_ = infoCmd.MarkFlagRequired("model")

	envCmd := &cobra.Command{
		Use:   "env",
		Short: "List the environment variables kiln reads",
		Args:  cobra.ExactArgs(0),
		RunE:  EnvHandler,
	}

	rootCmd.AddCommand(inferCmd, infoCmd, envCmd)
	return rootCmd
}

func InfoHandler(cmd *cobra.Command, args []string) error {
	path, err := cmd.Flags().GetString("model")
	if err != nil {
		return err
	}

	info, err := llm.Inspect(path)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("  ")

	hp := info.Hyperparameters
	table.AppendBulk([][]string{
		{"Vocabulary size:", format.HumanNumber(uint64(hp.VocabSize))},
		{"Embedding size:", strconv.Itoa(hp.EmbedSize)},
		{"Layers:", strconv.Itoa(hp.NumLayers)},
		{"Attention heads:", strconv.Itoa(hp.NumHeads)},
		{"Tensors:", strconv.Itoa(info.TensorCount)},
		{"EOS token:", strconv.Itoa(int(info.EOS))},
	})
	table.Render()
	return nil
}

func InferHandler(cmd *cobra.Command, args []string) error {
	req, err := requestFromFlags(cmd)
	if err != nil {
		return err
	}

	engine, err := llm.DefaultEngine()
	if err != nil {
		return err
	}

	return generate(cmd.Context(), engine, req, os.Stdout)
}

func requestFromFlags(cmd *cobra.Command) (api.GenerateRequest, error) {
	f := cmd.Flags()
	opts := api.DefaultOptions()

	var err error
	if opts.NumPredict, err = f.GetInt("num-predict"); err != nil {
		return api.GenerateRequest{}, err
	}
	if opts.NumCtx, err = f.GetInt("num-ctx"); err != nil {
		return api.GenerateRequest{}, err
	}
	if opts.NumBatch, err = f.GetInt("batch-size"); err != nil {
		return api.GenerateRequest{}, err
	}
	if opts.NumThread, err = f.GetInt("threads"); err != nil {
		return api.GenerateRequest{}, err
	}
	if opts.NumThread == 0 {
		opts.NumThread = envconfig.NumThreads
	}
	if opts.RepeatLastN, err = f.GetInt("repeat-last-n"); err != nil {
		return api.GenerateRequest{}, err
	}
	if opts.RepeatPenalty, err = f.GetFloat32("repeat-penalty"); err != nil {
		return api.GenerateRequest{}, err
	}
	if opts.Temperature, err = f.GetFloat32("temperature"); err != nil {
		return api.GenerateRequest{}, err
	}
	if opts.TopK, err = f.GetInt("top-k"); err != nil {
		return api.GenerateRequest{}, err
	}
	if opts.TopP, err = f.GetFloat32("top-p"); err != nil {
		return api.GenerateRequest{}, err
	}
	if opts.Seed, err = f.GetInt64("seed"); err != nil {
		return api.GenerateRequest{}, err
	}
	if opts.F16KV, err = f.GetBool("float16"); err != nil {
		return api.GenerateRequest{}, err
	}
	if opts.NoMmap, err = f.GetBool("no-mmap"); err != nil {
		return api.GenerateRequest{}, err
	}
	if opts.TokenBias, err = f.GetString("token-bias"); err != nil {
		return api.GenerateRequest{}, err
	}
	if opts.IgnoreEOS, err = f.GetBool("ignore-eos"); err != nil {
		return api.GenerateRequest{}, err
	}

	pairs, err := f.GetStringArray("option")
	if err != nil {
		return api.GenerateRequest{}, err
	}
	if len(pairs) > 0 {
		m := make(map[string]any, len(pairs))
		for _, pair := range pairs {
			key, value, ok := strings.Cut(pair, "=")
			if !ok {
				return api.GenerateRequest{}, fmt.Errorf("invalid option %q, expected key=value", pair)
			}
			m[key] = value
		}
		if err := opts.FromMap(m); err != nil {
			return api.GenerateRequest{}, err
		}
	}

	// Catch a malformed bias specification here so a typo does not
	// cost a full model load first.
	if _, err := sample.ParseTokenBias(opts.TokenBias); err != nil {
		return api.GenerateRequest{}, err
	}

	req := api.GenerateRequest{Options: opts}
	if req.Model, err = f.GetString("model"); err != nil {
		return api.GenerateRequest{}, err
	}
	if req.Prompt, err = f.GetString("prompt"); err != nil {
		return api.GenerateRequest{}, err
	}
	if req.PromptFile, err = f.GetString("prompt-file"); err != nil {
		return api.GenerateRequest{}, err
	}
	if req.LoadSession, err = f.GetString("load-session"); err != nil {
		return api.GenerateRequest{}, err
	}
	if req.SaveSession, err = f.GetString("save-session"); err != nil {
		return api.GenerateRequest{}, err
	}
	if req.PersistSession, err = f.GetString("persist-session"); err != nil {
		return api.GenerateRequest{}, err
	}
	return req, nil
}

func EnvHandler(cmd *cobra.Command, args []string) error {
	vars := envconfig.AsMap()

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("  ")

	for _, name := range names {
		v := vars[name]
		table.Append([]string{name, fmt.Sprintf("%v", v.Value), v.Description})
	}
	table.Render()
	return nil
}
