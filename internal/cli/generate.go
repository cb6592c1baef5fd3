package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gptlocal/internal/engine"
	"gptlocal/internal/llm"
	"gptlocal/internal/prompt"
)

// addSamplingFlags binds the generation knobs; zero leaves the configured default.
func addSamplingFlags(fs *pflag.FlagSet, p *llm.SamplingParams) {
	fs.IntVar(&p.MaxTokens, "max-tokens", 0, "Maximum new tokens")
	fs.Var(&optionalFloat32{p: &p.Temperature}, "temp", "Sampling temperature (0 = greedy; unset uses the configured default)")
	fs.IntVar(&p.TopK, "top-k", 0, "Top-K sampling")
	fs.Float32Var(&p.TopP, "top-p", 0, "Nucleus sampling probability")
	fs.Float32Var(&p.RepeatPenalty, "repeat-penalty", 0, "Penalty for repeated tokens")
	fs.IntVar(&p.RepeatLastN, "repeat-last-n", 0, "Window for the repeat penalty")
	fs.IntVar(&p.Batch, "batch", 0, "Prompt tokens processed in parallel")
	fs.IntVar(&p.Seed, "seed", 0, "Random seed (0 = engine chooses)")
	fs.StringArrayVar(&p.Stop, "stop", nil, "Stop sequence (repeatable)")
}

// optionalFloat32 is a flag that leaves its target nil unless set.
type optionalFloat32 struct{ p **float32 }

func (o *optionalFloat32) String() string {
	if o.p == nil || *o.p == nil {
		return ""
	}
	return strconv.FormatFloat(float64(**o.p), 'g', -1, 32)
}

func (o *optionalFloat32) Set(s string) error {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return err
	}
	*o.p = llm.Float32(float32(v))
	return nil
}

func (o *optionalFloat32) Type() string { return "float32" }

func newGenerateCmd(a *app) *cobra.Command {
	var (
		params llm.SamplingParams
		stream bool
	)
	cmd := &cobra.Command{
		Use:   "generate <model> [prompt...]",
		Short: "Complete a raw prompt; reads the prompt from stdin when none is given",
		Example: "  gptlocal generate ggml-gpt4all-j-v1.3-groovy \"Name three colors.\"\n" +
			"  echo 'Once upon a time' | gptlocal generate ggml-gpt4all-j-v1.3-groovy --stream",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args[1:], " ")
			if text == "" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read prompt: %w", err)
				}
				text = string(b)
			}
			if strings.TrimSpace(text) == "" {
				return usageError{msg: "prompt is required"}
			}

			e, err := a.openEngine(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer e.Close()

			out := cmd.OutOrStdout()
			if !stream {
				s, err := e.Generate(cmd.Context(), text, params)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, s)
				return err
			}
			for tok, err := range e.Stream(cmd.Context(), text, params) {
				if err != nil {
					return err
				}
				if _, err := io.WriteString(out, tok); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintln(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&stream, "stream", false, "Print tokens as they are generated")
	addSamplingFlags(cmd.Flags(), &params)
	return cmd
}

func newChatCmd(a *app) *cobra.Command {
	var (
		params   llm.SamplingParams
		messages []string
		file     string
		noHeader bool
		noFooter bool
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "chat <model>",
		Short: "Answer a conversation given as role:content messages or a JSON file",
		Example: "  gptlocal chat ggml-gpt4all-j-v1.3-groovy -m 'system:Be brief.' -m 'user:Name three colors.'\n" +
			"  gptlocal chat ggml-gpt4all-j-v1.3-groovy --file conversation.json --json",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msgs, err := loadMessages(file, messages)
			if err != nil {
				return err
			}
			if len(msgs) == 0 {
				return usageError{msg: "chat needs at least one --message or a --file"}
			}
			if err := prompt.Validate(msgs); err != nil {
				return usageError{msg: err.Error()}
			}

			e, err := a.openEngine(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer e.Close()

			opts := engine.ChatOptions{
				Header: a.cfg.HeaderEnabled() && !noHeader,
				Footer: a.cfg.FooterEnabled() && !noFooter,
				Params: params,
			}
			resp, err := e.ChatCompletion(cmd.Context(), msgs, opts)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), resp.Choices[0].Message.Content)
			return err
		},
	}
	f := cmd.Flags()
	f.StringArrayVarP(&messages, "message", "m", nil, "Message as role:content (repeatable, in order)")
	f.StringVar(&file, "file", "", "JSON file with an array of {\"role\",\"content\"} messages")
	f.BoolVar(&noHeader, "no-header", false, "Omit the instruction header")
	f.BoolVar(&noFooter, "no-footer", false, "Omit the trailing response marker")
	f.BoolVar(&asJSON, "json", false, "Print the full completion object as JSON")
	addSamplingFlags(f, &params)
	return cmd
}

// loadMessages reads messages from file, then appends the flag messages.
func loadMessages(file string, flagged []string) ([]prompt.Message, error) {
	var msgs []prompt.Message
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, &msgs); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
	}
	for _, s := range flagged {
		m, err := prompt.ParseMessage(s)
		if err != nil {
			return nil, usageError{msg: err.Error()}
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}
