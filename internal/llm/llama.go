//go:build llama

package llm

import (
	"context"
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"
)

// LlamaBuilt reports whether this binary carries the native engine.
const LlamaBuilt = true

type llamaBackend struct {
	ctxSize int
	threads int
	model   *llama.LLama
}

// NewLlamaBackend returns a go-llama.cpp backend using a context window of
// ctxSize tokens (0 keeps the binding default).
func NewLlamaBackend(ctxSize int) Backend {
	return &llamaBackend{ctxSize: ctxSize}
}

func (b *llamaBackend) Load(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("model path is empty")
	}
	var mo []llama.ModelOption
	if b.ctxSize > 0 {
		mo = append(mo, llama.SetContext(b.ctxSize))
	}
	m, err := llama.New(path, mo...)
	if err != nil {
		return err
	}
	if b.model != nil {
		b.model.Free()
	}
	b.model = m
	return nil
}

func (b *llamaBackend) SetThreadCount(n int) { b.threads = n }

func (b *llamaBackend) Generate(ctx context.Context, prompt string, params SamplingParams, onToken func(string) error) (string, error) {
	if b.model == nil {
		return "", ErrNotLoaded
	}
	var cbErr error
	b.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if onToken == nil {
			return true
		}
		if err := onToken(tok); err != nil {
			cbErr = err
			return false
		}
		return true
	})

	text, err := b.model.Predict(prompt, predictOptions(params, b.threads)...)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if cbErr != nil {
		return text, cbErr
	}
	if err != nil {
		return "", err
	}
	return text, nil
}

func (b *llamaBackend) Close() error {
	if b.model != nil {
		b.model.Free()
		b.model = nil
	}
	return nil
}

// predictOptions converts SamplingParams into go-llama.cpp options.
func predictOptions(params SamplingParams, threads int) []llama.PredictOption {
	p := params.WithDefaults()
	po := []llama.PredictOption{
		llama.SetTokens(p.MaxTokens),
		llama.SetTopP(p.TopP),
		llama.SetTopK(p.TopK),
		llama.SetTemperature(p.Temp()),
		llama.SetPenalty(p.RepeatPenalty),
		llama.SetRepeat(p.RepeatLastN),
		llama.SetBatch(p.Batch),
	}
	if threads > 0 {
		po = append(po, llama.SetThreads(threads))
	}
	if p.Seed != 0 {
		po = append(po, llama.SetSeed(p.Seed))
	}
	if len(p.Stop) > 0 {
		po = append(po, llama.SetStopWords(p.Stop...))
	}
	return po
}
