//go:build !llama

package llm

import "context"

// LlamaBuilt reports whether this binary carries the native engine.
const LlamaBuilt = false

const notBuilt = "llama support not built (missing 'llama' build tag)"

type llamaBackend struct{}

// NewLlamaBackend returns a backend that refuses to load models because the
// native engine is not compiled in.
func NewLlamaBackend(ctxSize int) Backend { return llamaBackend{} }

func (llamaBackend) Load(path string) error { return ErrUnavailable(notBuilt) }

func (llamaBackend) SetThreadCount(n int) {}

func (llamaBackend) Generate(ctx context.Context, prompt string, params SamplingParams, onToken func(string) error) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", ErrUnavailable(notBuilt)
}

func (llamaBackend) Close() error { return nil }
