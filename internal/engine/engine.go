// Package engine is the library entry point: it resolves a model once at
// Open, loads it into an llm.Backend, and generates completions from raw
// prompts or role-tagged conversations.
package engine

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gptlocal/internal/llm"
	"gptlocal/internal/prompt"
	"gptlocal/internal/registry"
	"gptlocal/internal/resolver"
	"gptlocal/pkg/types"
)

// ErrStreamConsumed is yielded when a stream returned by Stream is ranged
// over a second time. Start a new generation instead.
var ErrStreamConsumed = errors.New("engine: token stream already consumed")

// errStopped tells the backend that the consumer broke out of a stream.
var errStopped = errors.New("engine: stream stopped by consumer")

// Resolver locates model files on disk.
type Resolver interface {
	Resolve(ctx context.Context, req resolver.Request) (string, error)
}

// Options configure Open.
type Options struct {
	// Model is the model name; the file suffix is optional.
	Model string
	// Dir is the directory holding the model; empty selects the resolver default.
	Dir           string
	AllowDownload bool
	// Threads is passed to the backend when > 0.
	Threads  int
	Resolver Resolver
	Backend  llm.Backend
	// Suffix filters ListModels; empty means resolver.DefaultSuffix.
	Suffix string
	// Defaults are the sampling parameters used when a call leaves a field zero.
	Defaults llm.SamplingParams
	Logger   zerolog.Logger
}

// Engine owns one loaded model. Calls into the backend are serialized.
type Engine struct {
	mu       sync.Mutex
	name     string
	path     string
	suffix   string
	backend  llm.Backend
	defaults llm.SamplingParams
	log      zerolog.Logger

	now   func() time.Time
	newID func() string
}

// Open resolves opts.Model and loads it into opts.Backend.
func Open(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Resolver == nil || opts.Backend == nil {
		return nil, errors.New("engine: resolver and backend are required")
	}
	path, err := opts.Resolver.Resolve(ctx, resolver.Request{
		Name:          opts.Model,
		Dir:           opts.Dir,
		AllowDownload: opts.AllowDownload,
	})
	if err != nil {
		return nil, err
	}
	if err := opts.Backend.Load(path); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if opts.Threads > 0 {
		opts.Backend.SetThreadCount(opts.Threads)
	}
	suffix := opts.Suffix
	if suffix == "" {
		suffix = resolver.DefaultSuffix
	}
	e := &Engine{
		name:     filepath.Base(path),
		path:     path,
		suffix:   suffix,
		backend:  opts.Backend,
		defaults: llm.DefaultSamplingParams().Merge(opts.Defaults),
		log:      opts.Logger,
		now:      time.Now,
		newID:    func() string { return "chatcmpl-" + uuid.NewString() },
	}
	e.log.Info().Str("model", e.name).Str("path", path).Int("threads", opts.Threads).Msg("model loaded")
	return e, nil
}

// Name returns the model's canonical filename.
func (e *Engine) Name() string { return e.name }

// Path returns the absolute path of the loaded model file.
func (e *Engine) Path() string { return e.path }

func (e *Engine) params(p llm.SamplingParams) llm.SamplingParams {
	return e.defaults.Merge(p)
}

// Generate blocks until the backend returns the full completion.
func (e *Engine) Generate(ctx context.Context, text string, params llm.SamplingParams) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.backend.Generate(ctx, text, e.params(params), nil)
}

// Stream returns a lazy sequence of token fragments. Ranging over it drives
// generation; breaking out of the loop stops it. The sequence is single-pass:
// a second range yields only ErrStreamConsumed. The engine is locked while
// the loop body runs, so the body must not call back into the engine.
func (e *Engine) Stream(ctx context.Context, text string, params llm.SamplingParams) iter.Seq2[string, error] {
	var used atomic.Bool
	p := e.params(params)
	return func(yield func(string, error) bool) {
		if used.Swap(true) {
			yield("", ErrStreamConsumed)
			return
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		stopped := false
		_, err := e.backend.Generate(ctx, text, p, func(tok string) error {
			if !yield(tok, nil) {
				stopped = true
				return errStopped
			}
			return nil
		})
		if stopped {
			return
		}
		if err != nil {
			yield("", err)
		}
	}
}

// ChatOptions control ChatCompletion.
type ChatOptions struct {
	Header bool
	Footer bool
	Params llm.SamplingParams
}

// DefaultChatOptions includes both the header and the footer.
func DefaultChatOptions() ChatOptions { return ChatOptions{Header: true, Footer: true} }

// ChatCompletion renders messages into a prompt, generates a reply and wraps
// it with character-count usage. Messages with unknown roles are skipped.
func (e *Engine) ChatCompletion(ctx context.Context, messages []prompt.Message, opts ChatOptions) (types.ChatResponse, error) {
	full := prompt.Build(messages, opts.Header, opts.Footer)
	e.log.Debug().Str("model", e.name).Str("prompt", full).Msg("chat prompt")

	out, err := e.Generate(ctx, full, opts.Params)
	if err != nil {
		return types.ChatResponse{}, err
	}
	e.log.Debug().Str("model", e.name).Str("response", out).Msg("chat response")

	promptLen := utf8.RuneCountInString(full)
	outLen := utf8.RuneCountInString(out)
	return types.ChatResponse{
		ID:      e.newID(),
		Object:  "chat.completion",
		Created: e.now().Unix(),
		Model:   e.name,
		Usage: types.Usage{
			PromptTokens:     promptLen,
			CompletionTokens: outLen,
			TotalTokens:      promptLen + outLen,
		},
		Choices: []types.ChatChoice{{
			Message: types.ChatMessage{Role: string(prompt.RoleAssistant), Content: out},
		}},
	}, nil
}

// ListModels lists the model files next to the loaded model.
func (e *Engine) ListModels() ([]types.Model, error) {
	return registry.LoadDir(filepath.Dir(e.path), e.suffix)
}

// Close releases the backend.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.backend.Close()
}
