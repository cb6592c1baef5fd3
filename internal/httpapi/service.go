package httpapi

import (
	"context"
	"iter"
	"net/http"
	"sync"

	"gptlocal/internal/engine"
	"gptlocal/internal/llm"
	"gptlocal/internal/prompt"
	"gptlocal/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *engine.Engine satisfies it.
type Service interface {
	Name() string
	ListModels() ([]types.Model, error)
	Generate(ctx context.Context, text string, params llm.SamplingParams) (string, error)
	Stream(ctx context.Context, text string, params llm.SamplingParams) iter.Seq2[string, error]
	ChatCompletion(ctx context.Context, messages []prompt.Message, opts engine.ChatOptions) (types.ChatResponse, error)
}

// readiness is implemented by services that load in the background.
type readiness interface{ Ready() bool }

// notReadyError is returned by Deferred until a service is installed.
type notReadyError struct{ cause error }

func (e *notReadyError) Error() string {
	if e.cause != nil {
		return "model failed to load: " + e.cause.Error()
	}
	return "model is loading"
}

func (e *notReadyError) StatusCode() int { return http.StatusServiceUnavailable }

func (e *notReadyError) Unwrap() error { return e.cause }

// Deferred lets the server start listening before the model has been
// resolved and loaded. Calls fail with 503 until Set is called.
type Deferred struct {
	mu  sync.RWMutex
	svc Service
	err error
}

// Set installs the loaded service.
func (d *Deferred) Set(svc Service) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.svc, d.err = svc, nil
}

// Fail records a load failure; requests report it with 503.
func (d *Deferred) Fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// Ready reports whether a service is installed.
func (d *Deferred) Ready() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.svc != nil
}

func (d *Deferred) current() (Service, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.svc == nil {
		return nil, &notReadyError{cause: d.err}
	}
	return d.svc, nil
}

func (d *Deferred) Name() string {
	if s, err := d.current(); err == nil {
		return s.Name()
	}
	return ""
}

func (d *Deferred) ListModels() ([]types.Model, error) {
	s, err := d.current()
	if err != nil {
		return nil, err
	}
	return s.ListModels()
}

func (d *Deferred) Generate(ctx context.Context, text string, params llm.SamplingParams) (string, error) {
	s, err := d.current()
	if err != nil {
		return "", err
	}
	return s.Generate(ctx, text, params)
}

func (d *Deferred) Stream(ctx context.Context, text string, params llm.SamplingParams) iter.Seq2[string, error] {
	s, err := d.current()
	if err != nil {
		return func(yield func(string, error) bool) { yield("", err) }
	}
	return s.Stream(ctx, text, params)
}

func (d *Deferred) ChatCompletion(ctx context.Context, messages []prompt.Message, opts engine.ChatOptions) (types.ChatResponse, error) {
	s, err := d.current()
	if err != nil {
		return types.ChatResponse{}, err
	}
	return s.ChatCompletion(ctx, messages, opts)
}
