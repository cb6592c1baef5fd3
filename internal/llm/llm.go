// Package llm is the boundary to the native inference engine. Keep this
// surface small; tokenization, sampling and execution stay in native code.
//
// The go-llama.cpp backend is compiled with `-tags=llama`. Without the tag a
// stub is built that fails fast on Load, keeping default builds CGO-free.
package llm

import (
	"context"
	"errors"
)

// Backend is a loaded-model runtime.
type Backend interface {
	// Load reads the model file at path. It must succeed before Generate.
	Load(path string) error
	// SetThreadCount sets the CPU threads used by later generations.
	SetThreadCount(n int)
	// Generate runs the prompt to completion and returns the full text.
	// onToken, when non-nil, receives each fragment as it is produced;
	// returning an error from it stops generation.
	Generate(ctx context.Context, prompt string, params SamplingParams, onToken func(string) error) (string, error)
	// Close releases the model.
	Close() error
}

// SamplingParams are generation-time knobs passed through to the engine.
// Zero fields, and a nil Temperature, are replaced by DefaultSamplingParams values.
type SamplingParams struct {
	MaxTokens     int      `json:"max_tokens,omitempty" yaml:"max_tokens" toml:"max_tokens"`
	// Temperature nil means the default; 0 selects greedy decoding.
	Temperature   *float32 `json:"temperature,omitempty" yaml:"temperature" toml:"temperature"`
	TopK          int      `json:"top_k,omitempty" yaml:"top_k" toml:"top_k"`
	TopP          float32  `json:"top_p,omitempty" yaml:"top_p" toml:"top_p"`
	RepeatPenalty float32  `json:"repeat_penalty,omitempty" yaml:"repeat_penalty" toml:"repeat_penalty"`
	RepeatLastN   int      `json:"repeat_last_n,omitempty" yaml:"repeat_last_n" toml:"repeat_last_n"`
	Batch         int      `json:"n_batch,omitempty" yaml:"n_batch" toml:"n_batch"`
	Stop          []string `json:"stop,omitempty" yaml:"stop" toml:"stop"`
	Seed          int      `json:"seed,omitempty" yaml:"seed" toml:"seed"`
}

// DefaultSamplingParams returns the defaults used when a field is unset.
func DefaultSamplingParams() SamplingParams {
	return SamplingParams{
		MaxTokens:     200,
		Temperature:   Float32(0.7),
		TopK:          40,
		TopP:          0.1,
		RepeatPenalty: 1.18,
		RepeatLastN:   64,
		Batch:         128,
	}
}

// Float32 returns a pointer to v, for setting Temperature.
func Float32(v float32) *float32 { return &v }

// Temp returns the effective temperature.
func (p SamplingParams) Temp() float32 {
	if p.Temperature == nil || *p.Temperature < 0 {
		return *DefaultSamplingParams().Temperature
	}
	return *p.Temperature
}

// WithDefaults returns p with every zero field taken from DefaultSamplingParams.
func (p SamplingParams) WithDefaults() SamplingParams {
	d := DefaultSamplingParams()
	if p.MaxTokens <= 0 {
		p.MaxTokens = d.MaxTokens
	}
	if p.Temperature == nil || *p.Temperature < 0 {
		p.Temperature = d.Temperature
	}
	if p.TopK <= 0 {
		p.TopK = d.TopK
	}
	if p.TopP <= 0 {
		p.TopP = d.TopP
	}
	if p.RepeatPenalty <= 0 {
		p.RepeatPenalty = d.RepeatPenalty
	}
	if p.RepeatLastN <= 0 {
		p.RepeatLastN = d.RepeatLastN
	}
	if p.Batch <= 0 {
		p.Batch = d.Batch
	}
	return p
}

// Merge overlays the non-zero fields of o onto p.
func (p SamplingParams) Merge(o SamplingParams) SamplingParams {
	if o.MaxTokens > 0 {
		p.MaxTokens = o.MaxTokens
	}
	if o.Temperature != nil {
		p.Temperature = Float32(*o.Temperature)
	}
	if o.TopK > 0 {
		p.TopK = o.TopK
	}
	if o.TopP > 0 {
		p.TopP = o.TopP
	}
	if o.RepeatPenalty > 0 {
		p.RepeatPenalty = o.RepeatPenalty
	}
	if o.RepeatLastN > 0 {
		p.RepeatLastN = o.RepeatLastN
	}
	if o.Batch > 0 {
		p.Batch = o.Batch
	}
	if len(o.Stop) > 0 {
		p.Stop = append([]string(nil), o.Stop...)
	}
	if o.Seed != 0 {
		p.Seed = o.Seed
	}
	return p
}

// ErrNotLoaded is returned by Generate before a successful Load.
var ErrNotLoaded = errors.New("llm: model not loaded")

// unavailableError signals that the native engine is not part of this build.
type unavailableError struct{ msg string }

func (e unavailableError) Error() string { return e.msg }

// ErrUnavailable constructs an unavailableError.
func ErrUnavailable(msg string) error { return unavailableError{msg: msg} }

// IsUnavailable reports whether err indicates a missing runtime dependency.
func IsUnavailable(err error) bool {
	var ue unavailableError
	return errors.As(err, &ue)
}
