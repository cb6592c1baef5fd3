//go:build !llama

package llm

import (
	"context"
	"testing"
)

func TestStubBackendFailsFast(t *testing.T) {
	if LlamaBuilt {
		t.Fatalf("stub build must report LlamaBuilt=false")
	}
	b := NewLlamaBackend(2048)
	if err := b.Load("/models/m.bin"); !IsUnavailable(err) {
		t.Fatalf("Load: expected unavailable, got %v", err)
	}
	b.SetThreadCount(4)
	if _, err := b.Generate(context.Background(), "hi", SamplingParams{}, nil); !IsUnavailable(err) {
		t.Fatalf("Generate: expected unavailable, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Generate(ctx, "hi", SamplingParams{}, nil); err != context.Canceled {
		t.Fatalf("Generate with canceled ctx: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
