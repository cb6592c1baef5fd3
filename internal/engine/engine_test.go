package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"gptlocal/internal/llm"
	"gptlocal/internal/prompt"
	"gptlocal/internal/resolver"
)

// fakeBackend replays a fixed list of tokens.
type fakeBackend struct {
	loaded     string
	loadErr    error
	threads    int
	tokens     []string
	genErr     error
	lastPrompt string
	lastParams llm.SamplingParams
	produced   int
	closed     bool
}

func (f *fakeBackend) Load(path string) error {
	if f.loadErr != nil {
		return f.loadErr
	}
	f.loaded = path
	return nil
}

func (f *fakeBackend) SetThreadCount(n int) { f.threads = n }

func (f *fakeBackend) Generate(ctx context.Context, text string, params llm.SamplingParams, onToken func(string) error) (string, error) {
	f.lastPrompt = text
	f.lastParams = params
	if f.genErr != nil {
		return "", f.genErr
	}
	var b strings.Builder
	for _, tok := range f.tokens {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		f.produced++
		b.WriteString(tok)
		if onToken != nil {
			if err := onToken(tok); err != nil {
				return b.String(), err
			}
		}
	}
	return b.String(), nil
}

func (f *fakeBackend) Close() error { f.closed = true; return nil }

type fakeResolver struct {
	path string
	err  error
	got  resolver.Request
}

func (f *fakeResolver) Resolve(ctx context.Context, req resolver.Request) (string, error) {
	f.got = req
	return f.path, f.err
}

func openTest(t *testing.T, be *fakeBackend) *Engine {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "tiny.bin")
	if err := os.WriteFile(p, []byte("w"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	e, err := Open(context.Background(), Options{
		Model:    "tiny",
		Threads:  3,
		Resolver: &fakeResolver{path: p},
		Backend:  be,
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return e
}

func TestOpen_LoadsAndConfiguresThreads(t *testing.T) {
	be := &fakeBackend{}
	e := openTest(t, be)
	if be.loaded != e.Path() || e.Name() != "tiny.bin" {
		t.Fatalf("loaded=%q name=%q", be.loaded, e.Name())
	}
	if be.threads != 3 {
		t.Fatalf("threads=%d", be.threads)
	}
	if err := e.Close(); err != nil || !be.closed {
		t.Fatalf("close: %v closed=%v", err, be.closed)
	}
}

func TestOpen_Errors(t *testing.T) {
	if _, err := Open(context.Background(), Options{}); err == nil {
		t.Fatalf("expected error without resolver/backend")
	}
	rerr := &resolver.UnknownModelError{Filename: "x.bin"}
	_, err := Open(context.Background(), Options{Resolver: &fakeResolver{err: rerr}, Backend: &fakeBackend{}})
	if !resolver.IsUnknownModel(err) {
		t.Fatalf("resolver error not propagated: %v", err)
	}
	_, err = Open(context.Background(), Options{
		Resolver: &fakeResolver{path: "/m.bin"},
		Backend:  &fakeBackend{loadErr: llm.ErrUnavailable("no engine")},
	})
	if !llm.IsUnavailable(err) {
		t.Fatalf("load error not wrapped: %v", err)
	}
}

func TestOpen_PassesRequest(t *testing.T) {
	fr := &fakeResolver{path: "/models/m.bin"}
	_, err := Open(context.Background(), Options{Model: "m", Dir: "/models", AllowDownload: true, Resolver: fr, Backend: &fakeBackend{}})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if fr.got.Name != "m" || fr.got.Dir != "/models" || !fr.got.AllowDownload {
		t.Fatalf("request=%+v", fr.got)
	}
}

func TestGenerate_AppliesDefaults(t *testing.T) {
	be := &fakeBackend{tokens: []string{"Hel", "lo"}}
	e := openTest(t, be)
	out, err := e.Generate(context.Background(), "hi", llm.SamplingParams{TopK: 1})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "Hello" {
		t.Fatalf("out=%q", out)
	}
	if be.lastParams.TopK != 1 || be.lastParams.MaxTokens != 200 {
		t.Fatalf("params=%+v", be.lastParams)
	}
}

func TestStream_YieldsTokensOnce(t *testing.T) {
	be := &fakeBackend{tokens: []string{"a", "b", "c"}}
	e := openTest(t, be)
	seq := e.Stream(context.Background(), "hi", llm.SamplingParams{})

	var got []string
	for tok, err := range seq {
		if err != nil {
			t.Fatalf("stream: %v", err)
		}
		got = append(got, tok)
	}
	if strings.Join(got, "") != "abc" {
		t.Fatalf("tokens=%v", got)
	}

	var second []error
	for _, err := range seq {
		second = append(second, err)
	}
	if len(second) != 1 || !errors.Is(second[0], ErrStreamConsumed) {
		t.Fatalf("second range: %v", second)
	}
}

func TestStream_IsLazyAndStoppable(t *testing.T) {
	be := &fakeBackend{tokens: []string{"a", "b", "c", "d"}}
	e := openTest(t, be)
	seq := e.Stream(context.Background(), "hi", llm.SamplingParams{})
	if be.produced != 0 {
		t.Fatalf("generation started before ranging")
	}
	for tok := range seq {
		if tok == "b" {
			break
		}
	}
	if be.produced != 2 {
		t.Fatalf("produced=%d, want 2", be.produced)
	}
	// the engine is usable again after an early break
	if _, err := e.Generate(context.Background(), "x", llm.SamplingParams{}); err != nil {
		t.Fatalf("generate after break: %v", err)
	}
}

func TestStream_PropagatesBackendError(t *testing.T) {
	be := &fakeBackend{genErr: errors.New("engine crashed")}
	e := openTest(t, be)
	var errs []error
	for _, err := range e.Stream(context.Background(), "hi", llm.SamplingParams{}) {
		errs = append(errs, err)
	}
	if len(errs) != 1 || errs[0] == nil || errs[0].Error() != "engine crashed" {
		t.Fatalf("errs=%v", errs)
	}
}

func TestChatCompletion(t *testing.T) {
	be := &fakeBackend{tokens: []string{"Blue", "."}}
	e := openTest(t, be)
	e.now = func() time.Time { return time.Unix(1700000000, 0) }
	e.newID = func() string { return "chatcmpl-test" }

	msgs := []prompt.Message{
		{Role: prompt.RoleSystem, Content: "S"},
		{Role: prompt.RoleUser, Content: "Sky color?"},
	}
	resp, err := e.ChatCompletion(context.Background(), msgs, DefaultChatOptions())
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	wantPrompt := prompt.Build(msgs, true, true)
	if be.lastPrompt != wantPrompt {
		t.Fatalf("prompt=%q want %q", be.lastPrompt, wantPrompt)
	}
	if resp.ID != "chatcmpl-test" || resp.Created != 1700000000 || resp.Model != "tiny.bin" {
		t.Fatalf("resp=%+v", resp)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Message.Role != "assistant" || resp.Choices[0].Message.Content != "Blue." {
		t.Fatalf("choices=%+v", resp.Choices)
	}
	u := resp.Usage
	if u.PromptTokens != len([]rune(wantPrompt)) || u.CompletionTokens != 5 || u.TotalTokens != u.PromptTokens+5 {
		t.Fatalf("usage=%+v", u)
	}
}

func TestChatCompletion_CountsCharactersNotBytes(t *testing.T) {
	be := &fakeBackend{tokens: []string{"héllo"}}
	e := openTest(t, be)
	resp, err := e.ChatCompletion(context.Background(), []prompt.Message{{Role: prompt.RoleUser, Content: "ü"}}, ChatOptions{})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Usage.CompletionTokens != 5 || resp.Usage.PromptTokens != 2 {
		t.Fatalf("usage=%+v", resp.Usage)
	}
}

func TestListModels(t *testing.T) {
	be := &fakeBackend{}
	e := openTest(t, be)
	if err := os.WriteFile(filepath.Join(filepath.Dir(e.Path()), "other.bin"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	models, err := e.ListModels()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("models=%+v", models)
	}
}
