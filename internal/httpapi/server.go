package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gptlocal/internal/engine"
	"gptlocal/internal/llm"
	"gptlocal/internal/prompt"
	"gptlocal/pkg/types"
)

// chat prompt defaults used when a request leaves them unset.
var (
	chatHeader = true
	chatFooter = true
)

// SetChatDefaults sets whether chat prompts include the header and footer
// when the request does not say.
func SetChatDefaults(header, footer bool) {
	chatHeader, chatFooter = header, footer
}

// NewMux builds the HTTP handler for svc.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Recoverer)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id", "X-Log-Level"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}
	// ndjson is not in the compressible set, so streams stay unbuffered
	r.Use(middleware.Compress(5))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := &handlers{svc: svc}
	r.Get("/models", h.models)
	r.Post("/generate", h.generate)
	r.Post("/chat/completions", h.chat)
	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)
	return r
}

type handlers struct {
	svc Service
}

// models godoc
// @Summary      List local models
// @Description  Model files in the loaded model's directory.
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.ModelsResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /models [get]
func (h *handlers) models(w http.ResponseWriter, r *http.Request) {
	models, err := h.svc.ListModels()
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	if models == nil {
		models = []types.Model{}
	}
	writeJSON(w, types.ModelsResponse{Models: models, Loaded: h.svc.Name()})
}

// generate godoc
// @Summary      Generate a completion
// @Description  Runs the raw prompt through the model. With "stream": true the reply is NDJSON: one {"delta"} line per token, then a {"done": true} line with usage.
// @Tags         generation
// @Accept       json
// @Produce      json
// @Produce      application/x-ndjson
// @Param        request  body      types.GenerateRequest  true  "Prompt and sampling parameters"
// @Success      200      {object}  types.GenerateResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Router       /generate [post]
func (h *handlers) generate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSONError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	lvl := requestLogLevel(r)
	start := time.Now()
	if lvl >= LevelInfo {
		reqEvent(zlog.Info(), r).Str("model", h.svc.Name()).Bool("stream", req.Stream).Msg("generate start")
	}
	ctx, cancel := requestContext(r.Context())
	defer cancel()
	release, status, ok := admit(ctx, w, r)
	if !ok {
		logEnd(r, lvl, "generate end", status, start, nil)
		return
	}
	defer release()

	if req.Stream {
		status, err := h.stream(ctx, w, r, req, lvl)
		logEnd(r, lvl, "generate end", status, start, err)
		return
	}

	out, err := h.svc.Generate(ctx, req.Prompt, toParams(req.Sampling))
	observeGeneration("generate", err, utf8.RuneCountInString(out))
	if err != nil {
		if canceled(r) {
			return
		}
		status := statusFor(err)
		writeJSONError(w, status, err.Error())
		logEnd(r, lvl, "generate end", status, start, err)
		return
	}
	writeJSON(w, types.GenerateResponse{
		Model:   h.svc.Name(),
		Content: out,
		Usage:   usage(req.Prompt, out),
	})
	logEnd(r, lvl, "generate end", http.StatusOK, start, nil)
}

// stream writes NDJSON token lines. Errors before the first token get a
// regular JSON error response; later errors end the stream with an error line.
func (h *handlers) stream(ctx context.Context, w http.ResponseWriter, r *http.Request, req types.GenerateRequest, lvl LogLevel) (int, error) {
	var out io.Writer = w
	if lvl >= LevelDebug {
		out = io.MultiWriter(w, &loggingLineWriter{log: zlog})
	}
	enc := json.NewEncoder(out)
	flush := func() {}
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}

	var b strings.Builder
	started := false
	for tok, err := range h.svc.Stream(ctx, req.Prompt, toParams(req.Sampling)) {
		if err != nil {
			observeGeneration("generate_stream", err, utf8.RuneCountInString(b.String()))
			if canceled(r) {
				return 0, err
			}
			status := statusFor(err)
			if !started {
				writeJSONError(w, status, err.Error())
				return status, err
			}
			_ = enc.Encode(types.StreamChunk{Done: true, Error: err.Error()})
			flush()
			return http.StatusOK, err
		}
		if !started {
			w.Header().Set("Content-Type", "application/x-ndjson")
			started = true
		}
		b.WriteString(tok)
		if err := enc.Encode(types.StreamChunk{Delta: tok}); err != nil {
			// client went away; breaking stops generation
			return http.StatusOK, err
		}
		flush()
	}
	if !started {
		w.Header().Set("Content-Type", "application/x-ndjson")
	}
	u := usage(req.Prompt, b.String())
	observeGeneration("generate_stream", nil, u.CompletionTokens)
	_ = enc.Encode(types.StreamChunk{Done: true, Model: h.svc.Name(), Usage: &u})
	flush()
	return http.StatusOK, nil
}

// chat godoc
// @Summary      Chat completion
// @Description  Renders the conversation into a single prompt and returns one assistant reply. Usage counts characters.
// @Tags         generation
// @Accept       json
// @Produce      json
// @Param        request  body      types.ChatRequest  true  "Conversation and sampling parameters"
// @Success      200      {object}  types.ChatResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Router       /chat/completions [post]
func (h *handlers) chat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Messages) == 0 {
		writeJSONError(w, http.StatusBadRequest, "messages are required")
		return
	}
	msgs := make([]prompt.Message, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = prompt.Message{Role: prompt.Role(m.Role), Content: m.Content}
	}
	if err := prompt.Validate(msgs); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts := engine.ChatOptions{Header: chatHeader, Footer: chatFooter, Params: toParams(req.Sampling)}
	if req.Header != nil {
		opts.Header = *req.Header
	}
	if req.Footer != nil {
		opts.Footer = *req.Footer
	}

	lvl := requestLogLevel(r)
	start := time.Now()
	if lvl >= LevelInfo {
		reqEvent(zlog.Info(), r).Str("model", h.svc.Name()).Int("messages", len(msgs)).Msg("chat start")
	}
	ctx, cancel := requestContext(r.Context())
	defer cancel()
	release, status, ok := admit(ctx, w, r)
	if !ok {
		logEnd(r, lvl, "chat end", status, start, nil)
		return
	}
	defer release()

	resp, err := h.svc.ChatCompletion(ctx, msgs, opts)
	observeGeneration("chat", err, resp.Usage.CompletionTokens)
	if err != nil {
		if canceled(r) {
			return
		}
		status := statusFor(err)
		writeJSONError(w, status, err.Error())
		logEnd(r, lvl, "chat end", status, start, err)
		return
	}
	writeJSON(w, resp)
	logEnd(r, lvl, "chat end", http.StatusOK, start, nil)
}

// healthz godoc
// @Summary  Liveness probe
// @Tags     health
// @Produce  plain
// @Success  200  {string}  string  "ok"
// @Router   /healthz [get]
func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readyz godoc
// @Summary  Readiness probe
// @Description  503 until the model is loaded.
// @Tags     health
// @Produce  plain
// @Success  200  {string}  string  "ready"
// @Failure  503  {string}  string  "loading"
// @Router   /readyz [get]
func (h *handlers) readyz(w http.ResponseWriter, r *http.Request) {
	if rd, ok := h.svc.(readiness); ok && !rd.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// decodeJSON enforces the content type and body limit and decodes into v.
// It writes the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// oversized bodies are reported like any other bad body
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func toParams(s types.Sampling) llm.SamplingParams {
	p := llm.SamplingParams{
		MaxTokens:     s.MaxTokens,
		TopK:          s.TopK,
		TopP:          float32(s.TopP),
		RepeatPenalty: float32(s.RepeatPenalty),
		RepeatLastN:   s.RepeatLastN,
		Batch:         s.Batch,
		Stop:          s.Stop,
		Seed:          s.Seed,
	}
	if s.Temperature != nil {
		p.Temperature = llm.Float32(float32(*s.Temperature))
	}
	return p
}

func usage(in, out string) types.Usage {
	p, c := utf8.RuneCountInString(in), utf8.RuneCountInString(out)
	return types.Usage{PromptTokens: p, CompletionTokens: c, TotalTokens: p + c}
}

// canceled reports whether the client or the server gave up on r.
func canceled(r *http.Request) bool {
	return r.Context().Err() != nil || serverBaseCtx.Err() != nil
}

func logEnd(r *http.Request, lvl LogLevel, msg string, status int, start time.Time, err error) {
	switch {
	case err != nil && !errors.Is(err, context.Canceled) && lvl >= LevelError:
		reqEvent(zlog.Error(), r).Int("status", status).Dur("dur", time.Since(start)).Err(err).Msg(msg)
	case lvl >= LevelInfo:
		reqEvent(zlog.Info(), r).Int("status", status).Dur("dur", time.Since(start)).Msg(msg)
	}
}
