package types

// Sampling carries optional generation knobs; zero values use server defaults.
type Sampling struct {
	// Maximum number of new tokens to generate.
	// example: 200
	MaxTokens int `json:"max_tokens,omitempty" example:"200"`
	// Sampling temperature (higher = more random); 0 is greedy, absent uses the default.
	// example: 0.7
	Temperature *float64 `json:"temperature,omitempty" example:"0.7"`
	// Top-K sampling: limit candidates to top K tokens.
	// example: 40
	TopK int `json:"top_k,omitempty" example:"40"`
	// Nucleus sampling probability.
	// example: 0.1
	TopP float64 `json:"top_p,omitempty" example:"0.1"`
	// Penalty applied to repeated tokens.
	// example: 1.18
	RepeatPenalty float64 `json:"repeat_penalty,omitempty" example:"1.18"`
	// How far back the repeat penalty looks.
	// example: 64
	RepeatLastN int `json:"repeat_last_n,omitempty" example:"64"`
	// Prompt tokens processed in parallel.
	// example: 128
	Batch int `json:"n_batch,omitempty" example:"128"`
	// Optional stop sequences.
	Stop []string `json:"stop,omitempty"`
	// Random seed; 0 lets the engine choose.
	Seed int `json:"seed,omitempty"`
}

// GenerateRequest is the body of POST /generate.
type GenerateRequest struct {
	// Raw prompt text, passed to the model unchanged.
	// example: Write a haiku about the ocean.
	Prompt string `json:"prompt" example:"Write a haiku about the ocean."`
	// Stream NDJSON token lines instead of a single JSON object.
	Stream bool `json:"stream,omitempty"`
	Sampling
}

// GenerateResponse is the non-streaming reply of POST /generate.
type GenerateResponse struct {
	Model   string `json:"model"`
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// ChatRequest is the body of POST /chat/completions.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
	// Insert the instruction header; defaults to true.
	Header *bool `json:"default_prompt_header,omitempty"`
	// Append the response footer; defaults to true.
	Footer *bool `json:"default_prompt_footer,omitempty"`
	Sampling
}

// ChatChoice is one generated alternative. Only one is ever returned.
type ChatChoice struct {
	Index   int         `json:"index"`
	Message ChatMessage `json:"message"`
}

// ChatResponse is returned by POST /chat/completions.
type ChatResponse struct {
	// example: chatcmpl-3b241101-e2bb-4255-8caf-4136c566a962
	ID string `json:"id"`
	// example: chat.completion
	Object string `json:"object"`
	// Creation time in unix seconds.
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Usage   Usage        `json:"usage"`
	Choices []ChatChoice `json:"choices"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	Models []Model `json:"models"`
	// Model currently loaded for generation.
	Loaded string `json:"loaded"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// example: 400
	Code int `json:"code" example:"400"`
}

// StreamChunk is one NDJSON line of a streaming POST /generate reply.
// Token lines carry Delta; the final line has Done set and carries Usage,
// or Error when generation failed after streaming began.
type StreamChunk struct {
	Delta string `json:"delta,omitempty"`
	Done  bool   `json:"done,omitempty"`
	Model string `json:"model,omitempty"`
	Usage *Usage `json:"usage,omitempty"`
	Error string `json:"error,omitempty"`
}
