package types

// Model is a model file present on local disk.
type Model struct {
	// Canonical filename, used as the identifier.
	// example: ggml-gpt4all-j-v1.3-groovy.bin
	ID string `json:"id" example:"ggml-gpt4all-j-v1.3-groovy.bin"`
	// Absolute path to the model file.
	// example: /home/user/.cache/gpt4all/ggml-gpt4all-j-v1.3-groovy.bin
	Path string `json:"path" example:"/home/user/.cache/gpt4all/ggml-gpt4all-j-v1.3-groovy.bin"`
	// File size in bytes.
	// example: 3785248281
	SizeBytes int64 `json:"size_bytes" example:"3785248281"`
}

// Usage is length-based accounting: character counts, not tokenizer tokens.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens" example:"120"`
	CompletionTokens int `json:"completion_tokens" example:"42"`
	TotalTokens      int `json:"total_tokens" example:"162"`
}

// ChatMessage is one conversation turn on the wire.
type ChatMessage struct {
	// One of system, user, assistant.
	// example: user
	Role string `json:"role" example:"user"`
	// example: Name three colors.
	Content string `json:"content" example:"Name three colors."`
}
