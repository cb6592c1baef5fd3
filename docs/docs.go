// Package docs is generated by swaggo/swag from the annotations in
// cmd/gptlocal and internal/httpapi. Regenerate with `make swagger-gen`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "gptlocal maintainers"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/chat/completions": {
            "post": {
                "description": "Renders the conversation into a single prompt and returns one assistant reply. Usage counts characters.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["generation"],
                "summary": "Chat completion",
                "parameters": [
                    {
                        "description": "Conversation and sampling parameters",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/types.ChatRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ChatResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/generate": {
            "post": {
                "description": "Runs the raw prompt through the model. With \"stream\": true the reply is NDJSON: one {\"delta\"} line per token, then a {\"done\": true} line with usage.",
                "consumes": ["application/json"],
                "produces": ["application/json", "application/x-ndjson"],
                "tags": ["generation"],
                "summary": "Generate a completion",
                "parameters": [
                    {
                        "description": "Prompt and sampling parameters",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/types.GenerateRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.GenerateResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/healthz": {
            "get": {
                "produces": ["text/plain"],
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "ok", "schema": {"type": "string"}}
                }
            }
        },
        "/models": {
            "get": {
                "description": "Model files in the loaded model's directory.",
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "List local models",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/readyz": {
            "get": {
                "description": "503 until the model is loaded.",
                "produces": ["text/plain"],
                "tags": ["health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "ready", "schema": {"type": "string"}},
                    "503": {"description": "loading", "schema": {"type": "string"}}
                }
            }
        }
    },
    "definitions": {
        "types.ChatChoice": {
            "type": "object",
            "properties": {
                "index": {"type": "integer"},
                "message": {"$ref": "#/definitions/types.ChatMessage"}
            }
        },
        "types.ChatMessage": {
            "type": "object",
            "properties": {
                "content": {"type": "string", "example": "Name three colors."},
                "role": {"type": "string", "example": "user"}
            }
        },
        "types.ChatRequest": {
            "type": "object",
            "properties": {
                "default_prompt_footer": {"type": "boolean"},
                "default_prompt_header": {"type": "boolean"},
                "max_tokens": {"type": "integer", "example": 200},
                "messages": {"type": "array", "items": {"$ref": "#/definitions/types.ChatMessage"}},
                "n_batch": {"type": "integer", "example": 128},
                "repeat_last_n": {"type": "integer", "example": 64},
                "repeat_penalty": {"type": "number", "example": 1.18},
                "seed": {"type": "integer"},
                "stop": {"type": "array", "items": {"type": "string"}},
                "temperature": {"type": "number", "example": 0.7},
                "top_k": {"type": "integer", "example": 40},
                "top_p": {"type": "number", "example": 0.1}
            }
        },
        "types.ChatResponse": {
            "type": "object",
            "properties": {
                "choices": {"type": "array", "items": {"$ref": "#/definitions/types.ChatChoice"}},
                "created": {"type": "integer"},
                "id": {"type": "string", "example": "chatcmpl-3b241101-e2bb-4255-8caf-4136c566a962"},
                "model": {"type": "string"},
                "object": {"type": "string", "example": "chat.completion"},
                "usage": {"$ref": "#/definitions/types.Usage"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 400},
                "error": {"type": "string", "example": "invalid JSON body"}
            }
        },
        "types.GenerateRequest": {
            "type": "object",
            "properties": {
                "max_tokens": {"type": "integer", "example": 200},
                "n_batch": {"type": "integer", "example": 128},
                "prompt": {"type": "string", "example": "Write a haiku about the ocean."},
                "repeat_last_n": {"type": "integer", "example": 64},
                "repeat_penalty": {"type": "number", "example": 1.18},
                "seed": {"type": "integer"},
                "stop": {"type": "array", "items": {"type": "string"}},
                "stream": {"type": "boolean"},
                "temperature": {"type": "number", "example": 0.7},
                "top_k": {"type": "integer", "example": 40},
                "top_p": {"type": "number", "example": 0.1}
            }
        },
        "types.GenerateResponse": {
            "type": "object",
            "properties": {
                "content": {"type": "string"},
                "model": {"type": "string"},
                "usage": {"$ref": "#/definitions/types.Usage"}
            }
        },
        "types.Model": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "ggml-gpt4all-j-v1.3-groovy.bin"},
                "path": {"type": "string", "example": "/home/user/.cache/gpt4all/ggml-gpt4all-j-v1.3-groovy.bin"},
                "size_bytes": {"type": "integer", "example": 3785248281}
            }
        },
        "types.ModelsResponse": {
            "type": "object",
            "properties": {
                "loaded": {"type": "string"},
                "models": {"type": "array", "items": {"$ref": "#/definitions/types.Model"}}
            }
        },
        "types.Usage": {
            "type": "object",
            "properties": {
                "completion_tokens": {"type": "integer", "example": 42},
                "prompt_tokens": {"type": "integer", "example": 120},
                "total_tokens": {"type": "integer", "example": 162}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "gptlocal API",
	Description:      "HTTP API for local model resolution and text generation.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
