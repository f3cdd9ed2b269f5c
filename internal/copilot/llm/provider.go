// Package llm defines the provider abstraction over pluggable completion
// backends. Two HTTP-backed providers (Gemini, OpenAI) and one deterministic
// scripted stand-in implement the same contract; a Selector routes calls to a
// primary provider and fails over to the stand-in so a conversation turn
// never hard-stops on an upstream outage.
package llm

import (
	"context"
	"net/http"

	errx "github.com/fieldops-copilot/server/internal/core/error"

	"github.com/fieldops-copilot/server/internal/copilot/model"
)

// FinishReason explains why the model stopped generating.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishToolCalls     FinishReason = "tool_calls"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content_filter"
)

// Usage holds token accounting returned by the backend. Counts are in the
// model's native token unit and may differ between providers for the same text.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request carries everything a backend needs to produce a completion.
// Messages must be non-empty; a zero-value request is invalid.
type Request struct {
	// Messages is the ordered transcript. System-role messages are folded
	// into whatever system-prompt mechanism the backend natively supports.
	Messages []model.Message

	// Tools is the set of tool descriptors offered to the model.
	Tools []model.ToolMetadata

	Temperature float64
	MaxTokens   int
	Stop        []string
}

// Response is the provider-agnostic completion result.
type Response struct {
	Content      string
	ToolCalls    []model.ToolCall
	Usage        Usage
	FinishReason FinishReason
}

// Provider is the uniform contract over completion backends.
type Provider interface {
	// Name identifies the backend in logs and audit payloads.
	Name() string

	// IsAvailable checks local configuration only; it never touches the network.
	IsAvailable() bool

	// Complete sends the request and waits for the full response.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Fail wraps an upstream provider failure in the typed error the selector
// keys its fallback decision on.
func Fail(provider string, err error) *errx.Error {
	return errx.NewCoded(err, http.StatusBadGateway, errx.CodeProviderFailed, provider+" completion failed")
}
