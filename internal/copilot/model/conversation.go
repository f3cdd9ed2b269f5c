package model

import (
	"context"
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single entry in a conversation transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Name optionally identifies the participant (multi-speaker contexts).
	Name string `json:"name,omitempty"`

	// ToolCalls carries tool invocations requested by the assistant.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool-role message back to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// SystemMessage builds a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// ConversationStatus is the lifecycle state of a chat session.
type ConversationStatus string

const (
	ConversationActive    ConversationStatus = "active"
	ConversationCompleted ConversationStatus = "completed"
	ConversationExpired   ConversationStatus = "expired"
)

// ConversationHistory represents loaded conversation data with metadata.
type ConversationHistory struct {
	ConversationID string
	Messages       []Message
}

// LastUserMessage returns the content of the most recent user-role message,
// or the empty string when the transcript has none.
func (h *ConversationHistory) LastUserMessage() string {
	for i := len(h.Messages) - 1; i >= 0; i-- {
		if h.Messages[i].Role == RoleUser {
			return h.Messages[i].Content
		}
	}
	return ""
}

// ConversationRepository persists per-conversation transcripts. The backing
// store owns TTL semantics; this core never schedules expiry itself.
type ConversationRepository interface {
	// AddMessage appends a message to the conversation history.
	AddMessage(ctx context.Context, conversationID string, message Message) error

	// LoadHistory retrieves the conversation history for a conversation.
	LoadHistory(ctx context.Context, conversationID string) (*ConversationHistory, error)

	// ClearHistory removes all conversation history for a conversation.
	ClearHistory(ctx context.Context, conversationID string) error

	// GetMessageCount returns the number of messages in the conversation.
	GetMessageCount(ctx context.Context, conversationID string) (int, error)
}

// PlanStore persists the single pending plan attached to a conversation.
// Implementations apply the plan TTL; a lapsed plan is simply absent.
type PlanStore interface {
	SavePlan(ctx context.Context, plan *PlanSummary) error
	GetPlan(ctx context.Context, conversationID string) (*PlanSummary, error)
	ClearPlan(ctx context.Context, conversationID string) error
}

// PreviewStore persists payment previews keyed by preview id, with the
// preview TTL applied by the implementation.
type PreviewStore interface {
	SavePreview(ctx context.Context, preview *PaymentPreview) error
	GetPreview(ctx context.Context, previewID string) (*PaymentPreview, error)
}

// SubscriptionStore resolves the subscription tier for a user. A user with no
// record resolves to (TierFree, false, nil).
type SubscriptionStore interface {
	GetTier(ctx context.Context, userID string) (Tier, bool, error)
}

// PaymentPreview is the non-committal dry run of a charge. The real
// charge-creating call must reference ID instead of re-supplying amounts.
type PaymentPreview struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	CustomerID  string    `json:"customer_id"`
	Description string    `json:"description"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the preview lapsed before use.
func (p *PaymentPreview) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
