package model

import (
	"context"
	"sort"
)

// ActionType classifies what a tool does to business data. It drives the
// confirmation requirement: everything except READ needs explicit user
// confirmation before execution.
type ActionType string

const (
	ActionRead          ActionType = "READ"
	ActionCreate        ActionType = "CREATE"
	ActionUpdate        ActionType = "UPDATE"
	ActionDelete        ActionType = "DELETE"
	ActionPaymentCreate ActionType = "PAYMENT_CREATE"
)

// RequiresConfirmation reports whether this action type needs an explicit
// user confirmation before execution.
func (a ActionType) RequiresConfirmation() bool {
	return a != ActionRead
}

// ActionTypes lists every defined action type.
func ActionTypes() []ActionType {
	return []ActionType{ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionPaymentCreate}
}

// ParameterSpec describes one declared tool parameter.
type ParameterSpec struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// ToolMetadata is the static descriptor of a registered tool. One instance
// per tool, registered once at startup and immutable afterwards.
type ToolMetadata struct {
	// Name is the dotted unique identifier, e.g. "customers.create".
	Name        string
	Description string
	ActionType  ActionType

	// Parameters declares the accepted parameters keyed by name.
	Parameters map[string]ParameterSpec

	// RequiredPermissions lists permission strings the caller must hold.
	RequiredPermissions []string

	// RequiresPaymentPreview marks tools that must reference a payment
	// preview id rather than raw payment fields.
	RequiresPaymentPreview bool
}

// RequiredParams returns the names of required parameters in a stable order.
func (m ToolMetadata) RequiredParams() []string {
	var names []string
	for name, spec := range m.Parameters {
		if spec.Required {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// MissingParams returns the required parameter names absent (or empty) in params.
func (m ToolMetadata) MissingParams(params map[string]any) []string {
	var missing []string
	for _, name := range m.RequiredParams() {
		v, ok := params[name]
		if !ok || v == nil || v == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	// ID is the provider-assigned call identifier (synthesised when absent).
	ID string `json:"id"`

	// Name is the dotted tool name.
	Name string `json:"name"`

	// Arguments is the JSON-encoded argument object.
	Arguments string `json:"arguments"`
}

// ToolContext is the per-call execution context. It is constructed fresh for
// every invocation and never persisted as-is.
type ToolContext struct {
	UserID         string
	ConversationID string

	// PlanID is set when the call executes as part of a confirmed plan.
	PlanID string

	// IdempotencyKey deduplicates retried side-effecting calls.
	IdempotencyKey string

	// Request metadata for audit.
	IPAddress string
	UserAgent string
}

// AffectedEntity records one business entity touched by a tool execution.
type AffectedEntity struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Action string `json:"action"`
}

// ToolResult is the outcome envelope of a single tool execution.
type ToolResult struct {
	Success          bool             `json:"success"`
	Data             any              `json:"data,omitempty"`
	Error            string           `json:"error,omitempty"`
	ErrorCode        string           `json:"error_code,omitempty"`
	AffectedEntities []AffectedEntity `json:"affected_entities,omitempty"`
}

// Tool is the capability interface every registered business operation
// implements. The registry drives the sequence permission check → validation
// → execution → audit; implementations only supply the individual steps.
type Tool interface {
	// Metadata returns the static descriptor for this tool.
	Metadata() ToolMetadata

	// CheckPermission reports whether the caller may invoke this tool.
	CheckPermission(ctx context.Context, tctx ToolContext) (bool, error)

	// Validate checks params and returns a descriptive error when invalid.
	// The error text is surfaced verbatim to the user.
	Validate(params map[string]any) error

	// Execute performs the business operation.
	Execute(ctx context.Context, params map[string]any, tctx ToolContext) (*ToolResult, error)
}
