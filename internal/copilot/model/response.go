package model

// ResponseType is the discriminator distinguishing the four shapes an
// assistant turn can take.
type ResponseType string

const (
	ResponsePlan     ResponseType = "PLAN"
	ResponseCallTool ResponseType = "CALL_TOOL"
	ResponseAskUser  ResponseType = "ASK_USER"
	ResponseMessage  ResponseType = "RESPONSE"
)

// PlanResponse proposes an operation that still needs field collection or
// user confirmation.
type PlanResponse struct {
	Action               string         `json:"action"`
	CollectedFields      map[string]any `json:"collectedFields"`
	MissingFields        []string       `json:"missingFields"`
	SuggestedActions     []string       `json:"suggestedActions,omitempty"`
	RequiresConfirmation bool           `json:"requiresConfirmation"`
}

// CallToolResponse requests immediate execution of a named tool.
type CallToolResponse struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
}

// AskUserResponse asks the user a clarifying question.
type AskUserResponse struct {
	Question string   `json:"question"`
	Context  string   `json:"context,omitempty"`
	Options  []string `json:"options,omitempty"`
}

// MessageResponse is a plain informative reply.
type MessageResponse struct {
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// AssistantResponse is the tagged union over the four response shapes.
// Exactly one variant field is non-nil, selected by Type.
type AssistantResponse struct {
	Type     ResponseType      `json:"type"`
	Plan     *PlanResponse     `json:"plan,omitempty"`
	CallTool *CallToolResponse `json:"call_tool,omitempty"`
	AskUser  *AskUserResponse  `json:"ask_user,omitempty"`
	Message  *MessageResponse  `json:"message,omitempty"`
}

// IsPlan reports whether the response carries a plan proposal.
func (r *AssistantResponse) IsPlan() bool { return r != nil && r.Type == ResponsePlan }

// IsCallTool reports whether the response carries a direct tool call.
func (r *AssistantResponse) IsCallTool() bool { return r != nil && r.Type == ResponseCallTool }

// IsAskUser reports whether the response carries a clarifying question.
func (r *AssistantResponse) IsAskUser() bool { return r != nil && r.Type == ResponseAskUser }

// IsMessage reports whether the response carries a plain message.
func (r *AssistantResponse) IsMessage() bool { return r != nil && r.Type == ResponseMessage }

// NewPlanResponse wraps a PlanResponse into the union.
func NewPlanResponse(p PlanResponse) *AssistantResponse {
	if p.CollectedFields == nil {
		p.CollectedFields = map[string]any{}
	}
	if p.MissingFields == nil {
		p.MissingFields = []string{}
	}
	return &AssistantResponse{Type: ResponsePlan, Plan: &p}
}

// NewCallToolResponse wraps a CallToolResponse into the union.
func NewCallToolResponse(c CallToolResponse) *AssistantResponse {
	if c.Params == nil {
		c.Params = map[string]any{}
	}
	return &AssistantResponse{Type: ResponseCallTool, CallTool: &c}
}

// NewAskUserResponse wraps an AskUserResponse into the union.
func NewAskUserResponse(a AskUserResponse) *AssistantResponse {
	return &AssistantResponse{Type: ResponseAskUser, AskUser: &a}
}

// NewMessageResponse wraps a MessageResponse into the union.
func NewMessageResponse(m MessageResponse) *AssistantResponse {
	return &AssistantResponse{Type: ResponseMessage, Message: &m}
}
