package model

import "time"

// AuditCategory classifies an audit log entry.
type AuditCategory string

const (
	AuditToolCall      AuditCategory = "TOOL_CALL"
	AuditSecurityBlock AuditCategory = "SECURITY_BLOCK"
	AuditRateLimit     AuditCategory = "RATE_LIMIT"
	AuditPlanCreated   AuditCategory = "PLAN_CREATED"
	AuditPlanConfirmed AuditCategory = "PLAN_CONFIRMED"
	AuditPlanRejected  AuditCategory = "PLAN_REJECTED"
	AuditPlanExecuted  AuditCategory = "PLAN_EXECUTED"
	AuditActionSuccess AuditCategory = "ACTION_SUCCESS"
	AuditActionFailed  AuditCategory = "ACTION_FAILED"
)

// AuditEntry is a write-once record of a security-relevant event. Input and
// output snapshots are sanitized before persistence.
type AuditEntry struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Category       AuditCategory  `json:"category"`
	Tool           string         `json:"tool,omitempty"`
	Action         string         `json:"action"`
	Success        bool           `json:"success"`
	Input          map[string]any `json:"input,omitempty"`
	Output         map[string]any `json:"output,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// AuditQuery filters a user's audit history.
type AuditQuery struct {
	Category AuditCategory
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}

// AuditPage is one page of audit history.
type AuditPage struct {
	Entries []AuditEntry `json:"entries"`
	Total   int          `json:"total"`
}
