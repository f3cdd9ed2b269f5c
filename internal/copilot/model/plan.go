package model

import "time"

// PlanState tracks the confirmation workflow of a pending plan.
type PlanState string

const (
	PlanIdle                 PlanState = "IDLE"
	PlanCollecting           PlanState = "COLLECTING"
	PlanAwaitingConfirmation PlanState = "AWAITING_CONFIRMATION"
	PlanExecuting            PlanState = "EXECUTING"
	PlanRejected             PlanState = "REJECTED"
	PlanExpired              PlanState = "EXPIRED"
)

// Terminal reports whether the state ends the plan lifecycle.
func (s PlanState) Terminal() bool {
	return s == PlanExecuting || s == PlanRejected || s == PlanExpired
}

// PlanAction is one proposed operation inside a plan.
type PlanAction struct {
	ID          string         `json:"id"`
	Tool        string         `json:"tool"`
	Params      map[string]any `json:"params"`
	Description string         `json:"description"`
	ActionType  ActionType     `json:"action_type"`

	// PaymentPreview snapshots the preview embedded for payment actions.
	PaymentPreview *PaymentPreview `json:"payment_preview,omitempty"`
}

// PlanSummary aggregates the actions awaiting confirmation for one
// conversation, together with the still-missing fields of the in-flight
// action and the plan's expiry.
type PlanSummary struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversation_id"`
	UserID         string       `json:"user_id"`
	Actions        []PlanAction `json:"actions"`
	MissingFields  []string     `json:"missing_fields"`
	State          PlanState    `json:"state"`
	HasPayment     bool         `json:"has_payment"`
	CreatedAt      time.Time    `json:"created_at"`
	ExpiresAt      time.Time    `json:"expires_at"`
}

// CurrentAction returns the action whose fields are being collected. Plans
// built from a single PLAN response carry exactly one action.
func (p *PlanSummary) CurrentAction() *PlanAction {
	if p == nil || len(p.Actions) == 0 {
		return nil
	}
	return &p.Actions[len(p.Actions)-1]
}

// Expired reports whether the plan TTL lapsed before confirmation.
func (p *PlanSummary) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
