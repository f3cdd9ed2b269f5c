// Package api exposes the copilot over HTTP: one chat endpoint, explicit
// plan confirm/reject endpoints, tool discovery and the audit history.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/fieldops-copilot/server/internal/api/respond"
	"github.com/fieldops-copilot/server/internal/copilot"
	"github.com/fieldops-copilot/server/internal/copilot/audit"
	"github.com/fieldops-copilot/server/internal/copilot/model"
	"github.com/fieldops-copilot/server/internal/copilot/registry"
)

// Handler bundles the HTTP endpoints over the gateway.
type Handler struct {
	gateway  *copilot.Gateway
	registry *registry.Registry
	sink     audit.Sink
}

func NewHandler(gateway *copilot.Gateway, reg *registry.Registry, sink audit.Sink) *Handler {
	return &Handler{gateway: gateway, registry: reg, sink: sink}
}

type messageBody struct {
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

func (h *Handler) requestFrom(r *http.Request, body messageBody) copilot.MessageRequest {
	return copilot.MessageRequest{
		UserID:         body.UserID,
		ConversationID: body.ConversationID,
		Message:        body.Message,
		IdempotencyKey: body.IdempotencyKey,
		IPAddress:      r.RemoteAddr,
		UserAgent:      r.UserAgent(),
	}
}

// PostMessage handles one chat turn.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var body messageBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}

	reply, err := h.gateway.HandleMessage(r.Context(), h.requestFrom(r, body))
	if err != nil {
		respond.WriteAppError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, reply)
}

// ConfirmPlan confirms the pending plan of a conversation.
func (h *Handler) ConfirmPlan(w http.ResponseWriter, r *http.Request) {
	var body messageBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if body.UserID == "" || body.ConversationID == "" {
		respond.WriteBadRequest(w, "user_id and conversation_id are required")
		return
	}

	reply, err := h.gateway.ConfirmPlan(r.Context(), h.requestFrom(r, body))
	if err != nil {
		respond.WriteAppError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, reply)
}

// RejectPlan discards the pending plan of a conversation.
func (h *Handler) RejectPlan(w http.ResponseWriter, r *http.Request) {
	var body messageBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if body.UserID == "" || body.ConversationID == "" {
		respond.WriteBadRequest(w, "user_id and conversation_id are required")
		return
	}

	reply, err := h.gateway.RejectPlan(r.Context(), h.requestFrom(r, body))
	if err != nil {
		respond.WriteAppError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, reply)
}

// DeleteConversation clears the transcript and any pending plan.
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	conversationID := mux.Vars(r)["conversationId"]
	if err := h.gateway.ClearConversation(r.Context(), conversationID); err != nil {
		respond.WriteAppError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// ListTools returns the tool catalog. With ?user_id= the list narrows to the
// tools that user's subscription tier may execute.
func (h *Handler) ListTools(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")

	var (
		metas []model.ToolMetadata
		err   error
	)
	if userID == "" {
		metas = h.registry.AllMetadata()
	} else {
		metas, err = h.registry.Available(r.Context(), userID)
		if err != nil {
			respond.WriteAppError(w, err)
			return
		}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{"tools": metas, "total": len(metas)})
}

// GetAudit returns one page of a user's audit history.
func (h *Handler) GetAudit(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respond.WriteBadRequest(w, "user_id is required")
		return
	}

	q := model.AuditQuery{
		Category: model.AuditCategory(r.URL.Query().Get("category")),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		q.Limit, _ = strconv.Atoi(raw)
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		q.Offset, _ = strconv.Atoi(raw)
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			q.From = t
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			q.To = t
		}
	}

	page, err := h.sink.LogsForUser(r.Context(), userID, q)
	if err != nil {
		respond.WriteAppError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, page)
}

// CheckHealth reports liveness.
func (h *Handler) CheckHealth(w http.ResponseWriter, _ *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
