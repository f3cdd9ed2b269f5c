// Package copilot is the orchestration core: it receives a user message,
// consults the completion backend, classifies the reply and routes it
// through the plan workflow or the tool registry. Writes never execute
// without an explicit user confirmation, regardless of what the model asks
// for.
package copilot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	errx "github.com/fieldops-copilot/server/internal/core/error"
	logx "github.com/fieldops-copilot/server/pkg/logger"

	"github.com/fieldops-copilot/server/internal/copilot/audit"
	"github.com/fieldops-copilot/server/internal/copilot/llm"
	"github.com/fieldops-copilot/server/internal/copilot/model"
	"github.com/fieldops-copilot/server/internal/copilot/parser"
	"github.com/fieldops-copilot/server/internal/copilot/plan"
	"github.com/fieldops-copilot/server/internal/copilot/prompts"
	"github.com/fieldops-copilot/server/internal/copilot/registry"
)

// MessageRequest is one inbound user turn.
type MessageRequest struct {
	UserID         string
	ConversationID string
	Message        string
	IdempotencyKey string
	IPAddress      string
	UserAgent      string
}

// MessageReply is the assistant's answer to one turn.
type MessageReply struct {
	ConversationID string                   `json:"conversation_id"`
	Response       *model.AssistantResponse `json:"response"`
	Provider       string                   `json:"provider,omitempty"`
}

// Options tunes gateway behavior.
type Options struct {
	MaxTurns             int
	Temperature          float64
	MaxTokens            int
	RateLimitWindow      time.Duration
	RateLimitMaxFailures int
}

// Gateway wires the conversation store, the completion selector, the plan
// workflow and the tool registry into the per-turn orchestration.
type Gateway struct {
	conversations model.ConversationRepository
	workflow      *plan.Workflow
	registry      *registry.Registry
	selector      *llm.Selector
	sink          audit.Sink
	opts          Options
}

// NewGateway builds the orchestrator. Every dependency is required.
func NewGateway(conversations model.ConversationRepository, workflow *plan.Workflow, reg *registry.Registry, selector *llm.Selector, sink audit.Sink, opts Options) *Gateway {
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = 20
	}
	if opts.RateLimitMaxFailures <= 0 {
		opts.RateLimitMaxFailures = 10
	}
	if opts.RateLimitWindow <= 0 {
		opts.RateLimitWindow = 10 * time.Minute
	}
	return &Gateway{
		conversations: conversations,
		workflow:      workflow,
		registry:      reg,
		selector:      selector,
		sink:          sink,
		opts:          opts,
	}
}

// HandleMessage runs one full conversation turn.
func (g *Gateway) HandleMessage(ctx context.Context, req MessageRequest) (*MessageReply, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, errx.NewCoded(fmt.Errorf("empty message"), http.StatusBadRequest, errx.CodeValidationFailed, "message must not be empty")
	}
	if req.UserID == "" {
		return nil, errx.NewCoded(fmt.Errorf("empty user id"), http.StatusBadRequest, errx.CodeValidationFailed, "user_id must not be empty")
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.New().String()
	}

	if err := g.checkRateLimit(ctx, req); err != nil {
		return nil, err
	}

	count, err := g.conversations.GetMessageCount(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}
	if count >= g.opts.MaxTurns*2 {
		return g.reply(ctx, req, model.NewMessageResponse(model.MessageResponse{
			Message: "Esta conversa atingiu o limite de mensagens. Por favor, inicie uma nova conversa.",
		}), false)
	}

	if err := g.conversations.AddMessage(ctx, req.ConversationID, model.UserMessage(req.Message)); err != nil {
		return nil, err
	}

	tctx := g.toolContext(req)

	// A pending plan captures the turn before the model sees it: short
	// confirmations and rejections resolve the plan, anything else feeds
	// field collection.
	pending, err := g.workflow.Pending(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		outcome, err := g.resolvePending(ctx, req, pending, tctx)
		if err != nil {
			return nil, err
		}
		return g.reply(ctx, req, outcome.Response, true)
	}

	response, err := g.complete(ctx, req)
	if err != nil {
		return nil, err
	}

	outcome, err := g.dispatch(ctx, req, response, tctx)
	if err != nil {
		return nil, err
	}
	return g.reply(ctx, req, outcome.Response, true)
}

// ConfirmPlan confirms the conversation's pending plan outside the chat flow
// (the UI's explicit confirm button).
func (g *Gateway) ConfirmPlan(ctx context.Context, req MessageRequest) (*MessageReply, error) {
	outcome, err := g.workflow.Confirm(ctx, req.UserID, req.ConversationID, g.toolContext(req))
	if err != nil {
		return nil, err
	}
	return g.reply(ctx, req, outcome.Response, false)
}

// RejectPlan discards the conversation's pending plan.
func (g *Gateway) RejectPlan(ctx context.Context, req MessageRequest) (*MessageReply, error) {
	outcome, err := g.workflow.Reject(ctx, req.UserID, req.ConversationID)
	if err != nil {
		return nil, err
	}
	return g.reply(ctx, req, outcome.Response, false)
}

// ClearConversation drops the transcript and any pending plan.
func (g *Gateway) ClearConversation(ctx context.Context, conversationID string) error {
	if err := g.conversations.ClearHistory(ctx, conversationID); err != nil {
		return err
	}
	_, err := g.workflow.Reject(ctx, "", conversationID)
	return err
}

func (g *Gateway) toolContext(req MessageRequest) model.ToolContext {
	return model.ToolContext{
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
		IdempotencyKey: req.IdempotencyKey,
		IPAddress:      req.IPAddress,
		UserAgent:      req.UserAgent,
	}
}

func (g *Gateway) checkRateLimit(ctx context.Context, req MessageRequest) error {
	failures, err := g.sink.CountFailed(ctx, req.UserID, g.opts.RateLimitWindow)
	if err != nil {
		logx.Warn().Err(err).Str("user_id", req.UserID).Msg("rate limit check failed, allowing request")
		return nil
	}
	if failures < g.opts.RateLimitMaxFailures {
		return nil
	}

	g.sink.Log(ctx, model.AuditEntry{
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
		Category:       model.AuditRateLimit,
		Action:         "rate_limited",
		Success:        false,
		Output:         map[string]any{"failures": failures, "window": g.opts.RateLimitWindow.String()},
	})
	return errx.NewCoded(
		fmt.Errorf("user %s exceeded %d failures", req.UserID, g.opts.RateLimitMaxFailures),
		http.StatusTooManyRequests,
		errx.CodeRateLimited,
		"Muitas operações falharam recentemente. Aguarde alguns minutos e tente novamente.",
	)
}

// resolvePending routes a turn that arrived while a plan is pending.
func (g *Gateway) resolvePending(ctx context.Context, req MessageRequest, pending *model.PlanSummary, tctx model.ToolContext) (*plan.Outcome, error) {
	switch {
	case plan.IsAffirmative(req.Message):
		return g.workflow.Confirm(ctx, req.UserID, req.ConversationID, tctx)
	case plan.IsNegative(req.Message):
		return g.workflow.Reject(ctx, req.UserID, req.ConversationID)
	default:
		return g.workflow.Collect(ctx, pending, req.Message, tctx)
	}
}

// complete asks the selector for a completion over the full transcript and
// classifies the answer.
func (g *Gateway) complete(ctx context.Context, req MessageRequest) (*model.AssistantResponse, error) {
	history, err := g.conversations.LoadHistory(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}

	catalog := g.registry.AllMetadata()
	messages := make([]model.Message, 0, len(history.Messages)+1)
	messages = append(messages, model.SystemMessage(prompts.System(catalog)))
	messages = append(messages, history.Messages...)

	resp, err := g.selector.Complete(ctx, llm.Request{
		Messages:    messages,
		Tools:       catalog,
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	// Native tool calls take precedence over text content.
	if len(resp.ToolCalls) > 0 {
		call := resp.ToolCalls[0]
		params := map[string]any{}
		if call.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Arguments), &params); err != nil {
				logx.Warn().Err(err).Str("tool", call.Name).Msg("unparseable tool call arguments")
			}
		}
		return model.NewCallToolResponse(model.CallToolResponse{Tool: call.Name, Params: params}), nil
	}

	result := parser.Parse(resp.Content)
	if result.Err != nil {
		return nil, result.Err
	}
	return result.Response, nil
}

// dispatch routes a classified response. Every tool invocation, including a
// direct CALL_TOOL for a mutating tool, goes through the plan workflow so
// confirmation is never skipped.
func (g *Gateway) dispatch(ctx context.Context, req MessageRequest, response *model.AssistantResponse, tctx model.ToolContext) (*plan.Outcome, error) {
	switch {
	case response.IsPlan():
		return g.workflow.Begin(ctx, req.UserID, req.ConversationID, *response.Plan, tctx)

	case response.IsCallTool():
		proposal := model.PlanResponse{
			Action:               response.CallTool.Tool,
			CollectedFields:      response.CallTool.Params,
			RequiresConfirmation: g.registry.RequiresConfirmation(response.CallTool.Tool),
		}
		return g.workflow.Begin(ctx, req.UserID, req.ConversationID, proposal, tctx)

	default:
		return &plan.Outcome{Response: response}, nil
	}
}

// reply persists the assistant turn and shapes the HTTP-facing answer.
func (g *Gateway) reply(ctx context.Context, req MessageRequest, response *model.AssistantResponse, record bool) (*MessageReply, error) {
	if record {
		if text := responseText(response); text != "" {
			if err := g.conversations.AddMessage(ctx, req.ConversationID, model.AssistantMessage(text)); err != nil {
				logx.Warn().Err(err).Str("conversation_id", req.ConversationID).Msg("failed to record assistant turn")
			}
		}
	}
	return &MessageReply{
		ConversationID: req.ConversationID,
		Response:       response,
		Provider:       g.selector.Primary(),
	}, nil
}

// responseText is the user-visible text of a response, used for the
// transcript.
func responseText(response *model.AssistantResponse) string {
	switch {
	case response.IsMessage():
		return response.Message.Message
	case response.IsAskUser():
		return response.AskUser.Question
	default:
		return ""
	}
}
