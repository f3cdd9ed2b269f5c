// Package plan drives the confirmation workflow for mutating operations. A
// conversation holds at most one pending plan; the workflow collects its
// missing fields across turns, attaches a payment preview when the action
// charges money, and only hands the action to the tool registry after the
// user explicitly confirms.
package plan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	logx "github.com/fieldops-copilot/server/pkg/logger"

	"github.com/fieldops-copilot/server/internal/copilot/audit"
	"github.com/fieldops-copilot/server/internal/copilot/model"
	"github.com/fieldops-copilot/server/internal/copilot/registry"
)

// Outcome is what one workflow step hands back to the conversation layer.
type Outcome struct {
	Response *model.AssistantResponse
	Executed []*model.ToolResult
}

// Workflow owns plan lifecycle transitions. All state lives in the stores;
// the workflow itself is stateless and safe for concurrent use.
type Workflow struct {
	plans      model.PlanStore
	previews   model.PreviewStore
	registry   *registry.Registry
	sink       audit.Sink
	planTTL    time.Duration
	previewTTL time.Duration
	now        func() time.Time
}

// NewWorkflow wires the workflow. planTTL and previewTTL must be positive.
func NewWorkflow(plans model.PlanStore, previews model.PreviewStore, reg *registry.Registry, sink audit.Sink, planTTL, previewTTL time.Duration) *Workflow {
	return &Workflow{
		plans:      plans,
		previews:   previews,
		registry:   reg,
		sink:       sink,
		planTTL:    planTTL,
		previewTTL: previewTTL,
		now:        time.Now,
	}
}

// Pending returns the conversation's pending plan, or nil when none exists.
// An expired plan is cleared and reported as nil.
func (w *Workflow) Pending(ctx context.Context, conversationID string) (*model.PlanSummary, error) {
	summary, err := w.plans.GetPlan(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, nil
	}
	if summary.Expired(w.now().UTC()) {
		if err := w.plans.ClearPlan(ctx, conversationID); err != nil {
			logx.Warn().Err(err).Str("conversation_id", conversationID).Msg("failed to clear expired plan")
		}
		return nil, nil
	}
	return summary, nil
}

// Begin turns a PLAN proposal into a pending plan. A READ action with every
// field present skips the plan entirely and executes immediately.
func (w *Workflow) Begin(ctx context.Context, userID, conversationID string, proposal model.PlanResponse, tctx model.ToolContext) (*Outcome, error) {
	tool, ok := w.registry.Get(proposal.Action)
	if !ok {
		return messageOutcome(fmt.Sprintf("Desculpe, não reconheço a operação %q.", proposal.Action), nil), nil
	}
	meta := tool.Metadata()

	params := map[string]any{}
	for key, value := range proposal.CollectedFields {
		params[normalizeFieldKey(key)] = value
	}
	missing := meta.MissingParams(params)

	if meta.ActionType == model.ActionRead && len(missing) == 0 {
		result, err := w.registry.Execute(ctx, meta.Name, params, tctx)
		if err != nil {
			return nil, err
		}
		return resultOutcome(meta.Name, result), nil
	}

	now := w.now().UTC()
	summary := &model.PlanSummary{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		UserID:         userID,
		Actions: []model.PlanAction{{
			ID:         uuid.New().String(),
			Tool:       meta.Name,
			Params:     params,
			ActionType: meta.ActionType,
		}},
		MissingFields: missing,
		State:         model.PlanCollecting,
		CreatedAt:     now,
		ExpiresAt:     now.Add(w.planTTL),
	}

	var recollect *Outcome
	if len(missing) == 0 {
		if recollect = w.recollectInvalidAmount(summary); recollect == nil {
			if err := w.promote(ctx, summary); err != nil {
				return nil, err
			}
		}
	}

	w.sink.Log(ctx, model.AuditEntry{
		UserID:         userID,
		ConversationID: conversationID,
		Category:       model.AuditPlanCreated,
		Tool:           meta.Name,
		Action:         "plan_created",
		Success:        true,
		Input:          params,
		Output:         map[string]any{"plan_id": summary.ID, "state": string(summary.State)},
	})

	if err := w.plans.SavePlan(ctx, summary); err != nil {
		return nil, err
	}
	if recollect != nil {
		return recollect, nil
	}
	return w.prompt(summary), nil
}

// Collect merges one user reply into the pending plan's in-flight action and
// advances the state when every required field is present. A completed READ
// action executes right away; anything else moves to confirmation.
func (w *Workflow) Collect(ctx context.Context, summary *model.PlanSummary, utterance string, tctx model.ToolContext) (*Outcome, error) {
	action := summary.CurrentAction()
	if action == nil {
		return messageOutcome("Não há nenhuma operação pendente.", nil), nil
	}

	tool, ok := w.registry.Get(action.Tool)
	if !ok {
		_ = w.plans.ClearPlan(ctx, summary.ConversationID)
		return messageOutcome(fmt.Sprintf("Desculpe, não reconheço a operação %q.", action.Tool), nil), nil
	}
	meta := tool.Metadata()

	declared := make(map[string]bool, len(meta.Parameters))
	for name := range meta.Parameters {
		declared[name] = true
	}
	for key, value := range ParseFields(utterance, summary.MissingFields, declared) {
		action.Params[key] = value
	}
	summary.MissingFields = meta.MissingParams(action.Params)

	if len(summary.MissingFields) == 0 && summary.State == model.PlanCollecting {
		if meta.ActionType == model.ActionRead {
			if err := w.plans.ClearPlan(ctx, summary.ConversationID); err != nil {
				return nil, err
			}
			result, err := w.registry.Execute(ctx, meta.Name, action.Params, tctx)
			if err != nil {
				return nil, err
			}
			return resultOutcome(meta.Name, result), nil
		}
		if out := w.recollectInvalidAmount(summary); out != nil {
			if err := w.plans.SavePlan(ctx, summary); err != nil {
				return nil, err
			}
			return out, nil
		}
		if err := w.promote(ctx, summary); err != nil {
			return nil, err
		}
	}

	if err := w.plans.SavePlan(ctx, summary); err != nil {
		return nil, err
	}
	return w.prompt(summary), nil
}

// Confirm executes the pending plan after an explicit user confirmation.
func (w *Workflow) Confirm(ctx context.Context, userID, conversationID string, tctx model.ToolContext) (*Outcome, error) {
	summary, err := w.plans.GetPlan(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return messageOutcome("Não há nenhuma operação pendente para confirmar.", nil), nil
	}
	if summary.Expired(w.now().UTC()) {
		_ = w.plans.ClearPlan(ctx, conversationID)
		return messageOutcome("O plano expirou antes da confirmação. Por favor, inicie a operação novamente.", nil), nil
	}
	if summary.State == model.PlanCollecting {
		return w.prompt(summary), nil
	}
	if summary.State != model.PlanAwaitingConfirmation {
		return messageOutcome("Não há nenhuma operação aguardando confirmação.", nil), nil
	}

	w.sink.Log(ctx, model.AuditEntry{
		UserID:         userID,
		ConversationID: conversationID,
		Category:       model.AuditPlanConfirmed,
		Action:         "plan_confirmed",
		Success:        true,
		Output:         map[string]any{"plan_id": summary.ID},
	})

	summary.State = model.PlanExecuting
	tctx.PlanID = summary.ID

	var executed []*model.ToolResult
	allOK := true
	var failed *model.ToolResult
	var failedTool string
	for i := range summary.Actions {
		action := &summary.Actions[i]
		result, err := w.registry.Execute(ctx, action.Tool, action.Params, tctx)
		if err != nil {
			return nil, err
		}
		executed = append(executed, result)
		if !result.Success {
			allOK = false
			failed = result
			failedTool = action.Tool
			break
		}
	}

	if err := w.plans.ClearPlan(ctx, conversationID); err != nil {
		logx.Warn().Err(err).Str("conversation_id", conversationID).Msg("failed to clear executed plan")
	}

	w.sink.Log(ctx, model.AuditEntry{
		UserID:         userID,
		ConversationID: conversationID,
		Category:       model.AuditPlanExecuted,
		Action:         "plan_executed",
		Success:        allOK,
		Output:         map[string]any{"plan_id": summary.ID, "actions": len(executed)},
	})

	if !allOK {
		out := messageOutcome(failureMessage(failedTool, failed), dataSnapshot(failed.Data))
		out.Executed = executed
		return out, nil
	}

	last := executed[len(executed)-1]
	out := messageOutcome(completionMessage(summary.Actions[len(executed)-1].Tool), dataSnapshot(last.Data))
	out.Executed = executed
	return out, nil
}

// Reject discards the pending plan without executing anything.
func (w *Workflow) Reject(ctx context.Context, userID, conversationID string) (*Outcome, error) {
	summary, err := w.plans.GetPlan(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return messageOutcome("Não há nenhuma operação pendente.", nil), nil
	}

	if err := w.plans.ClearPlan(ctx, conversationID); err != nil {
		return nil, err
	}
	w.sink.Log(ctx, model.AuditEntry{
		UserID:         userID,
		ConversationID: conversationID,
		Category:       model.AuditPlanRejected,
		Action:         "plan_rejected",
		Success:        true,
		Output:         map[string]any{"plan_id": summary.ID},
	})
	return messageOutcome("Tudo bem, operação cancelada. Nada foi executado.", nil), nil
}

// promote moves a fully collected plan to AWAITING_CONFIRMATION, attaching a
// payment preview first when the action charges money.
func (w *Workflow) promote(ctx context.Context, summary *model.PlanSummary) error {
	action := summary.CurrentAction()
	if action != nil && w.registry.RequiresPaymentPreview(action.Tool) {
		if err := w.attachPreview(ctx, summary, action); err != nil {
			return err
		}
	}
	if action != nil {
		action.Description = describeAction(action.Tool, action.Params, action.PaymentPreview)
	}
	summary.State = model.PlanAwaitingConfirmation
	return nil
}

// recollectInvalidAmount sends a payment plan back to collection when the
// gathered amount cannot be read as money. The bad value is dropped so the
// next reply binds to the amount field again; nil means promotion may proceed.
func (w *Workflow) recollectInvalidAmount(summary *model.PlanSummary) *Outcome {
	action := summary.CurrentAction()
	if action == nil || !w.registry.RequiresPaymentPreview(action.Tool) {
		return nil
	}
	raw, present := action.Params["amount"]
	if !present {
		return nil
	}
	if _, ok := ParseAmountCents(raw); ok {
		return nil
	}

	delete(action.Params, "amount")
	summary.MissingFields = append(summary.MissingFields, "amount")
	summary.State = model.PlanCollecting
	return &Outcome{Response: model.NewAskUserResponse(model.AskUserResponse{
		Question: fmt.Sprintf("Não consegui entender o valor %q. Qual é o valor da cobrança? Por exemplo: 250,00.",
			fmt.Sprintf("%v", raw)),
		Context: "field_collection",
	})}
}

// attachPreview generates the non-committal charge preview the real payment
// call must reference, and rewrites the action params to carry only the
// preview id alongside the customer reference.
func (w *Workflow) attachPreview(ctx context.Context, summary *model.PlanSummary, action *model.PlanAction) error {
	amountCents, ok := ParseAmountCents(action.Params["amount"])
	if !ok {
		return fmt.Errorf("payment action %s has unparseable amount %v", action.Tool, action.Params["amount"])
	}
	description, _ := action.Params["description"].(string)
	customerID := fmt.Sprintf("%v", action.Params["customer_id"])

	preview := &model.PaymentPreview{
		ID:          uuid.New().String(),
		UserID:      summary.UserID,
		CustomerID:  customerID,
		Description: description,
		AmountCents: amountCents,
		Currency:    "BRL",
		ExpiresAt:   w.now().UTC().Add(w.previewTTL),
	}
	if err := w.previews.SavePreview(ctx, preview); err != nil {
		return err
	}

	action.PaymentPreview = preview
	action.Params["preview_id"] = preview.ID
	summary.HasPayment = true
	return nil
}

// prompt renders the next question for a pending plan: a field request while
// collecting, a confirmation question once everything is in place.
func (w *Workflow) prompt(summary *model.PlanSummary) *Outcome {
	action := summary.CurrentAction()
	if action == nil {
		return messageOutcome("Não há nenhuma operação pendente.", nil)
	}

	if summary.State == model.PlanCollecting {
		question := fmt.Sprintf("Para prosseguir com %s, preciso de: %s.",
			toolIntent(action.Tool), strings.Join(summary.MissingFields, ", "))
		if echo := collectedEcho(action.Params); echo != "" {
			question += " " + echo
		}
		return &Outcome{Response: model.NewAskUserResponse(model.AskUserResponse{
			Question: question,
			Context:  "field_collection",
		})}
	}

	return &Outcome{Response: model.NewAskUserResponse(model.AskUserResponse{
		Question: action.Description + " Confirma?",
		Context:  "confirmation",
		Options:  []string{"sim", "não"},
	})}
}

func collectedEcho(params map[string]any) string {
	var parts []string
	for key, value := range params {
		parts = append(parts, fmt.Sprintf("%s: %v", key, value))
	}
	if len(parts) == 0 {
		return ""
	}
	return "Já tenho " + strings.Join(parts, ", ") + "."
}

func toolIntent(tool string) string {
	switch tool {
	case "customers.create":
		return "o cadastro do cliente"
	case "quotes.create":
		return "a criação do orçamento"
	case "workorders.create":
		return "a criação da ordem de serviço"
	case "workorders.update_status":
		return "a atualização da ordem de serviço"
	case "payments.create_charge":
		return "a criação da cobrança"
	default:
		return fmt.Sprintf("a operação %s", tool)
	}
}

func describeAction(tool string, params map[string]any, preview *model.PaymentPreview) string {
	switch tool {
	case "customers.create":
		return fmt.Sprintf("O cliente %q será criado.", fmt.Sprintf("%v", params["name"]))
	case "quotes.create":
		return fmt.Sprintf("Um orçamento para %q será criado.", fmt.Sprintf("%v", params["client_name"]))
	case "workorders.create":
		return fmt.Sprintf("Uma ordem de serviço (%v) será criada.", params["description"])
	case "workorders.update_status":
		return fmt.Sprintf("O status da ordem %v será atualizado para %v.", params["workorder_id"], params["status"])
	case "payments.create_charge":
		if preview != nil {
			return fmt.Sprintf("Uma cobrança de R$ %s será criada para o cliente %s.",
				FormatBRL(preview.AmountCents), preview.CustomerID)
		}
		return "Uma cobrança será criada."
	default:
		return fmt.Sprintf("A operação %s será executada.", tool)
	}
}

func completionMessage(tool string) string {
	switch tool {
	case "customers.create":
		return "Cliente criado com sucesso."
	case "quotes.create":
		return "Orçamento criado com sucesso."
	case "workorders.create":
		return "Ordem de serviço criada com sucesso."
	case "workorders.update_status":
		return "Status da ordem de serviço atualizado com sucesso."
	case "payments.create_charge":
		return "Cobrança criada com sucesso."
	default:
		return "Operação concluída com sucesso."
	}
}

func failureMessage(tool string, result *model.ToolResult) string {
	if result == nil || result.Error == "" {
		return fmt.Sprintf("A operação %s falhou.", tool)
	}
	return fmt.Sprintf("A operação %s falhou: %s", tool, result.Error)
}

// FormatBRL renders cents as a Brazilian-style decimal string.
func FormatBRL(cents int64) string {
	return fmt.Sprintf("%d,%02d", cents/100, cents%100)
}

func messageOutcome(text string, data map[string]any) *Outcome {
	return &Outcome{Response: model.NewMessageResponse(model.MessageResponse{
		Message: text,
		Data:    data,
	})}
}

func resultOutcome(tool string, result *model.ToolResult) *Outcome {
	if !result.Success {
		out := messageOutcome(failureMessage(tool, result), nil)
		out.Executed = []*model.ToolResult{result}
		return out
	}
	data := dataSnapshot(result.Data)
	text := completionMessage(tool)
	if msg, ok := data["message"].(string); ok && msg != "" {
		text = msg
	}
	out := messageOutcome(text, data)
	out.Executed = []*model.ToolResult{result}
	return out
}

func dataSnapshot(data any) map[string]any {
	if data == nil {
		return nil
	}
	if m, ok := data.(map[string]any); ok {
		return m
	}
	return map[string]any{"result": data}
}
