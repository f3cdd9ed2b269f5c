package plan_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops-copilot/server/internal/copilot/audit"
	"github.com/fieldops-copilot/server/internal/copilot/model"
	"github.com/fieldops-copilot/server/internal/copilot/plan"
	"github.com/fieldops-copilot/server/internal/copilot/registry"
	"github.com/fieldops-copilot/server/internal/copilot/repo"
	"github.com/fieldops-copilot/server/internal/copilot/tools"
)

type harness struct {
	workflow *plan.Workflow
	plans    *repo.MemoryPlanStore
	previews *repo.MemoryPreviewStore
	sink     *audit.MemorySink
	registry *registry.Registry
}

func newHarness(t *testing.T, tier model.Tier) *harness {
	t.Helper()

	subs := repo.NewMemorySubscriptionStore()
	subs.SetTier("u1", tier)

	checker := registry.NewPermissionChecker(subs)
	sink := audit.NewMemorySink()
	reg := registry.New(checker, sink)
	previews := repo.NewMemoryPreviewStore()
	tools.RegisterAll(reg, tools.NewStore(), previews, 5*time.Minute, checker)

	plans := repo.NewMemoryPlanStore()
	return &harness{
		workflow: plan.NewWorkflow(plans, previews, reg, sink, 10*time.Minute, 5*time.Minute),
		plans:    plans,
		previews: previews,
		sink:     sink,
		registry: reg,
	}
}

func tctx() model.ToolContext {
	return model.ToolContext{UserID: "u1", ConversationID: "c1"}
}

func question(t *testing.T, out *plan.Outcome) string {
	t.Helper()
	require.True(t, out.Response.IsAskUser(), "expected ASK_USER, got %s", out.Response.Type)
	return out.Response.AskUser.Question
}

func message(t *testing.T, out *plan.Outcome) string {
	t.Helper()
	require.True(t, out.Response.IsMessage(), "expected RESPONSE, got %s", out.Response.Type)
	return out.Response.Message.Message
}

func TestQuoteCreationAcrossTurns(t *testing.T) {
	h := newHarness(t, model.TierStarter)
	ctx := context.Background()

	// Turn 1: intent arrives with nothing collected.
	out, err := h.workflow.Begin(ctx, "u1", "c1", model.PlanResponse{
		Action:               "quotes.create",
		RequiresConfirmation: true,
	}, tctx())
	require.NoError(t, err)
	q := question(t, out)
	assert.Contains(t, q, "client_name")
	assert.Contains(t, q, "items")

	pending, err := h.plans.GetPlan(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, model.PlanCollecting, pending.State)

	// Turn 2: a bare reply binds the first missing field; the follow-up
	// question echoes what was understood.
	out, err = h.workflow.Collect(ctx, pending, "João Silva", tctx())
	require.NoError(t, err)
	q = question(t, out)
	assert.Contains(t, q, "items")
	assert.Contains(t, q, "João Silva")

	// Turn 3: last field arrives, the plan asks for confirmation.
	pending, err = h.plans.GetPlan(ctx, "c1")
	require.NoError(t, err)
	out, err = h.workflow.Collect(ctx, pending, "items: troca de fiação", tctx())
	require.NoError(t, err)
	q = question(t, out)
	assert.Contains(t, q, "João Silva")
	assert.Contains(t, q, "criado")
	assert.Contains(t, q, "Confirma?")

	pending, err = h.plans.GetPlan(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, model.PlanAwaitingConfirmation, pending.State)

	// Turn 4: confirmation executes and clears the plan.
	out, err = h.workflow.Confirm(ctx, "u1", "c1", tctx())
	require.NoError(t, err)
	assert.Contains(t, message(t, out), "criado")
	require.Len(t, out.Executed, 1)
	assert.True(t, out.Executed[0].Success)

	pending, err = h.plans.GetPlan(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, pending)

	assert.Len(t, h.sink.ByCategory(model.AuditPlanCreated), 1)
	assert.Len(t, h.sink.ByCategory(model.AuditPlanConfirmed), 1)
	assert.Len(t, h.sink.ByCategory(model.AuditPlanExecuted), 1)
	assert.Len(t, h.sink.ByCategory(model.AuditActionSuccess), 1)
}

func TestRejectDiscardsWithoutExecuting(t *testing.T) {
	h := newHarness(t, model.TierStarter)
	ctx := context.Background()

	_, err := h.workflow.Begin(ctx, "u1", "c1", model.PlanResponse{
		Action:          "customers.create",
		CollectedFields: map[string]any{"name": "Maria"},
	}, tctx())
	require.NoError(t, err)

	out, err := h.workflow.Reject(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Contains(t, message(t, out), "cancelada")
	assert.Empty(t, out.Executed)

	pending, err := h.plans.GetPlan(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, pending)

	assert.Len(t, h.sink.ByCategory(model.AuditPlanRejected), 1)
	assert.Empty(t, h.sink.ByCategory(model.AuditActionSuccess))
}

func TestConfirmWithoutPendingPlan(t *testing.T) {
	h := newHarness(t, model.TierStarter)

	out, err := h.workflow.Confirm(context.Background(), "u1", "c1", tctx())
	require.NoError(t, err)
	assert.Contains(t, message(t, out), "Não há nenhuma operação pendente")
}

func TestConfirmExpiredPlan(t *testing.T) {
	h := newHarness(t, model.TierStarter)
	ctx := context.Background()

	expired := &model.PlanSummary{
		ID:             "p1",
		ConversationID: "c1",
		UserID:         "u1",
		Actions: []model.PlanAction{{
			ID: "a1", Tool: "customers.create",
			Params: map[string]any{"name": "Maria"}, ActionType: model.ActionCreate,
		}},
		State:     model.PlanAwaitingConfirmation,
		CreatedAt: time.Now().UTC().Add(-20 * time.Minute),
		ExpiresAt: time.Now().UTC().Add(-10 * time.Minute),
	}
	require.NoError(t, h.plans.SavePlan(ctx, expired))

	out, err := h.workflow.Confirm(ctx, "u1", "c1", tctx())
	require.NoError(t, err)
	assert.Contains(t, message(t, out), "expirou")
	assert.Empty(t, out.Executed)

	pending, err := h.plans.GetPlan(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, pending)
}

func TestPendingClearsExpiredPlans(t *testing.T) {
	h := newHarness(t, model.TierStarter)
	ctx := context.Background()

	require.NoError(t, h.plans.SavePlan(ctx, &model.PlanSummary{
		ID:             "p1",
		ConversationID: "c1",
		UserID:         "u1",
		State:          model.PlanCollecting,
		ExpiresAt:      time.Now().UTC().Add(-time.Minute),
	}))

	pending, err := h.workflow.Pending(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, pending)
}

func TestReadActionExecutesImmediately(t *testing.T) {
	h := newHarness(t, model.TierFree)
	ctx := context.Background()

	out, err := h.workflow.Begin(ctx, "u1", "c1", model.PlanResponse{
		Action:          "customers.search",
		CollectedFields: map[string]any{"query": "maria"},
	}, tctx())
	require.NoError(t, err)
	require.Len(t, out.Executed, 1)
	assert.True(t, out.Executed[0].Success)
	assert.Contains(t, message(t, out), "Encontrei 1 cliente(s)")
	assert.NotEmpty(t, out.Response.Message.Data["customers"])

	// nothing pending afterwards
	pending, err := h.plans.GetPlan(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, pending)
}

func TestReadActionCollectsThenExecutes(t *testing.T) {
	h := newHarness(t, model.TierFree)
	ctx := context.Background()

	out, err := h.workflow.Begin(ctx, "u1", "c1", model.PlanResponse{
		Action: "customers.search",
	}, tctx())
	require.NoError(t, err)
	assert.Contains(t, question(t, out), "query")

	pending, err := h.plans.GetPlan(ctx, "c1")
	require.NoError(t, err)
	out, err = h.workflow.Collect(ctx, pending, "carlos", tctx())
	require.NoError(t, err)
	require.Len(t, out.Executed, 1)
	assert.Contains(t, message(t, out), "Encontrei 1 cliente(s)")
}

func TestPaymentPlanAttachesPreview(t *testing.T) {
	h := newHarness(t, model.TierEnterprise)
	ctx := context.Background()

	out, err := h.workflow.Begin(ctx, "u1", "c1", model.PlanResponse{
		Action: "payments.create_charge",
		CollectedFields: map[string]any{
			"customer_id": "cust_001",
			"amount":      "150",
			"description": "visita técnica",
		},
	}, tctx())
	require.NoError(t, err)
	q := question(t, out)
	assert.Contains(t, q, "R$ 150,00")
	assert.Contains(t, q, "cust_001")

	pending, err := h.plans.GetPlan(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.True(t, pending.HasPayment)

	action := pending.CurrentAction()
	require.NotNil(t, action.PaymentPreview)
	assert.Equal(t, int64(15000), action.PaymentPreview.AmountCents)
	previewID, _ := action.Params["preview_id"].(string)
	require.NotEmpty(t, previewID)

	stored, err := h.previews.GetPreview(ctx, previewID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "cust_001", stored.CustomerID)

	out, err = h.workflow.Confirm(ctx, "u1", "c1", tctx())
	require.NoError(t, err)
	assert.Contains(t, message(t, out), "Cobrança")
	require.Len(t, out.Executed, 1)
	assert.True(t, out.Executed[0].Success)
}

func TestPaymentPlanReasksOnUnparseableAmount(t *testing.T) {
	h := newHarness(t, model.TierEnterprise)
	ctx := context.Background()

	out, err := h.workflow.Begin(ctx, "u1", "c1", model.PlanResponse{
		Action: "payments.create_charge",
		CollectedFields: map[string]any{
			"customer_id": "cust_001",
			"amount":      "uns duzentos reais",
			"description": "visita técnica",
		},
	}, tctx())
	require.NoError(t, err)
	q := question(t, out)
	assert.Contains(t, q, "Não consegui entender o valor")
	assert.Contains(t, q, "uns duzentos reais")

	pending, err := h.plans.GetPlan(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, model.PlanCollecting, pending.State)
	assert.Contains(t, pending.MissingFields, "amount")
	assert.NotContains(t, pending.CurrentAction().Params, "amount")

	// A readable amount completes the plan and attaches the preview.
	out, err = h.workflow.Collect(ctx, pending, "R$ 200,00", tctx())
	require.NoError(t, err)
	q = question(t, out)
	assert.Contains(t, q, "R$ 200,00")
	assert.Contains(t, q, "Confirma?")

	pending, err = h.plans.GetPlan(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, model.PlanAwaitingConfirmation, pending.State)
}

func TestPaymentCollectReasksOnUnparseableAmount(t *testing.T) {
	h := newHarness(t, model.TierEnterprise)
	ctx := context.Background()

	_, err := h.workflow.Begin(ctx, "u1", "c1", model.PlanResponse{
		Action: "payments.create_charge",
		CollectedFields: map[string]any{
			"customer_id": "cust_001",
			"description": "visita técnica",
		},
	}, tctx())
	require.NoError(t, err)

	pending, err := h.plans.GetPlan(ctx, "c1")
	require.NoError(t, err)
	out, err := h.workflow.Collect(ctx, pending, "uns duzentos reais", tctx())
	require.NoError(t, err)
	assert.Contains(t, question(t, out), "Não consegui entender o valor")

	pending, err = h.plans.GetPlan(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, model.PlanCollecting, pending.State)
	assert.Contains(t, pending.MissingFields, "amount")
}

func TestUnknownActionIsRefused(t *testing.T) {
	h := newHarness(t, model.TierEnterprise)

	out, err := h.workflow.Begin(context.Background(), "u1", "c1", model.PlanResponse{
		Action: "hackers.delete_everything",
	}, tctx())
	require.NoError(t, err)
	assert.Contains(t, message(t, out), "não reconheço")
}
