package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops-copilot/server/internal/copilot/model"
	"github.com/fieldops-copilot/server/internal/copilot/registry"
)

type fixedTier model.Tier

func (f fixedTier) GetTier(_ context.Context, _ string) (model.Tier, bool, error) {
	return model.Tier(f), true, nil
}

func enterpriseChecker() *registry.PermissionChecker {
	return registry.NewPermissionChecker(fixedTier(model.TierEnterprise))
}

type memPreviews struct {
	previews map[string]*model.PaymentPreview
}

func newMemPreviews() *memPreviews {
	return &memPreviews{previews: map[string]*model.PaymentPreview{}}
}

func (m *memPreviews) SavePreview(_ context.Context, p *model.PaymentPreview) error {
	m.previews[p.ID] = p
	return nil
}

func (m *memPreviews) GetPreview(_ context.Context, id string) (*model.PaymentPreview, error) {
	return m.previews[id], nil
}

func TestSearchCustomersSeededData(t *testing.T) {
	tool := NewSearchCustomersTool(NewStore(), enterpriseChecker())

	result, err := tool.Execute(context.Background(), map[string]any{"query": "maria"}, model.ToolContext{UserID: "u1"})
	require.NoError(t, err)
	require.True(t, result.Success)

	data := result.Data.(map[string]any)
	assert.Equal(t, 1, data["total"])
	customers := data["customers"].([]Customer)
	assert.Equal(t, "Maria Oliveira", customers[0].Name)
}

func TestCreateCustomerAffectsEntities(t *testing.T) {
	store := NewStore()
	tool := NewCreateCustomerTool(store, enterpriseChecker())

	result, err := tool.Execute(context.Background(), map[string]any{"name": "Pedro Nunes"}, model.ToolContext{UserID: "u1"})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.AffectedEntities, 1)
	assert.Equal(t, "customer", result.AffectedEntities[0].Type)
	assert.Equal(t, "created", result.AffectedEntities[0].Action)

	assert.Len(t, store.SearchCustomers("pedro"), 1)
}

func TestValidateReportsMissingFields(t *testing.T) {
	tool := NewCreateQuoteTool(NewStore(), enterpriseChecker())

	err := tool.Validate(map[string]any{"client_name": "João"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "items")

	require.NoError(t, tool.Validate(map[string]any{"client_name": "João", "items": "troca de fiação"}))
}

func TestUpdateWorkOrderStatus(t *testing.T) {
	store := NewStore()
	tool := NewUpdateWorkOrderStatusTool(store, enterpriseChecker())

	err := tool.Validate(map[string]any{"workorder_id": "wo_001", "status": "flying"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status inválido")

	result, err := tool.Execute(context.Background(), map[string]any{"workorder_id": "wo_001", "status": "completed"}, model.ToolContext{UserID: "u1"})
	require.NoError(t, err)
	require.True(t, result.Success)

	missing, err := tool.Execute(context.Background(), map[string]any{"workorder_id": "wo_999", "status": "completed"}, model.ToolContext{UserID: "u1"})
	require.NoError(t, err)
	assert.False(t, missing.Success)
	assert.Equal(t, "not_found", missing.ErrorCode)
}

func TestPreviewChargeCreatesPreview(t *testing.T) {
	previews := newMemPreviews()
	tool := NewPreviewChargeTool(previews, 5*time.Minute, enterpriseChecker())

	require.Error(t, tool.Validate(map[string]any{"customer_id": "cust_001", "amount": "abc"}))

	result, err := tool.Execute(context.Background(), map[string]any{
		"customer_id": "cust_001",
		"amount":      "R$ 250,00",
		"description": "visita",
	}, model.ToolContext{UserID: "u1"})
	require.NoError(t, err)
	require.True(t, result.Success)

	require.Len(t, previews.previews, 1)
	for _, p := range previews.previews {
		assert.Equal(t, int64(25000), p.AmountCents)
		assert.Equal(t, "BRL", p.Currency)
		assert.Equal(t, "u1", p.UserID)
	}
}

func TestCreateChargeRequiresPreview(t *testing.T) {
	tool := NewCreateChargeTool(NewStore(), newMemPreviews(), enterpriseChecker())

	result, err := tool.Execute(context.Background(), map[string]any{
		"customer_id": "cust_001",
		"amount":      "150",
		"description": "visita",
	}, model.ToolContext{UserID: "u1"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "PREVIEW_REQUIRED", result.ErrorCode)
}

func TestCreateChargeRejectsExpiredPreview(t *testing.T) {
	previews := newMemPreviews()
	previews.previews["prev_1"] = &model.PaymentPreview{
		ID:          "prev_1",
		UserID:      "u1",
		CustomerID:  "cust_001",
		AmountCents: 15000,
		Currency:    "BRL",
		ExpiresAt:   time.Now().UTC().Add(-time.Minute),
	}
	tool := NewCreateChargeTool(NewStore(), previews, enterpriseChecker())

	result, err := tool.Execute(context.Background(), map[string]any{
		"customer_id": "cust_001",
		"amount":      "150",
		"description": "visita",
		"preview_id":  "prev_1",
	}, model.ToolContext{UserID: "u1"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "PREVIEW_EXPIRED", result.ErrorCode)
}

func TestCreateChargeIsIdempotent(t *testing.T) {
	previews := newMemPreviews()
	previews.previews["prev_1"] = &model.PaymentPreview{
		ID:          "prev_1",
		UserID:      "u1",
		CustomerID:  "cust_001",
		AmountCents: 15000,
		Currency:    "BRL",
		ExpiresAt:   time.Now().UTC().Add(5 * time.Minute),
	}
	store := NewStore()
	tool := NewCreateChargeTool(store, previews, enterpriseChecker())

	params := map[string]any{
		"customer_id": "cust_001",
		"amount":      "150",
		"description": "visita",
		"preview_id":  "prev_1",
	}
	tctx := model.ToolContext{UserID: "u1", IdempotencyKey: "idem-1"}

	first, err := tool.Execute(context.Background(), params, tctx)
	require.NoError(t, err)
	require.True(t, first.Success)
	second, err := tool.Execute(context.Background(), params, tctx)
	require.NoError(t, err)
	require.True(t, second.Success)

	firstCharge := first.Data.(map[string]any)["charge"].(Charge)
	secondCharge := second.Data.(map[string]any)["charge"].(Charge)
	assert.Equal(t, firstCharge.ID, secondCharge.ID)
	assert.True(t, second.Data.(map[string]any)["replayed"].(bool))
}

func TestRevenueReportPeriods(t *testing.T) {
	tool := NewRevenueReportTool(NewStore(), enterpriseChecker())

	result, err := tool.Execute(context.Background(), map[string]any{}, model.ToolContext{UserID: "u1"})
	require.NoError(t, err)
	require.True(t, result.Success)

	data := result.Data.(map[string]any)
	assert.Equal(t, "month", data["period"])
	// seeded charge: R$ 600,00 created 7 days ago
	assert.Equal(t, int64(60000), data["total_cents"])
	assert.Equal(t, 1, data["charges"])

	invalid, err := tool.Execute(context.Background(), map[string]any{"period": "decade"}, model.ToolContext{UserID: "u1"})
	require.NoError(t, err)
	assert.False(t, invalid.Success)
}
