package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops-copilot/server/internal/copilot/model"
	"github.com/fieldops-copilot/server/internal/copilot/plan"
	"github.com/fieldops-copilot/server/internal/copilot/registry"
)

// PreviewChargeTool produces the non-committal dry run of a charge. Nothing
// is billed; the caller gets a preview id to reference in the real charge.
type PreviewChargeTool struct {
	base
	previews   model.PreviewStore
	previewTTL time.Duration
}

func NewPreviewChargeTool(previews model.PreviewStore, previewTTL time.Duration, checker *registry.PermissionChecker) *PreviewChargeTool {
	return &PreviewChargeTool{
		base: base{
			meta: model.ToolMetadata{
				Name:        "payments.preview_charge",
				Description: "Simula uma cobrança sem efetivá-la e retorna um identificador de prévia.",
				ActionType:  model.ActionRead,
				Parameters: map[string]model.ParameterSpec{
					"customer_id": {Type: "string", Description: "Identificador do cliente", Required: true},
					"amount":      {Type: "string", Description: "Valor da cobrança, ex: 150 ou R$ 150,00", Required: true},
					"description": {Type: "string", Description: "Descrição da cobrança"},
				},
				RequiredPermissions: []string{registry.PermPaymentsCharge},
			},
			checker: checker,
		},
		previews:   previews,
		previewTTL: previewTTL,
	}
}

func (t *PreviewChargeTool) Validate(params map[string]any) error {
	if err := t.base.Validate(params); err != nil {
		return err
	}
	if _, ok := plan.ParseAmountCents(params["amount"]); !ok {
		return fmt.Errorf("valor inválido %q, informe um número como 150 ou R$ 150,00", stringParam(params, "amount"))
	}
	return nil
}

func (t *PreviewChargeTool) Execute(ctx context.Context, params map[string]any, tctx model.ToolContext) (*model.ToolResult, error) {
	amountCents, _ := plan.ParseAmountCents(params["amount"])

	preview := &model.PaymentPreview{
		ID:          uuid.New().String(),
		UserID:      tctx.UserID,
		CustomerID:  stringParam(params, "customer_id"),
		Description: stringParam(params, "description"),
		AmountCents: amountCents,
		Currency:    "BRL",
		ExpiresAt:   time.Now().UTC().Add(t.previewTTL),
	}
	if err := t.previews.SavePreview(ctx, preview); err != nil {
		return nil, err
	}

	return okResult(map[string]any{
		"preview": preview,
		"message": fmt.Sprintf("Prévia: cobrança de R$ %s para o cliente %s. Válida até %s.",
			plan.FormatBRL(preview.AmountCents), preview.CustomerID,
			preview.ExpiresAt.Format("15:04:05")),
	}), nil
}

// CreateChargeTool effectuates a charge. It refuses to run from raw amounts:
// the call must reference a still-valid preview id, so the user always
// confirms the exact amount shown in the preview.
type CreateChargeTool struct {
	base
	store    *Store
	previews model.PreviewStore
}

func NewCreateChargeTool(store *Store, previews model.PreviewStore, checker *registry.PermissionChecker) *CreateChargeTool {
	return &CreateChargeTool{
		base: base{
			meta: model.ToolMetadata{
				Name:        "payments.create_charge",
				Description: "Efetiva uma cobrança a partir de uma prévia válida.",
				ActionType:  model.ActionPaymentCreate,
				Parameters: map[string]model.ParameterSpec{
					"customer_id": {Type: "string", Description: "Identificador do cliente", Required: true},
					"amount":      {Type: "string", Description: "Valor da cobrança", Required: true},
					"description": {Type: "string", Description: "Descrição da cobrança", Required: true},
					"preview_id":  {Type: "string", Description: "Identificador da prévia gerada antes da confirmação"},
				},
				RequiredPermissions:    []string{registry.PermPaymentsCharge},
				RequiresPaymentPreview: true,
			},
			checker: checker,
		},
		store:    store,
		previews: previews,
	}
}

func (t *CreateChargeTool) Execute(ctx context.Context, params map[string]any, tctx model.ToolContext) (*model.ToolResult, error) {
	previewID := stringParam(params, "preview_id")
	if previewID == "" {
		return &model.ToolResult{
			Success:   false,
			Error:     "A cobrança precisa referenciar uma prévia. Gere a prévia antes de confirmar.",
			ErrorCode: "PREVIEW_REQUIRED",
		}, nil
	}

	preview, err := t.previews.GetPreview(ctx, previewID)
	if err != nil {
		return nil, err
	}
	if preview == nil || preview.Expired(time.Now().UTC()) {
		return &model.ToolResult{
			Success:   false,
			Error:     "A prévia da cobrança expirou. Gere uma nova prévia e confirme novamente.",
			ErrorCode: "PREVIEW_EXPIRED",
		}, nil
	}

	charge, replayed := t.store.CreateCharge(
		tctx.IdempotencyKey,
		preview.ID,
		preview.CustomerID,
		preview.Description,
		preview.AmountCents,
		preview.Currency,
	)
	return okResult(map[string]any{
		"charge":   charge,
		"replayed": replayed,
		"message": fmt.Sprintf("Cobrança de R$ %s criada para o cliente %s.",
			plan.FormatBRL(charge.AmountCents), charge.CustomerID),
	}, model.AffectedEntity{Type: "charge", ID: charge.ID, Action: "created"}), nil
}
