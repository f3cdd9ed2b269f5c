package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/fieldops-copilot/server/internal/copilot/model"
	"github.com/fieldops-copilot/server/internal/copilot/registry"
)

// CreateWorkOrderTool schedules a new service job.
type CreateWorkOrderTool struct {
	base
	store *Store
}

func NewCreateWorkOrderTool(store *Store, checker *registry.PermissionChecker) *CreateWorkOrderTool {
	return &CreateWorkOrderTool{
		base: base{
			meta: model.ToolMetadata{
				Name:        "workorders.create",
				Description: "Cria uma ordem de serviço.",
				ActionType:  model.ActionCreate,
				Parameters: map[string]model.ParameterSpec{
					"description":    {Type: "string", Description: "Descrição do serviço", Required: true},
					"customer_id":    {Type: "string", Description: "Identificador do cliente"},
					"scheduled_date": {Type: "string", Description: "Data agendada, formato AAAA-MM-DD"},
				},
				RequiredPermissions: []string{registry.PermWorkOrdersWrite},
			},
			checker: checker,
		},
		store: store,
	}
}

func (t *CreateWorkOrderTool) Execute(_ context.Context, params map[string]any, _ model.ToolContext) (*model.ToolResult, error) {
	order := t.store.CreateWorkOrder(
		stringParam(params, "customer_id"),
		stringParam(params, "description"),
		stringParam(params, "scheduled_date"),
	)
	return okResult(map[string]any{
		"workorder": order,
		"message":   fmt.Sprintf("Ordem de serviço %s criada.", order.ID),
	}, model.AffectedEntity{Type: "workorder", ID: order.ID, Action: "created"}), nil
}

// UpdateWorkOrderStatusTool moves a work order through its lifecycle.
type UpdateWorkOrderStatusTool struct {
	base
	store *Store
}

func NewUpdateWorkOrderStatusTool(store *Store, checker *registry.PermissionChecker) *UpdateWorkOrderStatusTool {
	return &UpdateWorkOrderStatusTool{
		base: base{
			meta: model.ToolMetadata{
				Name:        "workorders.update_status",
				Description: "Atualiza o status de uma ordem de serviço.",
				ActionType:  model.ActionUpdate,
				Parameters: map[string]model.ParameterSpec{
					"workorder_id": {Type: "string", Description: "Identificador da ordem de serviço", Required: true},
					"status":       {Type: "string", Description: "Novo status: " + strings.Join(WorkOrderStatuses, ", "), Required: true},
				},
				RequiredPermissions: []string{registry.PermWorkOrdersWrite},
			},
			checker: checker,
		},
		store: store,
	}
}

func (t *UpdateWorkOrderStatusTool) Validate(params map[string]any) error {
	if err := t.base.Validate(params); err != nil {
		return err
	}
	status := strings.ToLower(stringParam(params, "status"))
	for _, allowed := range WorkOrderStatuses {
		if status == allowed {
			return nil
		}
	}
	return fmt.Errorf("status inválido %q, use um de: %s", status, strings.Join(WorkOrderStatuses, ", "))
}

func (t *UpdateWorkOrderStatusTool) Execute(_ context.Context, params map[string]any, _ model.ToolContext) (*model.ToolResult, error) {
	order, err := t.store.UpdateWorkOrderStatus(
		stringParam(params, "workorder_id"),
		strings.ToLower(stringParam(params, "status")),
	)
	if err != nil {
		return &model.ToolResult{Success: false, Error: err.Error(), ErrorCode: "not_found"}, nil
	}
	return okResult(map[string]any{
		"workorder": order,
		"message":   fmt.Sprintf("Ordem %s atualizada para %s.", order.ID, order.Status),
	}, model.AffectedEntity{Type: "workorder", ID: order.ID, Action: "updated"}), nil
}
