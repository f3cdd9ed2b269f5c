package tools

import (
	"time"

	"github.com/fieldops-copilot/server/internal/copilot/model"
	"github.com/fieldops-copilot/server/internal/copilot/registry"
)

// RegisterAll wires the full tool catalog into the registry.
func RegisterAll(reg *registry.Registry, store *Store, previews model.PreviewStore, previewTTL time.Duration, checker *registry.PermissionChecker) {
	reg.Register(NewCreateCustomerTool(store, checker))
	reg.Register(NewSearchCustomersTool(store, checker))
	reg.Register(NewCreateQuoteTool(store, checker))
	reg.Register(NewListQuotesTool(store, checker))
	reg.Register(NewCreateWorkOrderTool(store, checker))
	reg.Register(NewUpdateWorkOrderStatusTool(store, checker))
	reg.Register(NewPreviewChargeTool(previews, previewTTL, checker))
	reg.Register(NewCreateChargeTool(store, previews, checker))
	reg.Register(NewRevenueReportTool(store, checker))
}
