package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/fieldops-copilot/server/internal/copilot/model"
	"github.com/fieldops-copilot/server/internal/copilot/registry"
)

// base carries the pieces every tool shares: static metadata, the permission
// checker and the missing-field validation derived from declared parameters.
type base struct {
	meta    model.ToolMetadata
	checker *registry.PermissionChecker
}

func (b *base) Metadata() model.ToolMetadata { return b.meta }

func (b *base) CheckPermission(ctx context.Context, tctx model.ToolContext) (bool, error) {
	return b.checker.HasAll(ctx, tctx.UserID, b.meta.RequiredPermissions)
}

// Validate surfaces missing required parameters. The text reaches the user
// verbatim, so it is product language.
func (b *base) Validate(params map[string]any) error {
	if missing := b.meta.MissingParams(params); len(missing) > 0 {
		return fmt.Errorf("campos obrigatórios ausentes: %s", strings.Join(missing, ", "))
	}
	return nil
}

func stringParam(params map[string]any, key string) string {
	if v, ok := params[key]; ok && v != nil {
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
	return ""
}

func okResult(data map[string]any, entities ...model.AffectedEntity) *model.ToolResult {
	return &model.ToolResult{Success: true, Data: data, AffectedEntities: entities}
}
