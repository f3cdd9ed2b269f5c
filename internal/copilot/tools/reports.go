package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fieldops-copilot/server/internal/copilot/model"
	"github.com/fieldops-copilot/server/internal/copilot/plan"
	"github.com/fieldops-copilot/server/internal/copilot/registry"
)

// RevenueReportTool sums charged revenue over a period.
type RevenueReportTool struct {
	base
	store *Store
	now   func() time.Time
}

func NewRevenueReportTool(store *Store, checker *registry.PermissionChecker) *RevenueReportTool {
	return &RevenueReportTool{
		base: base{
			meta: model.ToolMetadata{
				Name:        "reports.revenue",
				Description: "Resumo de faturamento por período.",
				ActionType:  model.ActionRead,
				Parameters: map[string]model.ParameterSpec{
					"period": {Type: "string", Description: "Período do relatório: week, month ou quarter (padrão: month)"},
				},
				RequiredPermissions: []string{registry.PermReportsView},
			},
			checker: checker,
		},
		store: store,
		now:   time.Now,
	}
}

func (t *RevenueReportTool) Execute(_ context.Context, params map[string]any, _ model.ToolContext) (*model.ToolResult, error) {
	period := strings.ToLower(stringParam(params, "period"))
	if period == "" {
		period = "month"
	}

	to := t.now().UTC()
	var from time.Time
	switch period {
	case "week":
		from = to.Add(-7 * 24 * time.Hour)
	case "month":
		from = to.Add(-30 * 24 * time.Hour)
	case "quarter":
		from = to.Add(-90 * 24 * time.Hour)
	default:
		return &model.ToolResult{
			Success:   false,
			Error:     fmt.Sprintf("período inválido %q, use week, month ou quarter", period),
			ErrorCode: "validation_failed",
		}, nil
	}

	totalCents, count := t.store.Revenue(from, to)
	return okResult(map[string]any{
		"period":      period,
		"from":        from.Format("2006-01-02"),
		"to":          to.Format("2006-01-02"),
		"total_cents": totalCents,
		"charges":     count,
		"message": fmt.Sprintf("Faturamento do período (%s): R$ %s em %d cobrança(s).",
			period, plan.FormatBRL(totalCents), count),
	}), nil
}
