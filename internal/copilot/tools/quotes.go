package tools

import (
	"context"
	"fmt"

	"github.com/fieldops-copilot/server/internal/copilot/model"
	"github.com/fieldops-copilot/server/internal/copilot/plan"
	"github.com/fieldops-copilot/server/internal/copilot/registry"
)

// CreateQuoteTool drafts a service estimate for a client.
type CreateQuoteTool struct {
	base
	store *Store
}

func NewCreateQuoteTool(store *Store, checker *registry.PermissionChecker) *CreateQuoteTool {
	return &CreateQuoteTool{
		base: base{
			meta: model.ToolMetadata{
				Name:        "quotes.create",
				Description: "Cria um orçamento de serviço para um cliente.",
				ActionType:  model.ActionCreate,
				Parameters: map[string]model.ParameterSpec{
					"client_name":  {Type: "string", Description: "Nome do cliente", Required: true},
					"items":        {Type: "string", Description: "Itens ou serviços do orçamento", Required: true},
					"total_amount": {Type: "string", Description: "Valor total, ex: 350 ou R$ 350,00"},
				},
				RequiredPermissions: []string{registry.PermQuotesWrite},
			},
			checker: checker,
		},
		store: store,
	}
}

func (t *CreateQuoteTool) Execute(_ context.Context, params map[string]any, _ model.ToolContext) (*model.ToolResult, error) {
	var totalCents int64
	if raw, ok := params["total_amount"]; ok {
		if cents, parsed := plan.ParseAmountCents(raw); parsed {
			totalCents = cents
		}
	}

	quote := t.store.CreateQuote(
		stringParam(params, "client_name"),
		stringParam(params, "items"),
		totalCents,
	)
	return okResult(map[string]any{
		"quote":   quote,
		"message": fmt.Sprintf("Orçamento %s criado para %q.", quote.ID, quote.ClientName),
	}, model.AffectedEntity{Type: "quote", ID: quote.ID, Action: "created"}), nil
}

// ListQuotesTool lists existing quotes, optionally per client.
type ListQuotesTool struct {
	base
	store *Store
}

func NewListQuotesTool(store *Store, checker *registry.PermissionChecker) *ListQuotesTool {
	return &ListQuotesTool{
		base: base{
			meta: model.ToolMetadata{
				Name:        "quotes.list",
				Description: "Lista orçamentos, com filtro opcional por cliente.",
				ActionType:  model.ActionRead,
				Parameters: map[string]model.ParameterSpec{
					"client_name": {Type: "string", Description: "Filtra pelos orçamentos do cliente"},
				},
				RequiredPermissions: []string{registry.PermQuotesRead},
			},
			checker: checker,
		},
		store: store,
	}
}

func (t *ListQuotesTool) Execute(_ context.Context, params map[string]any, _ model.ToolContext) (*model.ToolResult, error) {
	quotes := t.store.ListQuotes(stringParam(params, "client_name"))
	return okResult(map[string]any{
		"quotes":  quotes,
		"total":   len(quotes),
		"message": fmt.Sprintf("Encontrei %d orçamento(s).", len(quotes)),
	}), nil
}
