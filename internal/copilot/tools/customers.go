package tools

import (
	"context"
	"fmt"

	"github.com/fieldops-copilot/server/internal/copilot/model"
	"github.com/fieldops-copilot/server/internal/copilot/registry"
)

// CreateCustomerTool registers a new client record.
type CreateCustomerTool struct {
	base
	store *Store
}

func NewCreateCustomerTool(store *Store, checker *registry.PermissionChecker) *CreateCustomerTool {
	return &CreateCustomerTool{
		base: base{
			meta: model.ToolMetadata{
				Name:        "customers.create",
				Description: "Cadastra um novo cliente com nome e contatos.",
				ActionType:  model.ActionCreate,
				Parameters: map[string]model.ParameterSpec{
					"name":    {Type: "string", Description: "Nome completo do cliente", Required: true},
					"phone":   {Type: "string", Description: "Telefone de contato"},
					"email":   {Type: "string", Description: "E-mail de contato"},
					"address": {Type: "string", Description: "Endereço do cliente"},
				},
				RequiredPermissions: []string{registry.PermCustomersWrite},
			},
			checker: checker,
		},
		store: store,
	}
}

func (t *CreateCustomerTool) Execute(_ context.Context, params map[string]any, _ model.ToolContext) (*model.ToolResult, error) {
	customer := t.store.CreateCustomer(
		stringParam(params, "name"),
		stringParam(params, "phone"),
		stringParam(params, "email"),
		stringParam(params, "address"),
	)
	return okResult(map[string]any{
		"customer": customer,
		"message":  fmt.Sprintf("Cliente %q criado com sucesso.", customer.Name),
	}, model.AffectedEntity{Type: "customer", ID: customer.ID, Action: "created"}), nil
}

// SearchCustomersTool finds clients by name, email or phone.
type SearchCustomersTool struct {
	base
	store *Store
}

func NewSearchCustomersTool(store *Store, checker *registry.PermissionChecker) *SearchCustomersTool {
	return &SearchCustomersTool{
		base: base{
			meta: model.ToolMetadata{
				Name:        "customers.search",
				Description: "Busca clientes por nome, e-mail ou telefone.",
				ActionType:  model.ActionRead,
				Parameters: map[string]model.ParameterSpec{
					"query": {Type: "string", Description: "Texto de busca", Required: true},
				},
				RequiredPermissions: []string{registry.PermCustomersRead},
			},
			checker: checker,
		},
		store: store,
	}
}

func (t *SearchCustomersTool) Execute(_ context.Context, params map[string]any, _ model.ToolContext) (*model.ToolResult, error) {
	query := stringParam(params, "query")
	matches := t.store.SearchCustomers(query)

	message := fmt.Sprintf("Encontrei %d cliente(s) para %q.", len(matches), query)
	if len(matches) == 0 {
		message = fmt.Sprintf("Nenhum cliente encontrado para %q.", query)
	}
	return okResult(map[string]any{
		"customers": matches,
		"total":     len(matches),
		"message":   message,
	}), nil
}
