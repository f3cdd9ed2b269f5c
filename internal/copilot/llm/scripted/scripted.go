// Package scripted implements a deterministic llm.Provider used in tests,
// development and as the failover target of the selector. It matches the
// latest user utterance (plus the transcript) against an ordered rule list;
// the first matching rule produces the response. It is always available and
// never fails.
package scripted

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/fieldops-copilot/server/internal/copilot/llm"
	"github.com/fieldops-copilot/server/internal/copilot/model"
)

// Turn is the input a rule is evaluated against.
type Turn struct {
	// Utterance is the latest user message, lowercased for matching via Text.
	Utterance string

	// Transcript is the full conversation so far, most recent last.
	Transcript []model.Message
}

// Text returns the utterance lowercased and trimmed.
func (t Turn) Text() string {
	return strings.ToLower(strings.TrimSpace(t.Utterance))
}

// Rule pairs a predicate with a response builder. Rules are evaluated in
// registration order; the first match wins.
type Rule struct {
	Name    string
	Match   func(Turn) bool
	Respond func(Turn) *model.AssistantResponse
}

// Provider is the deterministic stand-in.
type Provider struct {
	rules []Rule
}

// New builds a scripted provider from an ordered rule list. With no rules it
// uses DefaultRules.
func New(rules ...Rule) *Provider {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Provider{rules: rules}
}

// Name implements llm.Provider.
func (p *Provider) Name() string { return "scripted" }

// IsAvailable implements llm.Provider. The stand-in is always available.
func (p *Provider) IsAvailable() bool { return true }

// Rules exposes the ordered rule list; order is part of the contract.
func (p *Provider) Rules() []Rule { return p.rules }

// Complete implements llm.Provider. It never returns an error.
func (p *Provider) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	turn := Turn{Transcript: req.Messages}
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == model.RoleUser {
			turn.Utterance = req.Messages[i].Content
			break
		}
	}

	resp := DefaultReply()
	for _, rule := range p.rules {
		if rule.Match(turn) {
			resp = rule.Respond(turn)
			break
		}
	}

	return &llm.Response{
		Content:      EncodeWire(resp),
		FinishReason: llm.FinishStop,
	}, nil
}

// DefaultReply is the fixed informative message produced when no rule matches.
func DefaultReply() *model.AssistantResponse {
	return model.NewMessageResponse(model.MessageResponse{
		Message: "Desculpe, não entendi o pedido. Posso criar clientes, orçamentos, ordens de serviço e cobranças, ou buscar informações para você.",
	})
}

// EncodeWire renders a discriminated response in the JSON wire shape the
// parser classifies, so the stand-in exercises the same parse path as the
// real providers.
func EncodeWire(resp *model.AssistantResponse) string {
	out := map[string]any{"type": string(resp.Type)}
	switch resp.Type {
	case model.ResponsePlan:
		out["action"] = resp.Plan.Action
		out["collectedFields"] = resp.Plan.CollectedFields
		out["missingFields"] = resp.Plan.MissingFields
		out["requiresConfirmation"] = resp.Plan.RequiresConfirmation
		if len(resp.Plan.SuggestedActions) > 0 {
			out["suggestedActions"] = resp.Plan.SuggestedActions
		}
	case model.ResponseCallTool:
		out["tool"] = resp.CallTool.Tool
		out["params"] = resp.CallTool.Params
	case model.ResponseAskUser:
		out["question"] = resp.AskUser.Question
		if resp.AskUser.Context != "" {
			out["context"] = resp.AskUser.Context
		}
		if len(resp.AskUser.Options) > 0 {
			out["options"] = resp.AskUser.Options
		}
	default:
		out["type"] = string(model.ResponseMessage)
		out["message"] = resp.Message.Message
		if len(resp.Message.Data) > 0 {
			out["data"] = resp.Message.Data
		}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return resp.Message.Message
	}
	return string(b)
}

var (
	reGreeting   = regexp.MustCompile(`^(oi|ol[áa]|bom dia|boa tarde|boa noite|hello|hi)\b`)
	reNewClient  = regexp.MustCompile(`(criar|novo|nova|cadastrar|adicionar)\s+(um\s+|uma\s+)?cliente`)
	reClientName = regexp.MustCompile(`cliente\s+(?:chamado\s+|chamada\s+)?["']?([\p{L}][\p{L}\s.'-]{2,60})["']?$`)
	reNewQuote   = regexp.MustCompile(`(criar|novo|gerar|fazer)\s+(um\s+)?or[çc]amento`)
	reNewOrder   = regexp.MustCompile(`(criar|nova|abrir)\s+(uma\s+)?ordem de servi[çc]o`)
	reCharge     = regexp.MustCompile(`(criar|gerar|emitir)\s+(uma\s+)?cobran[çc]a|cobrar\s`)
	reSearch     = regexp.MustCompile(`(listar|buscar|procurar|mostrar)\s+(os\s+|as\s+)?clientes?`)
	reRevenue    = regexp.MustCompile(`receita|faturamento|relat[óo]rio de vendas`)
)

// DefaultRules is the ordered rule list mirroring the product's intents.
// Order matters: more specific intents come before generic ones.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:  "create_client",
			Match: func(t Turn) bool { return reNewClient.MatchString(t.Text()) },
			Respond: func(t Turn) *model.AssistantResponse {
				collected := map[string]any{}
				missing := []string{"name"}
				if m := reClientName.FindStringSubmatch(strings.TrimSpace(t.Utterance)); m != nil {
					collected["name"] = strings.TrimSpace(m[1])
					missing = []string{}
				}
				return model.NewPlanResponse(model.PlanResponse{
					Action:               "customers.create",
					CollectedFields:      collected,
					MissingFields:        missing,
					RequiresConfirmation: true,
				})
			},
		},
		{
			Name:  "create_quote",
			Match: func(t Turn) bool { return reNewQuote.MatchString(t.Text()) },
			Respond: func(t Turn) *model.AssistantResponse {
				return model.NewPlanResponse(model.PlanResponse{
					Action:               "quotes.create",
					CollectedFields:      map[string]any{},
					MissingFields:        []string{"client_name", "items"},
					RequiresConfirmation: true,
				})
			},
		},
		{
			Name:  "create_work_order",
			Match: func(t Turn) bool { return reNewOrder.MatchString(t.Text()) },
			Respond: func(t Turn) *model.AssistantResponse {
				return model.NewPlanResponse(model.PlanResponse{
					Action:               "workorders.create",
					CollectedFields:      map[string]any{},
					MissingFields:        []string{"client_name", "description"},
					RequiresConfirmation: true,
				})
			},
		},
		{
			Name:  "create_charge",
			Match: func(t Turn) bool { return reCharge.MatchString(t.Text()) },
			Respond: func(t Turn) *model.AssistantResponse {
				return model.NewPlanResponse(model.PlanResponse{
					Action:               "payments.create_charge",
					CollectedFields:      map[string]any{},
					MissingFields:        []string{"customer_id", "amount", "description"},
					RequiresConfirmation: true,
				})
			},
		},
		{
			Name:  "search_clients",
			Match: func(t Turn) bool { return reSearch.MatchString(t.Text()) },
			Respond: func(t Turn) *model.AssistantResponse {
				return model.NewCallToolResponse(model.CallToolResponse{
					Tool:   "customers.search",
					Params: map[string]any{"query": ""},
				})
			},
		},
		{
			Name:  "revenue_report",
			Match: func(t Turn) bool { return reRevenue.MatchString(t.Text()) },
			Respond: func(t Turn) *model.AssistantResponse {
				return model.NewCallToolResponse(model.CallToolResponse{
					Tool:   "reports.revenue",
					Params: map[string]any{},
				})
			},
		},
		{
			Name:  "greeting",
			Match: func(t Turn) bool { return reGreeting.MatchString(t.Text()) },
			Respond: func(t Turn) *model.AssistantResponse {
				return model.NewMessageResponse(model.MessageResponse{
					Message: "Olá! Como posso ajudá-lo?",
				})
			},
		},
	}
}
