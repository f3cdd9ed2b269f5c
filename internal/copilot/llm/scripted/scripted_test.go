package scripted

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops-copilot/server/internal/copilot/llm"
	"github.com/fieldops-copilot/server/internal/copilot/model"
	"github.com/fieldops-copilot/server/internal/copilot/parser"
)

func complete(t *testing.T, utterance string) *model.AssistantResponse {
	t.Helper()
	p := New()
	resp, err := p.Complete(context.Background(), llm.Request{
		Messages: []model.Message{model.UserMessage(utterance)},
	})
	require.NoError(t, err)

	res := parser.Parse(resp.Content)
	require.NoError(t, res.Err)
	return res.Response
}

func TestGreeting(t *testing.T) {
	for _, utterance := range []string{"Olá", "oi", "Bom dia!"} {
		resp := complete(t, utterance)
		require.True(t, resp.IsMessage(), utterance)
		assert.Equal(t, "Olá! Como posso ajudá-lo?", resp.Message.Message)
	}
}

func TestCreateClientExtractsName(t *testing.T) {
	resp := complete(t, "Quero cadastrar um cliente chamado João Silva")
	require.True(t, resp.IsPlan())
	assert.Equal(t, "customers.create", resp.Plan.Action)
	assert.Equal(t, "João Silva", resp.Plan.CollectedFields["name"])
	assert.Empty(t, resp.Plan.MissingFields)
}

func TestCreateClientWithoutName(t *testing.T) {
	resp := complete(t, "preciso criar um cliente")
	require.True(t, resp.IsPlan())
	assert.Equal(t, "customers.create", resp.Plan.Action)
	assert.Equal(t, []string{"name"}, resp.Plan.MissingFields)
}

func TestCreateQuoteIntent(t *testing.T) {
	resp := complete(t, "Quero criar um orçamento")
	require.True(t, resp.IsPlan())
	assert.Equal(t, "quotes.create", resp.Plan.Action)
	assert.Equal(t, []string{"client_name", "items"}, resp.Plan.MissingFields)
	assert.True(t, resp.Plan.RequiresConfirmation)
}

func TestCreateChargeIntent(t *testing.T) {
	resp := complete(t, "gerar uma cobrança para o cliente")
	require.True(t, resp.IsPlan())
	assert.Equal(t, "payments.create_charge", resp.Plan.Action)
}

func TestRevenueIntent(t *testing.T) {
	resp := complete(t, "como está o faturamento deste mês?")
	require.True(t, resp.IsCallTool())
	assert.Equal(t, "reports.revenue", resp.CallTool.Tool)
}

func TestRuleOrderFirstMatchWins(t *testing.T) {
	// "criar um orçamento" also contains "criar", but the quote rule sits
	// before any generic fallback; a greeting prefix must not shadow it.
	resp := complete(t, "Oi! Pode criar um orçamento?")
	require.True(t, resp.IsPlan())
	assert.Equal(t, "quotes.create", resp.Plan.Action)
}

func TestDefaultReplyWhenNothingMatches(t *testing.T) {
	resp := complete(t, "xyzzy plugh")
	require.True(t, resp.IsMessage())
	assert.Equal(t, DefaultReply().Message.Message, resp.Message.Message)
}

func TestCustomRulesOverrideDefaults(t *testing.T) {
	custom := New(Rule{
		Name:  "always",
		Match: func(Turn) bool { return true },
		Respond: func(Turn) *model.AssistantResponse {
			return model.NewMessageResponse(model.MessageResponse{Message: "fixo"})
		},
	})

	resp, err := custom.Complete(context.Background(), llm.Request{
		Messages: []model.Message{model.UserMessage("qualquer coisa")},
	})
	require.NoError(t, err)
	res := parser.Parse(resp.Content)
	require.NoError(t, res.Err)
	assert.Equal(t, "fixo", res.Response.Message.Message)
}

func TestAlwaysAvailable(t *testing.T) {
	assert.True(t, New().IsAvailable())
	assert.Equal(t, "scripted", New().Name())
}
