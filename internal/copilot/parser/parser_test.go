package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/fieldops-copilot/server/internal/core/error"
)

func TestParsePlan(t *testing.T) {
	raw := `{"type":"PLAN","action":"quotes.create","collectedFields":{"client_name":"João Silva"},"missingFields":["items"],"requiresConfirmation":true}`

	res := Parse(raw)
	require.NoError(t, res.Err)
	require.True(t, res.OK)
	require.True(t, res.Response.IsPlan())

	plan := res.Response.Plan
	assert.Equal(t, "quotes.create", plan.Action)
	assert.Equal(t, "João Silva", plan.CollectedFields["client_name"])
	assert.Equal(t, []string{"items"}, plan.MissingFields)
	assert.True(t, plan.RequiresConfirmation)
}

func TestParsePlanDefaults(t *testing.T) {
	res := Parse(`{"type":"PLAN","action":"customers.create"}`)
	require.NoError(t, res.Err)
	require.True(t, res.Response.IsPlan())

	plan := res.Response.Plan
	assert.NotNil(t, plan.CollectedFields)
	assert.Empty(t, plan.CollectedFields)
	assert.NotNil(t, plan.MissingFields)
	assert.Empty(t, plan.MissingFields)
	// Confirmation defaults to required when the model omits the flag.
	assert.True(t, plan.RequiresConfirmation)
}

func TestParsePlanMissingAction(t *testing.T) {
	res := Parse(`{"type":"PLAN","collectedFields":{}}`)
	require.Error(t, res.Err)
	assert.Equal(t, errx.CodeMissingField, errx.CodeOf(res.Err))
}

func TestParseCallTool(t *testing.T) {
	res := Parse(`{"type":"CALL_TOOL","tool":"customers.search","params":{"query":"maria"}}`)
	require.NoError(t, res.Err)
	require.True(t, res.Response.IsCallTool())
	assert.Equal(t, "customers.search", res.Response.CallTool.Tool)
	assert.Equal(t, "maria", res.Response.CallTool.Params["query"])
}

func TestParseCallToolMissingTool(t *testing.T) {
	res := Parse(`{"type":"CALL_TOOL","params":{}}`)
	require.Error(t, res.Err)
	assert.Equal(t, errx.CodeMissingField, errx.CodeOf(res.Err))
}

func TestParseAskUser(t *testing.T) {
	res := Parse(`{"type":"ASK_USER","question":"Qual o nome do cliente?","options":["João","Maria"]}`)
	require.NoError(t, res.Err)
	require.True(t, res.Response.IsAskUser())
	assert.Equal(t, "Qual o nome do cliente?", res.Response.AskUser.Question)
	assert.Equal(t, []string{"João", "Maria"}, res.Response.AskUser.Options)
}

func TestParseMessage(t *testing.T) {
	res := Parse(`{"type":"RESPONSE","message":"Olá! Como posso ajudá-lo?"}`)
	require.NoError(t, res.Err)
	require.True(t, res.Response.IsMessage())
	assert.Equal(t, "Olá! Como posso ajudá-lo?", res.Response.Message.Message)
}

func TestParseFencedBlock(t *testing.T) {
	raw := "Claro, segue a resposta:\n```json\n{\"type\":\"RESPONSE\",\"message\":\"feito\"}\n```\nEspero ter ajudado."

	res := Parse(raw)
	require.NoError(t, res.Err)
	require.True(t, res.Response.IsMessage())
	assert.Equal(t, "feito", res.Response.Message.Message)
}

func TestParseEmbeddedObject(t *testing.T) {
	raw := `O resultado é {"type":"CALL_TOOL","tool":"reports.revenue","params":{"period":"month"}} conforme pedido.`

	res := Parse(raw)
	require.NoError(t, res.Err)
	require.True(t, res.Response.IsCallTool())
	assert.Equal(t, "reports.revenue", res.Response.CallTool.Tool)
}

func TestParseBracesInsideStrings(t *testing.T) {
	raw := `{"type":"RESPONSE","message":"chaves {assim} não quebram o parser"}`

	res := Parse(raw)
	require.NoError(t, res.Err)
	require.True(t, res.Response.IsMessage())
	assert.Contains(t, res.Response.Message.Message, "{assim}")
}

func TestParsePlainTextFallback(t *testing.T) {
	res := Parse("Bom dia! Em que posso ajudar?")
	require.NoError(t, res.Err)
	require.True(t, res.Response.IsMessage())
	assert.Equal(t, "Bom dia! Em que posso ajudar?", res.Response.Message.Message)
}

func TestParseUnknownDiscriminator(t *testing.T) {
	raw := `{"type":"SOMETHING_ELSE","payload":1}`
	res := Parse(raw)
	require.NoError(t, res.Err)
	require.True(t, res.Response.IsMessage())
	assert.Equal(t, raw, res.Response.Message.Message)
}

func TestParseMalformedJSONFallsBack(t *testing.T) {
	raw := `{"type":"PLAN","action":` // truncated
	res := Parse(raw)
	require.NoError(t, res.Err)
	require.True(t, res.Response.IsMessage())
}

func TestParseEmptyInputIsError(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t"} {
		res := Parse(raw)
		require.Error(t, res.Err)
		assert.Equal(t, errx.CodeParseFailed, errx.CodeOf(res.Err))
	}
}

func TestParseOversizedInputTruncated(t *testing.T) {
	raw := strings.Repeat("a", maxContentLen+512)
	res := Parse(raw)
	require.NoError(t, res.Err)
	require.True(t, res.Response.IsMessage())
	assert.Len(t, res.Response.Message.Message, maxContentLen)
}

func TestIsWriteTool(t *testing.T) {
	writes := []string{
		"customers.create",
		"quotes.create",
		"workorders.update_status",
		"payments.create_charge",
		"jobs.cancel",
		"team.assign_technician",
	}
	for _, name := range writes {
		assert.True(t, IsWriteTool(name), name)
	}

	reads := []string{
		"customers.search",
		"quotes.list",
		"reports.revenue",
		"payments.preview_charge",
	}
	for _, name := range reads {
		assert.False(t, IsWriteTool(name), name)
	}
}

func TestIsPaymentTool(t *testing.T) {
	assert.True(t, IsPaymentTool("payments.create_charge"))
	assert.True(t, IsPaymentTool("payments.charge"))
	assert.False(t, IsPaymentTool("payments.preview_charge"))
	assert.False(t, IsPaymentTool("quotes.create"))
}
