// Package parser classifies raw LLM text output into the four discriminated
// response shapes. JSON is extracted from fenced code blocks or from the
// first balanced object found in the text; anything without a recognized
// discriminator falls back to a plain informative response.
package parser

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	errx "github.com/fieldops-copilot/server/internal/core/error"
	logx "github.com/fieldops-copilot/server/pkg/logger"

	"github.com/fieldops-copilot/server/internal/copilot/model"
)

// maxContentLen guards against pathological inputs.
const maxContentLen = 128 * 1024 // 128KB

// Result is the outcome of classifying one raw completion.
type Result struct {
	OK       bool
	Response *model.AssistantResponse
	Err      error
}

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// Parse classifies raw text. Empty input is a hard failure; malformed or
// unrecognized content degrades to a RESPONSE carrying the raw text.
func Parse(raw string) (res Result) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "response_parser").Msgf("panic recovered: %v", r)
			res = Result{Err: errx.NewCoded(fmt.Errorf("response parser panic"), http.StatusInternalServerError, errx.CodeParseFailed, "failed to parse model output")}
		}
	}()

	if strings.TrimSpace(raw) == "" {
		return Result{Err: errx.NewCoded(fmt.Errorf("empty model output"), http.StatusBadGateway, errx.CodeParseFailed, "model returned empty output")}
	}
	if len(raw) > maxContentLen {
		logx.Warn().
			Str("component", "response_parser").
			Int("orig_len", len(raw)).
			Int("max_len", maxContentLen).
			Msg("content truncated due to size limit")
		raw = raw[:maxContentLen]
	}

	candidate := extractJSON(raw)
	if candidate == "" {
		return plainText(raw)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return plainText(raw)
	}

	discriminator, _ := obj["type"].(string)
	switch model.ResponseType(discriminator) {
	case model.ResponsePlan:
		return parsePlan(obj)
	case model.ResponseCallTool:
		return parseCallTool(obj)
	case model.ResponseAskUser:
		return parseAskUser(obj)
	case model.ResponseMessage:
		return parseMessage(obj)
	default:
		// Unrecognized discriminator is not an error: treat as plain text.
		return plainText(raw)
	}
}

func plainText(raw string) Result {
	return Result{
		OK: true,
		Response: model.NewMessageResponse(model.MessageResponse{
			Message: raw,
		}),
	}
}

func missingField(shape model.ResponseType, field string) Result {
	return Result{Err: errx.NewCoded(
		fmt.Errorf("%s response missing %q", shape, field),
		http.StatusBadGateway,
		errx.CodeMissingField,
		fmt.Sprintf("model output of type %s is missing required field %q", shape, field),
	)}
}

func parsePlan(obj map[string]any) Result {
	action, _ := obj["action"].(string)
	if action == "" {
		return missingField(model.ResponsePlan, "action")
	}

	plan := model.PlanResponse{
		Action:               action,
		CollectedFields:      map[string]any{},
		MissingFields:        []string{},
		RequiresConfirmation: true,
	}
	if fields, ok := obj["collectedFields"].(map[string]any); ok {
		plan.CollectedFields = fields
	}
	if missing, ok := obj["missingFields"].([]any); ok {
		plan.MissingFields = toStrings(missing)
	}
	if suggested, ok := obj["suggestedActions"].([]any); ok {
		plan.SuggestedActions = toStrings(suggested)
	}
	if rc, ok := obj["requiresConfirmation"].(bool); ok {
		plan.RequiresConfirmation = rc
	}
	return Result{OK: true, Response: model.NewPlanResponse(plan)}
}

func parseCallTool(obj map[string]any) Result {
	tool, _ := obj["tool"].(string)
	if tool == "" {
		return missingField(model.ResponseCallTool, "tool")
	}

	call := model.CallToolResponse{Tool: tool, Params: map[string]any{}}
	if params, ok := obj["params"].(map[string]any); ok {
		call.Params = params
	}
	return Result{OK: true, Response: model.NewCallToolResponse(call)}
}

func parseAskUser(obj map[string]any) Result {
	question, _ := obj["question"].(string)
	if question == "" {
		return missingField(model.ResponseAskUser, "question")
	}

	ask := model.AskUserResponse{Question: question}
	if ctx, ok := obj["context"].(string); ok {
		ask.Context = ctx
	}
	if options, ok := obj["options"].([]any); ok {
		ask.Options = toStrings(options)
	}
	return Result{OK: true, Response: model.NewAskUserResponse(ask)}
}

func parseMessage(obj map[string]any) Result {
	message, _ := obj["message"].(string)
	if message == "" {
		return missingField(model.ResponseMessage, "message")
	}

	msg := model.MessageResponse{Message: message}
	if data, ok := obj["data"].(map[string]any); ok {
		msg.Data = data
	}
	return Result{OK: true, Response: model.NewMessageResponse(msg)}
}

func toStrings(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// extractJSON finds the best JSON candidate: a fenced code block first, then
// the first balanced top-level object anywhere in the text.
func extractJSON(raw string) string {
	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return firstBalancedObject(raw)
}

// firstBalancedObject scans for the first '{' and returns the substring up to
// its matching '}', respecting JSON string literals and escapes.
func firstBalancedObject(raw string) string {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}

// writePattern matches the verbs a mutating tool name carries at the start
// of its operation segment. "preview_charge" stays a read: the verb must
// open the segment, not appear after an underscore.
var writePattern = regexp.MustCompile(`(?i)(^|\.)(create|update|delete|remove|cancel|add|set|assign|complete|send|charge|register)([_a-z0-9]*)?$`)

// IsWriteTool reports whether the tool name implies a create/update/delete
// style mutation. Pure function over the name string.
func IsWriteTool(name string) bool {
	return writePattern.MatchString(name)
}

// paymentPattern matches the charge-creating tool specifically; preview
// generation is deliberately excluded.
var paymentPattern = regexp.MustCompile(`^payments\.(create_charge|charge)$`)

// IsPaymentTool reports whether the tool name is the payment-creation tool.
// Pure function over the name string.
func IsPaymentTool(name string) bool {
	return paymentPattern.MatchString(name)
}
