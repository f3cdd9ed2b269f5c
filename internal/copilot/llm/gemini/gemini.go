// Package gemini implements llm.Provider on top of the Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/fieldops-copilot/server/internal/copilot/llm"
	"github.com/fieldops-copilot/server/internal/copilot/model"
	logx "github.com/fieldops-copilot/server/pkg/logger"
)

// Provider calls the Gemini generateContent endpoint.
type Provider struct {
	client    *genai.Client
	modelName string
	apiKey    string
}

// New constructs a Gemini provider. baseURL is optional and overrides the
// default API host.
func New(ctx context.Context, apiKey, modelName, baseURL string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: apiKey must not be empty")
	}
	if modelName == "" {
		return nil, fmt.Errorf("gemini: model must not be empty")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		clientCfg.HTTPOptions.BaseURL = baseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	return &Provider{client: client, modelName: modelName, apiKey: apiKey}, nil
}

// Name implements llm.Provider.
func (p *Provider) Name() string { return "gemini" }

// IsAvailable implements llm.Provider. Configuration-only check.
func (p *Provider) IsAvailable() bool {
	return p != nil && p.client != nil && p.apiKey != ""
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("gemini: empty message list")
	}

	contents, config := p.buildRequest(req)

	resp, err := p.client.Models.GenerateContent(ctx, p.modelName, contents, config)
	if err != nil {
		return nil, llm.Fail(p.Name(), err)
	}
	out, err := convertResponse(resp)
	if err != nil {
		return nil, err
	}
	llm.LogUsage(p.Name(), p.modelName, out.Usage)
	return out, nil
}

// buildRequest folds the provider-agnostic request into Gemini contents and
// generation config. System messages become the system instruction; tool-role
// messages are rendered as function responses on the user side.
func (p *Provider) buildRequest(req llm.Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	var system []string
	var contents []*genai.Content

	for _, m := range req.Messages {
		switch m.Role {
		case model.RoleSystem:
			system = append(system, m.Content)
		case model.RoleUser:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: m.Content}},
			})
		case model.RoleAssistant:
			parts := []*genai.Part{}
			if m.Content != "" {
				parts = append(parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
					args = map[string]any{}
				}
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{Name: tc.Name, Args: args},
				})
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, &genai.Content{Role: "model", Parts: parts})
		case model.RoleTool:
			contents = append(contents, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						Name:     m.Name,
						Response: map[string]any{"result": m.Content},
					},
				}},
			})
		}
	}

	config := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}},
		}
	}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(req.Stop) > 0 {
		config.StopSequences = req.Stop
	}
	if decls := buildFunctionDeclarations(req.Tools); len(decls) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	return contents, config
}

func buildFunctionDeclarations(tools []model.ToolMetadata) []*genai.FunctionDeclaration {
	var decls []*genai.FunctionDeclaration
	for _, t := range tools {
		decl := &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
		}
		if len(t.Parameters) > 0 {
			props := map[string]*genai.Schema{}
			for name, spec := range t.Parameters {
				props[name] = &genai.Schema{
					Type:        schemaType(spec.Type),
					Description: spec.Description,
				}
			}
			decl.Parameters = &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   t.RequiredParams(),
			}
		}
		decls = append(decls, decl)
	}
	return decls
}

func schemaType(t string) genai.Type {
	switch strings.ToLower(t) {
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// convertResponse maps the Gemini response back to the agnostic shape. An
// absent usage block is tolerated; empty candidates are not.
func convertResponse(resp *genai.GenerateContentResponse) (*llm.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, llm.Fail("gemini", fmt.Errorf("empty candidates in response"))
	}
	cand := resp.Candidates[0]

	out := &llm.Response{FinishReason: llm.FinishStop}

	if cand.Content != nil {
		var text strings.Builder
		callSeq := 0
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			if part.Text != "" {
				text.WriteString(part.Text)
			}
			if part.FunctionCall != nil {
				args, err := json.Marshal(part.FunctionCall.Args)
				if err != nil {
					args = []byte("{}")
				}
				callSeq++
				id := part.FunctionCall.ID
				if id == "" {
					id = fmt.Sprintf("call_%d", callSeq)
				}
				out.ToolCalls = append(out.ToolCalls, model.ToolCall{
					ID:        id,
					Name:      part.FunctionCall.Name,
					Arguments: string(args),
				})
			}
		}
		out.Content = text.String()
	}

	if resp.UsageMetadata != nil {
		out.Usage = llm.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	switch cand.FinishReason {
	case genai.FinishReasonMaxTokens:
		out.FinishReason = llm.FinishLength
	case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent:
		out.FinishReason = llm.FinishContentFilter
	default:
		out.FinishReason = llm.FinishStop
	}
	if len(out.ToolCalls) > 0 {
		out.FinishReason = llm.FinishToolCalls
	}

	return out, nil
}
