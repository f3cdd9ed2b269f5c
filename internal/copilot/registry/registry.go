// Package registry holds the tool catalog and runs every tool execution
// through the same permission, validation and audit sequence. Tools register
// once at startup; lookups and metadata listings are read-only afterwards.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	logx "github.com/fieldops-copilot/server/pkg/logger"

	"github.com/fieldops-copilot/server/internal/copilot/audit"
	"github.com/fieldops-copilot/server/internal/copilot/model"
)

// Registry maps tool names to implementations.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]model.Tool
	checker *PermissionChecker
	sink    audit.Sink
}

// New builds an empty registry. checker and sink must be non-nil.
func New(checker *PermissionChecker, sink audit.Sink) *Registry {
	return &Registry{
		tools:   make(map[string]model.Tool),
		checker: checker,
		sink:    sink,
	}
}

// Register adds a tool under its metadata name. Re-registering the same name
// replaces the previous implementation.
func (r *Registry) Register(tool model.Tool) {
	name := tool.Metadata().Name

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		logx.Warn().Str("tool", name).Msg("tool re-registered, replacing previous implementation")
	}
	r.tools[name] = tool
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (model.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// AllMetadata returns every registered tool's metadata sorted by name.
func (r *Registry) AllMetadata() []model.ToolMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.ToolMetadata, 0, len(r.tools))
	for _, tool := range r.tools {
		out = append(out, tool.Metadata())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Available returns the metadata of tools the caller's tier may execute.
func (r *Registry) Available(ctx context.Context, userID string) ([]model.ToolMetadata, error) {
	tier, err := r.checker.TierFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	all := r.AllMetadata()
	out := make([]model.ToolMetadata, 0, len(all))
	for _, meta := range all {
		allowed := true
		for _, perm := range meta.RequiredPermissions {
			if !TierHas(tier, perm) {
				allowed = false
				break
			}
		}
		if allowed {
			out = append(out, meta)
		}
	}
	return out, nil
}

// RequiresConfirmation reports whether executing the named tool needs explicit
// user confirmation. Unknown tool names report true: when in doubt, confirm.
func (r *Registry) RequiresConfirmation(name string) bool {
	tool, ok := r.Get(name)
	if !ok {
		return true
	}
	return tool.Metadata().ActionType.RequiresConfirmation()
}

// RequiresPaymentPreview reports whether the named tool demands a payment
// preview reference before it may run.
func (r *Registry) RequiresPaymentPreview(name string) bool {
	tool, ok := r.Get(name)
	if !ok {
		return false
	}
	return tool.Metadata().RequiresPaymentPreview
}

// Execute runs a tool through the full sequence: lookup, permission check,
// parameter validation, execution, audit. Business failures come back as an
// unsuccessful ToolResult; the error return is reserved for infrastructure
// faults such as an unreachable subscription store.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any, tctx model.ToolContext) (*model.ToolResult, error) {
	tool, ok := r.Get(name)
	if !ok {
		r.sink.Log(ctx, model.AuditEntry{
			UserID:         tctx.UserID,
			ConversationID: tctx.ConversationID,
			Category:       model.AuditSecurityBlock,
			Tool:           name,
			Action:         "tool_not_found",
			Success:        false,
			Input:          params,
		})
		return &model.ToolResult{
			Success:   false,
			Error:     fmt.Sprintf("Tool not found: %s", name),
			ErrorCode: "tool_not_found",
		}, nil
	}

	allowed, err := tool.CheckPermission(ctx, tctx)
	if err != nil {
		return nil, err
	}
	if !allowed {
		r.sink.Log(ctx, model.AuditEntry{
			UserID:         tctx.UserID,
			ConversationID: tctx.ConversationID,
			Category:       model.AuditSecurityBlock,
			Tool:           name,
			Action:         "permission_denied",
			Success:        false,
			Input:          params,
		})
		return &model.ToolResult{
			Success:   false,
			Error:     fmt.Sprintf("Permission denied for tool %s. Upgrade your subscription to unlock it.", name),
			ErrorCode: "permission_denied",
		}, nil
	}

	// Validation failures are conversational, not security events: the model
	// or the user simply has not supplied everything yet. No audit entry.
	if err := tool.Validate(params); err != nil {
		return &model.ToolResult{
			Success:   false,
			Error:     err.Error(),
			ErrorCode: "validation_failed",
		}, nil
	}

	result, err := tool.Execute(ctx, params, tctx)
	if err != nil {
		r.sink.Log(ctx, model.AuditEntry{
			UserID:         tctx.UserID,
			ConversationID: tctx.ConversationID,
			Category:       model.AuditActionFailed,
			Tool:           name,
			Action:         "execute_error",
			Success:        false,
			Input:          params,
			Output:         map[string]any{"error": err.Error()},
		})
		return &model.ToolResult{
			Success:   false,
			Error:     err.Error(),
			ErrorCode: "execute_error",
		}, nil
	}

	if !result.Success {
		r.sink.Log(ctx, model.AuditEntry{
			UserID:         tctx.UserID,
			ConversationID: tctx.ConversationID,
			Category:       model.AuditActionFailed,
			Tool:           name,
			Action:         "execute_error",
			Success:        false,
			Input:          params,
			Output:         map[string]any{"error": result.Error, "error_code": result.ErrorCode},
		})
		return result, nil
	}

	r.sink.Log(ctx, model.AuditEntry{
		UserID:         tctx.UserID,
		ConversationID: tctx.ConversationID,
		Category:       model.AuditActionSuccess,
		Tool:           name,
		Action:         "execute",
		Success:        true,
		Input:          params,
		Output:         outputSnapshot(result.Data),
	})
	return result, nil
}

// outputSnapshot shapes arbitrary result data into an audit payload.
func outputSnapshot(data any) map[string]any {
	if data == nil {
		return nil
	}
	if m, ok := data.(map[string]any); ok {
		return m
	}
	return map[string]any{"data": data}
}
