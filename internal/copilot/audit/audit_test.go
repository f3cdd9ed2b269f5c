package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops-copilot/server/internal/copilot/model"
)

func TestSanitizeKnownKeys(t *testing.T) {
	payload := map[string]any{
		"name":        "João Silva",
		"password":    "hunter2",
		"api_key":     "sk-123",
		"Card-Number": "4111111111111111",
		"cvv":         "123",
		"amount":      150.0,
	}

	clean := Sanitize(payload)

	assert.Equal(t, "João Silva", clean["name"])
	assert.Equal(t, 150.0, clean["amount"])
	assert.Equal(t, RedactionMarker, clean["password"])
	assert.Equal(t, RedactionMarker, clean["api_key"])
	assert.Equal(t, RedactionMarker, clean["Card-Number"])
	assert.Equal(t, RedactionMarker, clean["cvv"])

	// original untouched
	assert.Equal(t, "hunter2", payload["password"])
}

func TestSanitizeCardShapedValues(t *testing.T) {
	payload := map[string]any{
		"note":  "4111 1111 1111 1111",
		"phone": "+55 11 98888-0001",
	}

	clean := Sanitize(payload)

	assert.Equal(t, RedactionMarker, clean["note"])
	// phone numbers stay: fewer than 13 digits
	assert.Equal(t, "+55 11 98888-0001", clean["phone"])
}

func TestSanitizeNested(t *testing.T) {
	payload := map[string]any{
		"customer": map[string]any{
			"name":  "Maria",
			"token": "abc",
		},
		"items": []any{
			map[string]any{"secret": "x", "label": "ok"},
			"5500 0000 0000 0004",
			"plain",
		},
	}

	clean := Sanitize(payload)

	customer := clean["customer"].(map[string]any)
	assert.Equal(t, "Maria", customer["name"])
	assert.Equal(t, RedactionMarker, customer["token"])

	items := clean["items"].([]any)
	first := items[0].(map[string]any)
	assert.Equal(t, RedactionMarker, first["secret"])
	assert.Equal(t, "ok", first["label"])
	assert.Equal(t, RedactionMarker, items[1])
	assert.Equal(t, "plain", items[2])
}

func TestSanitizeNil(t *testing.T) {
	assert.Nil(t, Sanitize(nil))
}

func TestMemorySinkFillsGeneratedFields(t *testing.T) {
	sink := NewMemorySink()

	sink.Log(context.Background(), model.AuditEntry{
		UserID:   "u1",
		Category: model.AuditActionSuccess,
		Action:   "execute",
		Success:  true,
		Input:    map[string]any{"password": "x", "name": "ok"},
	})

	entries := sink.Entries()
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].CreatedAt.IsZero())
	assert.Equal(t, RedactionMarker, entries[0].Input["password"])
	assert.Equal(t, "ok", entries[0].Input["name"])
}

func TestMemorySinkSwallowsFailures(t *testing.T) {
	sink := NewMemorySink()
	sink.FailWith = errors.New("disk full")

	// must not panic or surface the error
	sink.Log(context.Background(), model.AuditEntry{
		UserID:   "u1",
		Category: model.AuditToolCall,
		Action:   "execute",
	})

	assert.Empty(t, sink.Entries())
}

func TestLogsForUserFiltersAndPages(t *testing.T) {
	sink := NewMemorySink()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		sink.Log(ctx, model.AuditEntry{UserID: "u1", Category: model.AuditActionSuccess, Action: "execute", Success: true})
	}
	sink.Log(ctx, model.AuditEntry{UserID: "u1", Category: model.AuditSecurityBlock, Action: "permission_denied"})
	sink.Log(ctx, model.AuditEntry{UserID: "u2", Category: model.AuditActionSuccess, Action: "execute", Success: true})

	page, err := sink.LogsForUser(ctx, "u1", model.AuditQuery{})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Len(t, page.Entries, 4)

	blocked, err := sink.LogsForUser(ctx, "u1", model.AuditQuery{Category: model.AuditSecurityBlock})
	require.NoError(t, err)
	assert.Equal(t, 1, blocked.Total)

	paged, err := sink.LogsForUser(ctx, "u1", model.AuditQuery{Limit: 2, Offset: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, paged.Total)
	assert.Len(t, paged.Entries, 1)
}

func TestCountFailedWindow(t *testing.T) {
	sink := NewMemorySink()
	ctx := context.Background()

	sink.Log(ctx, model.AuditEntry{UserID: "u1", Category: model.AuditActionFailed, Action: "execute", Success: false})
	sink.Log(ctx, model.AuditEntry{UserID: "u1", Category: model.AuditActionSuccess, Action: "execute", Success: true})
	// an old failure outside the window
	sink.Log(ctx, model.AuditEntry{
		UserID:    "u1",
		Category:  model.AuditActionFailed,
		Action:    "execute",
		Success:   false,
		CreatedAt: time.Now().UTC().Add(-1 * time.Hour),
	})

	count, err := sink.CountFailed(ctx, "u1", 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
