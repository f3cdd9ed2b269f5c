// Package audit records security-relevant events: permission denials, rate
// limit trips, plan lifecycle transitions and tool execution outcomes.
// Logging is fire-and-forget: sink failures are swallowed and logged locally,
// never surfaced to the calling operation.
package audit

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops-copilot/server/internal/copilot/model"
)

// RedactionMarker replaces every sensitive value before persistence.
const RedactionMarker = "[REDACTED]"

// DefaultPageSize bounds history queries with no explicit limit.
const DefaultPageSize = 50

// Sink persists audit entries and answers history queries.
type Sink interface {
	// Log records an entry. It never returns an error; persistence failures
	// are swallowed so auditing cannot break the user-facing flow.
	Log(ctx context.Context, entry model.AuditEntry)

	// LogsForUser returns one page of a user's audit history.
	LogsForUser(ctx context.Context, userID string, q model.AuditQuery) (*model.AuditPage, error)

	// CountFailed counts failed operations for the user inside the window,
	// feeding the rate-limit heuristic.
	CountFailed(ctx context.Context, userID string, window time.Duration) (int, error)
}

// sensitiveKeys are matched case-insensitively after stripping '_' and '-'.
var sensitiveKeys = map[string]bool{
	"password":      true,
	"passwd":        true,
	"apikey":        true,
	"apisecret":     true,
	"token":         true,
	"accesstoken":   true,
	"refreshtoken":  true,
	"secret":        true,
	"authorization": true,
	"creditcard":    true,
	"cardnumber":    true,
	"card":          true,
	"cvv":           true,
	"cvc":           true,
	"ssn":           true,
}

// cardShaped matches 13-19 digit sequences optionally separated by spaces or
// dashes, the shape of a primary account number.
var cardShaped = regexp.MustCompile(`^[\d][\d \-]{11,22}[\d]$`)

func sensitiveKey(key string) bool {
	normalized := strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(key))
	return sensitiveKeys[normalized]
}

func sensitiveValue(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	digits := strings.Count(s, "0") + strings.Count(s, "1") + strings.Count(s, "2") +
		strings.Count(s, "3") + strings.Count(s, "4") + strings.Count(s, "5") +
		strings.Count(s, "6") + strings.Count(s, "7") + strings.Count(s, "8") +
		strings.Count(s, "9")
	return digits >= 13 && cardShaped.MatchString(strings.TrimSpace(s))
}

// Sanitize returns a deep copy of payload with well-known sensitive fields
// replaced by RedactionMarker. Non-sensitive siblings are preserved verbatim.
func Sanitize(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		if sensitiveKey(key) || sensitiveValue(value) {
			out[key] = RedactionMarker
			continue
		}
		out[key] = sanitizeValue(value)
	}
	return out
}

func sanitizeValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return Sanitize(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			if sensitiveValue(item) {
				out[i] = RedactionMarker
				continue
			}
			out[i] = sanitizeValue(item)
		}
		return out
	default:
		return value
	}
}

// prepare fills generated fields and sanitizes payload snapshots in place.
func prepare(entry *model.AuditEntry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.Input = Sanitize(entry.Input)
	entry.Output = Sanitize(entry.Output)
}

// normalizeQuery applies the fixed default page size and clamps offsets.
func normalizeQuery(q model.AuditQuery) model.AuditQuery {
	if q.Limit <= 0 || q.Limit > DefaultPageSize {
		q.Limit = DefaultPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}
