package plan

import (
	"regexp"
	"strconv"
	"strings"
)

// fieldPair matches one "key: value" or "key = value" segment.
var fieldPair = regexp.MustCompile(`^\s*([\p{L}\w ]+?)\s*[:=]\s*(.+?)\s*$`)

// affirmatives and negatives cover the short replies users type when a plan
// awaits confirmation. Matching is whole-message, case-insensitive.
var (
	affirmatives = map[string]bool{
		"sim": true, "s": true, "confirmo": true, "confirmar": true,
		"pode": true, "pode sim": true, "ok": true, "yes": true, "y": true,
		"isso": true, "correto": true,
	}
	negatives = map[string]bool{
		"não": true, "nao": true, "n": true, "no": true,
		"cancela": true, "cancelar": true, "cancele": true, "rejeitar": true,
	}
)

func normalizeReply(text string) string {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	return strings.TrimRight(trimmed, ".!")
}

// IsAffirmative reports whether the message is a bare confirmation.
func IsAffirmative(text string) bool {
	return affirmatives[normalizeReply(text)]
}

// IsNegative reports whether the message is a bare rejection.
func IsNegative(text string) bool {
	return negatives[normalizeReply(text)]
}

// normalizeFieldKey folds a user-typed key onto a declared parameter name:
// lower-cased, spaces collapsed to underscores.
func normalizeFieldKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), " ", "_")
}

// ParseFields extracts field values from a free-form user reply. Segments
// shaped like "key: value" bind to the declared parameter with the matching
// normalized name; when the reply carries no recognizable pair at all, the
// whole utterance becomes the value of the first missing field.
func ParseFields(utterance string, missing []string, declared map[string]bool) map[string]any {
	collected := map[string]any{}

	segments := strings.FieldsFunc(utterance, func(r rune) bool {
		return r == '\n' || r == ';'
	})
	for _, segment := range segments {
		m := fieldPair.FindStringSubmatch(segment)
		if m == nil {
			continue
		}
		key := normalizeFieldKey(m[1])
		if declared[key] {
			collected[key] = m[2]
		}
	}

	if len(collected) == 0 && len(missing) > 0 {
		if value := strings.TrimSpace(utterance); value != "" {
			collected[missing[0]] = value
		}
	}
	return collected
}

// amountPattern grabs the first number in a money-ish string, tolerating a
// currency prefix and Brazilian decimal commas.
var amountPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// ParseAmountCents converts an amount value, numeric or textual, to cents.
// Returns false when no number can be extracted.
func ParseAmountCents(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v * 100, true
	case int:
		return int64(v) * 100, true
	case float64:
		return int64(v*100 + 0.5), true
	case string:
		m := amountPattern.FindString(v)
		if m == "" {
			return 0, false
		}
		m = strings.ReplaceAll(m, ",", ".")
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		return int64(f*100 + 0.5), true
	default:
		return 0, false
	}
}
