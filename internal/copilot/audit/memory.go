package audit

import (
	"context"
	"sync"
	"time"

	logx "github.com/fieldops-copilot/server/pkg/logger"

	"github.com/fieldops-copilot/server/internal/copilot/model"
)

// MemorySink keeps entries in memory. Used in tests and as the fallback when
// no database is configured.
type MemorySink struct {
	mu      sync.RWMutex
	entries []model.AuditEntry

	// FailWith simulates a persistence failure; Log swallows it.
	FailWith error
}

// NewMemorySink returns an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Log implements Sink.
func (s *MemorySink) Log(_ context.Context, entry model.AuditEntry) {
	prepare(&entry)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		logx.Error().Err(s.FailWith).Str("category", string(entry.Category)).Msg("audit sink write failed")
		return
	}
	s.entries = append(s.entries, entry)
}

// LogsForUser implements Sink.
func (s *MemorySink) LogsForUser(_ context.Context, userID string, q model.AuditQuery) (*model.AuditPage, error) {
	q = normalizeQuery(q)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []model.AuditEntry
	for _, entry := range s.entries {
		if entry.UserID != userID {
			continue
		}
		if q.Category != "" && entry.Category != q.Category {
			continue
		}
		if !q.From.IsZero() && entry.CreatedAt.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && entry.CreatedAt.After(q.To) {
			continue
		}
		matched = append(matched, entry)
	}

	page := &model.AuditPage{Total: len(matched), Entries: []model.AuditEntry{}}
	for i := q.Offset; i < len(matched) && len(page.Entries) < q.Limit; i++ {
		page.Entries = append(page.Entries, matched[i])
	}
	return page, nil
}

// CountFailed implements Sink.
func (s *MemorySink) CountFailed(_ context.Context, userID string, window time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-window)

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, entry := range s.entries {
		if entry.UserID == userID && !entry.Success && entry.CreatedAt.After(cutoff) {
			count++
		}
	}
	return count, nil
}

// Entries returns a copy of everything logged so far. Test helper.
func (s *MemorySink) Entries() []model.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.AuditEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// ByCategory returns logged entries matching the category. Test helper.
func (s *MemorySink) ByCategory(category model.AuditCategory) []model.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.AuditEntry
	for _, entry := range s.entries {
		if entry.Category == category {
			out = append(out, entry)
		}
	}
	return out
}
