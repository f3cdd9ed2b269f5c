package repo

import (
	"context"
	"sync"
	"time"

	"github.com/fieldops-copilot/server/internal/copilot/model"
)

// MemoryConversationRepository holds transcripts in memory. No TTL semantics;
// tests control lifetime explicitly.
type MemoryConversationRepository struct {
	mu       sync.RWMutex
	messages map[string][]model.Message
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{messages: map[string][]model.Message{}}
}

func (r *MemoryConversationRepository) AddMessage(_ context.Context, conversationID string, message model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[conversationID] = append(r.messages[conversationID], message)
	return nil
}

func (r *MemoryConversationRepository) LoadHistory(_ context.Context, conversationID string) (*model.ConversationHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msgs := make([]model.Message, len(r.messages[conversationID]))
	copy(msgs, r.messages[conversationID])
	return &model.ConversationHistory{ConversationID: conversationID, Messages: msgs}, nil
}

func (r *MemoryConversationRepository) ClearHistory(_ context.Context, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.messages, conversationID)
	return nil
}

func (r *MemoryConversationRepository) GetMessageCount(_ context.Context, conversationID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.messages[conversationID]), nil
}

var _ model.ConversationRepository = (*MemoryConversationRepository)(nil)

// MemoryPlanStore keeps one pending plan per conversation in memory.
type MemoryPlanStore struct {
	mu    sync.RWMutex
	plans map[string]*model.PlanSummary
}

func NewMemoryPlanStore() *MemoryPlanStore {
	return &MemoryPlanStore{plans: map[string]*model.PlanSummary{}}
}

func (s *MemoryPlanStore) SavePlan(_ context.Context, plan *model.PlanSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *plan
	s.plans[plan.ConversationID] = &copied
	return nil
}

func (s *MemoryPlanStore) GetPlan(_ context.Context, conversationID string) (*model.PlanSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	plan, ok := s.plans[conversationID]
	if !ok {
		return nil, nil
	}
	copied := *plan
	return &copied, nil
}

func (s *MemoryPlanStore) ClearPlan(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.plans, conversationID)
	return nil
}

var _ model.PlanStore = (*MemoryPlanStore)(nil)

// MemoryPreviewStore keeps payment previews in memory, dropping the ones
// whose expiry already lapsed on read.
type MemoryPreviewStore struct {
	mu       sync.RWMutex
	previews map[string]*model.PaymentPreview
}

func NewMemoryPreviewStore() *MemoryPreviewStore {
	return &MemoryPreviewStore{previews: map[string]*model.PaymentPreview{}}
}

func (s *MemoryPreviewStore) SavePreview(_ context.Context, preview *model.PaymentPreview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *preview
	s.previews[preview.ID] = &copied
	return nil
}

func (s *MemoryPreviewStore) GetPreview(_ context.Context, previewID string) (*model.PaymentPreview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	preview, ok := s.previews[previewID]
	if !ok {
		return nil, nil
	}
	if preview.Expired(time.Now().UTC()) {
		return nil, nil
	}
	copied := *preview
	return &copied, nil
}

var _ model.PreviewStore = (*MemoryPreviewStore)(nil)
