package conversations

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/parley-llm/parley/llm"
)

// MemoryStore keeps conversations in process memory. It is used by
// tests and by callers that do not need durable history. Semantics
// match SQLStore: insertion order is preserved, unknown conversation
// IDs are validation errors.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*llm.Conversation // keyed by scopeID + "/" + conversationID
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*llm.Conversation),
	}
}

func memoryKey(scopeID, conversationID string) string {
	return scopeID + "/" + conversationID
}

// Initialize implements Store.Initialize.
func (s *MemoryStore) Initialize(_ context.Context, scopeID, systemPrompt string, first llm.Exchange) (string, error) {
	conversationID := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[memoryKey(scopeID, conversationID)] = &llm.Conversation{
		ID:           conversationID,
		SystemPrompt: systemPrompt,
		Exchanges:    []llm.Exchange{first},
	}
	return conversationID, nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(_ context.Context, scopeID, conversationID string) (*llm.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[memoryKey(scopeID, conversationID)]
	if !ok {
		return nil, llm.NewValidationError(fmt.Sprintf("conversation %s not found", conversationID))
	}

	// Copy so callers cannot mutate stored state.
	clone := &llm.Conversation{
		ID:           conv.ID,
		SystemPrompt: conv.SystemPrompt,
		Exchanges:    make([]llm.Exchange, len(conv.Exchanges)),
	}
	copy(clone.Exchanges, conv.Exchanges)
	return clone, nil
}

// AddMessage implements Store.AddMessage.
func (s *MemoryStore) AddMessage(_ context.Context, scopeID, conversationID string, exchange llm.Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[memoryKey(scopeID, conversationID)]
	if !ok {
		return llm.NewValidationError(fmt.Sprintf("conversation %s not found", conversationID))
	}
	conv.Exchanges = append(conv.Exchanges, exchange)
	return nil
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
