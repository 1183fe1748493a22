package advisor

import (
	"sync"

	"github.com/chitedze/agroadvisor/internal/model"
)

// DefaultHistoryCapacity keeps the last 5 user/assistant exchanges.
const DefaultHistoryCapacity = 10

type conversation struct {
	mu    sync.Mutex
	turns []model.ConversationTurn
	cap   int
}

func (c *conversation) append(turn model.ConversationTurn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, turn)
	if len(c.turns) > c.cap {
		c.turns = c.turns[len(c.turns)-c.cap:]
	}
}

func (c *conversation) history() []model.ConversationTurn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.ConversationTurn, len(c.turns))
	copy(out, c.turns)
	return out
}

// ConversationStore holds per-conversation bounded histories. Histories are
// created lazily on first append and live for the process lifetime.
// Mutation is serialized per conversation id so concurrent requests for the
// same conversation cannot reorder turns; different conversations never
// block each other.
type ConversationStore struct {
	mu       sync.RWMutex
	convs    map[string]*conversation
	capacity int
}

func NewConversationStore(capacity int) *ConversationStore {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &ConversationStore{
		convs:    make(map[string]*conversation),
		capacity: capacity,
	}
}

func (s *ConversationStore) get(id string) *conversation {
	s.mu.RLock()
	conv := s.convs[id]
	s.mu.RUnlock()
	if conv != nil {
		return conv
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv = s.convs[id]; conv == nil {
		conv = &conversation{cap: s.capacity}
		s.convs[id] = conv
	}
	return conv
}

// Append adds a turn to the conversation, evicting the oldest turn when the
// history is full.
func (s *ConversationStore) Append(id string, role string, content string) {
	s.get(id).append(model.ConversationTurn{Role: role, Content: content})
}

// History returns a copy of the conversation's turns, oldest first.
func (s *ConversationStore) History(id string) []model.ConversationTurn {
	s.mu.RLock()
	conv := s.convs[id]
	s.mu.RUnlock()
	if conv == nil {
		return nil
	}
	return conv.history()
}
