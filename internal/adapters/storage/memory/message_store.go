package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/PabloGalante/medibot/internal/domain"
)

type MessageStore struct {
	mu       sync.RWMutex
	messages map[domain.SessionID][]domain.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		messages: make(map[domain.SessionID][]domain.Message),
	}
}

// SaveMessages stores msgs ordered by Seq, replacing any message that
// already holds the same seq.
func (s *MessageStore) SaveMessages(_ context.Context, msgs ...*domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range msgs {
		list := s.messages[m.SessionID]
		i := sort.Search(len(list), func(i int) bool { return list[i].Seq >= m.Seq })
		switch {
		case i < len(list) && list[i].Seq == m.Seq:
			list[i] = *m
		default:
			list = append(list, domain.Message{})
			copy(list[i+1:], list[i:])
			list[i] = *m
		}
		s.messages[m.SessionID] = list
	}
	return nil
}

// GetMessagesBySession returns the last limit messages in seq order,
// or all of them when limit <= 0.
func (s *MessageStore) GetMessagesBySession(_ context.Context, sessionID domain.SessionID, limit int) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	out := make([]*domain.Message, 0, len(msgs))
	for i := range msgs {
		m := msgs[i]
		out = append(out, &m)
	}
	return out, nil
}

func (s *MessageStore) DeleteMessagesBySession(_ context.Context, sessionID domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.messages, sessionID)
	return nil
}
