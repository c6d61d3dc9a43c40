package notify

import (
	"context"
	"sync"
)

// DummySender records messages without sending anything. Test use only.
type DummySender struct {
	mu       sync.Mutex
	Messages []*Message
	Err      error
}

var _ EmailSender = (*DummySender)(nil)

func (s *DummySender) Send(_ context.Context, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Messages = append(s.Messages, msg)
	return nil
}

func (s *DummySender) Sent() []*Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Message, len(s.Messages))
	copy(out, s.Messages)
	return out
}
