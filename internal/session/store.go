package session

import "sync"

// Store maps session identifiers to their conversations. Conversations are
// created lazily on first access and live for the lifetime of the process;
// there is no eviction and no cross-session visibility.
type Store struct {
	mu            sync.Mutex
	conversations map[string]Conversation
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		conversations: make(map[string]Conversation),
	}
}

// Get returns a copy of the conversation for sessionID, creating an empty
// one on first use. Callers receive a snapshot, not a live reference.
func (s *Store) Get(sessionID string) Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[sessionID]
	if !ok {
		s.conversations[sessionID] = Conversation{}
		return Conversation{}
	}

	out := make(Conversation, len(conv))
	copy(out, conv)
	return out
}

// Append adds a message to the end of the session's conversation.
func (s *Store) Append(sessionID string, msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[sessionID] = append(s.conversations[sessionID], msg)
}

// Clear replaces the session's conversation with an empty one and returns
// the conversation that was discarded.
func (s *Store) Clear(sessionID string) Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.conversations[sessionID]
	s.conversations[sessionID] = Conversation{}
	return old
}

// Len returns the number of messages currently held for sessionID.
func (s *Store) Len(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations[sessionID])
}
