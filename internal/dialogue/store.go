package dialogue

import "sync"

// Store keeps the transient states (StopConfirm, WeekQuery) in memory.
// Setup and Active are persisted as the chat status; Removed is the absence of a chat.
// A restart drops pending confirmations and queries, leaving the chat Active.
type Store struct {
	mu     sync.RWMutex
	states map[int64]State
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{states: make(map[int64]State)}
}

// Resolve returns the chat's effective state given its persisted base state.
// Transient states only apply on top of Active.
func (s *Store) Resolve(chatID int64, base State) State {
	if _, active := base.(Active); !active {
		s.Clear(chatID)
		return base
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.states[chatID]; ok {
		return st
	}
	return base
}

// Set records the chat's next state, keeping only transient ones.
func (s *Store) Set(chatID int64, st State) {
	switch st.(type) {
	case StopConfirm, WeekQuery:
		s.mu.Lock()
		s.states[chatID] = st
		s.mu.Unlock()
	default:
		s.Clear(chatID)
	}
}

// Clear forgets any transient state of the chat.
func (s *Store) Clear(chatID int64) {
	s.mu.Lock()
	delete(s.states, chatID)
	s.mu.Unlock()
}

// Len returns the number of chats in a transient state.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}
