package ledger

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore keeps ledger states in process, serialized the same way the
// redis session does.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: map[string][]byte{}}
}

func (s *MemoryStore) Load(_ context.Context, key string) (State, error) {
	s.mu.Lock()
	raw, ok := s.states[key]
	s.mu.Unlock()
	if !ok {
		return State{}, ErrStateNotFound
	}

	state := State{}
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, err
	}
	return state, nil
}

func (s *MemoryStore) Save(_ context.Context, key string, state State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.states[key] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.states, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Raw(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.states[key]
	return raw, ok
}
