package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/stonkgame/market-engine/internal/agent"
	"github.com/stonkgame/market-engine/internal/market"
)

// MemoryStore implements Store with in-memory maps. Used for testing and
// development. Not suitable for production (no persistence).
//
// State is held as marshalled JSON so callers can never share mutable
// structure with the store, and so the memory store exercises exactly the
// same serialization contract as the durable backends.
type MemoryStore struct {
	mu     sync.RWMutex
	market []byte
	agents map[string][]byte
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{agents: make(map[string][]byte)}
}

func (s *MemoryStore) SaveMarket(_ context.Context, m *market.Market) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal market: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.market = data
	return nil
}

func (s *MemoryStore) LoadMarket(_ context.Context) (*market.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.market == nil {
		return nil, ErrNotFound
	}
	var m market.Market
	if err := json.Unmarshal(s.market, &m); err != nil {
		return nil, fmt.Errorf("unmarshal market: %w", err)
	}
	return &m, nil
}

func (s *MemoryStore) SaveAgent(_ context.Context, a *agent.UserAgent) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal agent %s: %w", a.Name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[a.Name] = data
	return nil
}

func (s *MemoryStore) GetAgent(_ context.Context, username string) (*agent.UserAgent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.agents[username]
	if !ok {
		return nil, ErrNotFound
	}
	var a agent.UserAgent
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("unmarshal agent %s: %w", username, err)
	}
	return &a, nil
}

func (s *MemoryStore) ListAgents(_ context.Context) ([]*agent.UserAgent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agents := make([]*agent.UserAgent, 0, len(s.agents))
	for username, data := range s.agents {
		var a agent.UserAgent
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal agent %s: %w", username, err)
		}
		agents = append(agents, &a)
	}
	return agents, nil
}

func (s *MemoryStore) DeleteAgent(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.agents, username)
	return nil
}
