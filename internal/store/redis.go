package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stonkgame/market-engine/internal/agent"
	"github.com/stonkgame/market-engine/internal/market"
)

const (
	marketCacheKey   = "market:latest"
	agentCachePrefix = "agent:"
)

// CachedStore wraps another Store with a Redis read-through cache for agent
// lookups and the latest market snapshot. Writes go to the inner store
// first and refresh the cache best-effort: a cache failure never fails the
// write.
type CachedStore struct {
	inner Store
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCachedStore creates a cache layer over inner with the given TTL.
func NewCachedStore(inner Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{inner: inner, rdb: rdb, ttl: ttl}
}

func (s *CachedStore) SaveMarket(ctx context.Context, m *market.Market) error {
	if err := s.inner.SaveMarket(ctx, m); err != nil {
		return err
	}
	if data, err := json.Marshal(m); err == nil {
		s.rdb.Set(ctx, marketCacheKey, data, s.ttl)
	}
	return nil
}

func (s *CachedStore) LoadMarket(ctx context.Context) (*market.Market, error) {
	data, err := s.rdb.Get(ctx, marketCacheKey).Bytes()
	if err == nil {
		var m market.Market
		if err := json.Unmarshal(data, &m); err == nil {
			return &m, nil
		}
		// Corrupt cache entry: fall through to the source of truth.
	}

	m, err := s.inner.LoadMarket(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(m); err == nil {
		s.rdb.Set(ctx, marketCacheKey, data, s.ttl)
	}
	return m, nil
}

func (s *CachedStore) SaveAgent(ctx context.Context, a *agent.UserAgent) error {
	if err := s.inner.SaveAgent(ctx, a); err != nil {
		return err
	}
	if data, err := json.Marshal(a); err == nil {
		s.rdb.Set(ctx, agentCachePrefix+a.Name, data, s.ttl)
	}
	return nil
}

func (s *CachedStore) GetAgent(ctx context.Context, username string) (*agent.UserAgent, error) {
	data, err := s.rdb.Get(ctx, agentCachePrefix+username).Bytes()
	if err == nil {
		var a agent.UserAgent
		if err := json.Unmarshal(data, &a); err == nil {
			return &a, nil
		}
	}

	// Cache miss, Redis unavailable, or corrupt entry: use the source of
	// truth and refresh the cache.
	a, err := s.inner.GetAgent(ctx, username)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(a); err == nil {
		s.rdb.Set(ctx, agentCachePrefix+username, data, s.ttl)
	}
	return a, nil
}

func (s *CachedStore) ListAgents(ctx context.Context) ([]*agent.UserAgent, error) {
	// Listing is a startup-time operation; no point caching it.
	return s.inner.ListAgents(ctx)
}

func (s *CachedStore) DeleteAgent(ctx context.Context, username string) error {
	if err := s.inner.DeleteAgent(ctx, username); err != nil {
		return err
	}
	s.rdb.Del(ctx, agentCachePrefix+username)
	return nil
}
