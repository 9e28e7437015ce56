// Package store defines the persistence interface for the market engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
//
// JSON is the serialization contract: the whole Market and each agent
// round-trip through encoding/json, and reloading yields state
// observationally equal to what was saved.
package store

import (
	"context"
	"errors"

	"github.com/stonkgame/market-engine/internal/agent"
	"github.com/stonkgame/market-engine/internal/market"
)

// ErrNotFound is returned when the requested agent or snapshot does not
// exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface.
type Store interface {
	// SaveMarket snapshots the full market state.
	SaveMarket(ctx context.Context, m *market.Market) error

	// LoadMarket returns the most recent market snapshot, or ErrNotFound
	// if none has been saved yet.
	LoadMarket(ctx context.Context) (*market.Market, error)

	// SaveAgent upserts one agent's state keyed by username.
	SaveAgent(ctx context.Context, a *agent.UserAgent) error

	// GetAgent retrieves one agent by username.
	GetAgent(ctx context.Context, username string) (*agent.UserAgent, error)

	// ListAgents returns every persisted agent.
	ListAgents(ctx context.Context) ([]*agent.UserAgent, error)

	// DeleteAgent removes one agent by username.
	DeleteAgent(ctx context.Context, username string) error
}
