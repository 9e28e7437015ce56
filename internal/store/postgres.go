package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stonkgame/market-engine/internal/agent"
	"github.com/stonkgame/market-engine/internal/market"
)

// snapshotKeep is how many market snapshots are retained; older ones are
// pruned on save.
const snapshotKeep = 10

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Market snapshots and agent state are stored as JSONB documents.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS agents (
			username   TEXT PRIMARY KEY,
			state      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS market_snapshots (
			id         UUID PRIMARY KEY,
			state      JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveMarket(ctx context.Context, m *market.Market) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal market: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO market_snapshots (id, state) VALUES ($1, $2)`,
		uuid.New().String(), data,
	)
	if err != nil {
		return fmt.Errorf("save market snapshot: %w", err)
	}

	// Prune old snapshots; failure here is not fatal to the save.
	_, err = s.pool.Exec(ctx, `
		DELETE FROM market_snapshots
		WHERE id NOT IN (
			SELECT id FROM market_snapshots ORDER BY created_at DESC LIMIT $1
		)`, snapshotKeep)
	if err != nil {
		return fmt.Errorf("prune market snapshots: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadMarket(ctx context.Context) (*market.Market, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM market_snapshots ORDER BY created_at DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load market snapshot: %w", err)
	}

	var m market.Market
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal market snapshot: %w", err)
	}
	return &m, nil
}

func (s *PostgresStore) SaveAgent(ctx context.Context, a *agent.UserAgent) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal agent %s: %w", a.Name, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO agents (username, state, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (username) DO UPDATE SET state = $2, updated_at = now()`,
		a.Name, data,
	)
	if err != nil {
		return fmt.Errorf("save agent %s: %w", a.Name, err)
	}
	return nil
}

func (s *PostgresStore) GetAgent(ctx context.Context, username string) (*agent.UserAgent, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM agents WHERE username = $1`, username,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get agent %s: %w", username, err)
	}

	var a agent.UserAgent
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("unmarshal agent %s: %w", username, err)
	}
	return &a, nil
}

func (s *PostgresStore) ListAgents(ctx context.Context) ([]*agent.UserAgent, error) {
	rows, err := s.pool.Query(ctx, `SELECT state FROM agents`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []*agent.UserAgent
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var a agent.UserAgent
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal agent: %w", err)
		}
		agents = append(agents, &a)
	}
	return agents, rows.Err()
}

func (s *PostgresStore) DeleteAgent(ctx context.Context, username string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM agents WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("delete agent %s: %w", username, err)
	}
	return nil
}
