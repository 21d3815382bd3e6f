package prefs

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PGStore keeps preferences in PostgreSQL, one row per key, scoped by
// profile so several installations can share a database.
type PGStore struct {
	pool    *pgxpool.Pool
	profile string
	log     *zap.Logger
}

// OpenPG connects to dsn, verifies the connection and applies migrations.
func OpenPG(ctx context.Context, dsn, profile string, log *zap.Logger) (*PGStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PGStore{pool: pool, profile: profile, log: log}, nil
}

func (s *PGStore) Read(ctx context.Context) (Values, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, value FROM preferences WHERE profile = $1`, s.profile)
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	defer rows.Close()

	v := Values{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		v[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	return v, nil
}

// Write replaces the profile's rows in one transaction.
func (s *PGStore) Write(ctx context.Context, v Values) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("preferences begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM preferences WHERE profile = $1`, s.profile); err != nil {
		return fmt.Errorf("clear preferences: %w", err)
	}
	for _, key := range v.Keys() {
		if _, err := tx.Exec(ctx,
			`INSERT INTO preferences (profile, key, value) VALUES ($1, $2, $3)`,
			s.profile, key, v[key],
		); err != nil {
			return fmt.Errorf("insert preference %s: %w", key, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("preferences commit: %w", err)
	}
	s.log.Debug("preferences written", zap.String("profile", s.profile), zap.Int("keys", len(v)))
	return nil
}

func (s *PGStore) Close() {
	s.pool.Close()
}
