package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mevAMM/internal/model"
)

// Schema creates the tables used by Store.
const Schema = `
CREATE TABLE IF NOT EXISTS pool_events (
	pool_address TEXT NOT NULL,
	variant      TEXT NOT NULL,
	sequence     BIGINT NOT NULL,
	event_name   TEXT NOT NULL,
	event_ts     BIGINT NOT NULL,
	payload      JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (pool_address, sequence)
);
CREATE TABLE IF NOT EXISTS pair_snapshots (
	pool_address TEXT PRIMARY KEY,
	sequence     BIGINT NOT NULL,
	snapshot     JSONB NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Store provides Postgres persistence for pool events and pair snapshots.
type Store struct {
	pool      *pgxpool.Pool
	batchSize int
}

func NewStore(ctx context.Context, dsn string, batchSize int) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	if batchSize <= 0 {
		batchSize = 1000
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, batchSize: batchSize}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

// PutEvents implements storage.Storage.
func (s *Store) PutEvents(ctx context.Context, events []model.PoolEvent) error {
	for start := 0; start < len(events); start += s.batchSize {
		end := start + s.batchSize
		if end > len(events) {
			end = len(events)
		}
		if err := s.InsertEvents(ctx, events[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// InsertEvents writes events in one batch; replayed sequences are ignored.
func (s *Store) InsertEvents(ctx context.Context, events []model.PoolEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, event := range events {
		payload, err := json.Marshal(event.Decoded)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", event.EventName, err)
		}
		batch.Queue(`
			INSERT INTO pool_events (
				pool_address, variant, sequence, event_name, event_ts, payload
			) VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (pool_address, sequence) DO NOTHING
		`,
			event.Pool,
			event.Variant,
			int64(event.Sequence),
			event.EventName,
			int64(event.Timestamp),
			payload,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// SaveSnapshot upserts the snapshot of a pair.
func (s *Store) SaveSnapshot(ctx context.Context, snap model.PairSnapshot) error {
	if snap.Pool == "" {
		return fmt.Errorf("snapshot pool required")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO pair_snapshots (pool_address, sequence, snapshot, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (pool_address) DO UPDATE
		SET sequence = EXCLUDED.sequence, snapshot = EXCLUDED.snapshot, updated_at = now()
	`, snap.Pool, int64(snap.Sequence), data)
	return err
}

// LoadSnapshot returns the stored snapshot of a pair.
func (s *Store) LoadSnapshot(ctx context.Context, pool string) (model.PairSnapshot, bool, error) {
	if pool == "" {
		return model.PairSnapshot{}, false, fmt.Errorf("snapshot pool required")
	}
	var data []byte
	row := s.pool.QueryRow(ctx, `SELECT snapshot FROM pair_snapshots WHERE pool_address=$1`, pool)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PairSnapshot{}, false, nil
		}
		return model.PairSnapshot{}, false, err
	}
	var snap model.PairSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.PairSnapshot{}, false, fmt.Errorf("parse snapshot: %w", err)
	}
	return snap, true, nil
}
