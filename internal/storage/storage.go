package storage

import (
	"context"

	"mevAMM/internal/model"
)

// Storage defines a sink for pool events.
type Storage interface {
	PutEvents(ctx context.Context, events []model.PoolEvent) error
}

// SnapshotStore persists pair snapshots keyed by pool address.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap model.PairSnapshot) error
	LoadSnapshot(ctx context.Context, pool string) (model.PairSnapshot, bool, error)
}

// Multi fans events out to every sink in order, stopping at the first failure.
type Multi []Storage

func (m Multi) PutEvents(ctx context.Context, events []model.PoolEvent) error {
	for _, s := range m {
		if err := s.PutEvents(ctx, events); err != nil {
			return err
		}
	}
	return nil
}
