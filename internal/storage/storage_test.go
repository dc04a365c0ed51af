package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"mevAMM/internal/model"
)

func TestJsonlStorageAppendAndRead(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "events.jsonl")
	s := NewJsonlStorage(path)

	events, err := s.ReadEvents()
	require.NoError(t, err)
	require.Empty(t, events)

	require.NoError(t, s.PutEvents(ctx, nil))
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, s.PutEvents(ctx, []model.PoolEvent{
		{Pool: "0xpair", Variant: model.VariantClassic, Sequence: 1, EventName: model.EventMint, Timestamp: 10,
			Decoded: model.MintEventData{Sender: "0xa", To: "0xb", Amount0: "1", Amount1: "2", Liquidity: "3"}},
	}))
	require.NoError(t, s.PutEvents(ctx, []model.PoolEvent{
		{Pool: "0xpair", Variant: model.VariantClassic, Sequence: 2, EventName: model.EventSync, Timestamp: 10},
	}))

	events, err = s.ReadEvents()
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, uint64(1), events[0].Sequence)
	require.Equal(t, model.EventMint, events[0].EventName)
	decoded, ok := events[0].Decoded.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "3", decoded["liquidity"])
	require.Equal(t, model.EventSync, events[1].EventName)
}

func TestJsonlStorageBadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"pool\":\"x\"}\n\nnot json\n"), 0o644))

	_, err := NewJsonlStorage(path).ReadEvents()
	require.ErrorContains(t, err, "parse line 3")
}

func TestFileSnapshotStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snap", "pairs.json")
	store := NewFileSnapshotStore(path)

	_, ok, err := store.LoadSnapshot(ctx, "0xpair")
	require.NoError(t, err)
	require.False(t, ok)

	first := model.PairSnapshot{
		Pool:       "0xpair",
		Token0:     "0xt0",
		Token1:     "0xt1",
		Reserve0:   "1000",
		Reserve1:   "2000",
		SwapFee:    3,
		LPBalances: map[string]string{"0x00": "1000", "0xlp": "413"},
		Sequence:   7,
	}
	other := model.PairSnapshot{Pool: "0xother", Reserve0: "1", Reserve1: "1"}
	require.NoError(t, store.SaveSnapshot(ctx, first))
	require.NoError(t, store.SaveSnapshot(ctx, other))

	got, ok, err := store.LoadSnapshot(ctx, "0xpair")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, first, got)

	first.Reserve0 = "1100"
	require.NoError(t, store.SaveSnapshot(ctx, first))
	got, _, err = NewFileSnapshotStore(path).LoadSnapshot(ctx, "0xpair")
	require.NoError(t, err)
	require.Equal(t, "1100", got.Reserve0)

	got, ok, err = store.LoadSnapshot(ctx, "0xother")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, other, got)

	require.Error(t, store.SaveSnapshot(ctx, model.PairSnapshot{}))
	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))
}

type recordingSink struct {
	batches int
	err     error
}

func (r *recordingSink) PutEvents(context.Context, []model.PoolEvent) error {
	r.batches++
	return r.err
}

func TestMultiStopsAtFirstFailure(t *testing.T) {
	boom := errors.New("boom")
	first := &recordingSink{}
	failing := &recordingSink{err: boom}
	last := &recordingSink{}

	err := Multi{first, failing, last}.PutEvents(context.Background(), []model.PoolEvent{{Pool: "p"}})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, first.batches)
	require.Equal(t, 1, failing.batches)
	require.Equal(t, 0, last.batches)
}
