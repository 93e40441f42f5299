package clickhouse_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vladymirovich/MemeBot/internal/domain"
	"github.com/Vladymirovich/MemeBot/internal/storage"
	chstore "github.com/Vladymirovich/MemeBot/internal/storage/clickhouse"
)

func TestVerdictStore_InsertBulkAndQuery(t *testing.T) {
	store := chstore.NewVerdictStore(newTestConn(t))
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	err := store.InsertBulk(ctx, []*domain.Verdict{
		{
			RunID: "run-1", CoinID: 2, MintAddress: "mintB",
			Stage: domain.StageThreshold, Reason: "market cap below minimum",
			EvaluatedAt: base,
		},
		{
			RunID: "run-1", CoinID: 1, MintAddress: "mintA",
			Stage: domain.StageClassified, Accepted: true,
			Flags:         domain.Classification{Pump: true},
			BundledSupply: true,
			EvaluatedAt:   base,
		},
		{
			RunID: "run-2", CoinID: 1, MintAddress: "mintA",
			Stage: domain.StageRiskReport, Reason: "risk report unavailable",
			EvaluatedAt: base.Add(time.Minute),
		},
	})
	require.NoError(t, err)

	run1, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, run1, 2)
	assert.Equal(t, int64(1), run1[0].CoinID)
	assert.True(t, run1[0].Accepted)
	assert.True(t, run1[0].Flags.Pump)
	assert.True(t, run1[0].BundledSupply)
	assert.Equal(t, domain.StageThreshold, run1[1].Stage)
	assert.False(t, run1[1].Accepted)

	history, err := store.GetByMint(ctx, "mintA")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "run-1", history[0].RunID)
	assert.Equal(t, "run-2", history[1].RunID)
	assert.True(t, history[1].EvaluatedAt.Equal(base.Add(time.Minute)))
}

func TestVerdictStore_InsertBulkEmpty(t *testing.T) {
	store := chstore.NewVerdictStore(newTestConn(t))
	require.NoError(t, store.InsertBulk(context.Background(), nil))
}

func TestVerdictStore_InsertBulkInvalid(t *testing.T) {
	store := chstore.NewVerdictStore(nil)
	err := store.InsertBulk(context.Background(), []*domain.Verdict{{RunID: "run-1"}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
