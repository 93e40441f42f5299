package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Vladymirovich/MemeBot/internal/domain"
	"github.com/Vladymirovich/MemeBot/internal/storage"
)

func TestVerdictStore_InsertAndQuery(t *testing.T) {
	store := NewVerdictStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	verdicts := []*domain.Verdict{
		{RunID: "run-1", CoinID: 2, MintAddress: "mintB", Stage: domain.StageBlacklist, Reason: "blacklisted", EvaluatedAt: base},
		{RunID: "run-1", CoinID: 1, MintAddress: "mintA", Stage: domain.StageClassified, Accepted: true, EvaluatedAt: base},
		{RunID: "run-2", CoinID: 1, MintAddress: "mintA", Stage: domain.StageRiskReport, Reason: "unavailable", EvaluatedAt: base.Add(time.Hour)},
	}
	if err := store.InsertBulk(ctx, verdicts); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	run1, err := store.GetByRunID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(run1) != 2 {
		t.Fatalf("expected 2 verdicts, got %d", len(run1))
	}
	if run1[0].CoinID != 1 || run1[1].CoinID != 2 {
		t.Errorf("expected coin_id order [1 2], got [%d %d]", run1[0].CoinID, run1[1].CoinID)
	}

	history, err := store.GetByMint(ctx, "mintA")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(history) != 2 || history[0].RunID != "run-1" || history[1].RunID != "run-2" {
		t.Errorf("unexpected history: %+v", history)
	}
}

func TestVerdictStore_InvalidInput(t *testing.T) {
	store := NewVerdictStore()
	err := store.InsertBulk(context.Background(), []*domain.Verdict{{MintAddress: "m"}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
