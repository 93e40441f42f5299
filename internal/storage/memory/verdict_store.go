package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Vladymirovich/MemeBot/internal/domain"
	"github.com/Vladymirovich/MemeBot/internal/storage"
)

// VerdictStore is an in-memory implementation of storage.VerdictStore.
type VerdictStore struct {
	mu   sync.RWMutex
	data []*domain.Verdict
}

// NewVerdictStore creates a new in-memory verdict store.
func NewVerdictStore() *VerdictStore {
	return &VerdictStore{}
}

// InsertBulk appends verdicts.
func (s *VerdictStore) InsertBulk(_ context.Context, verdicts []*domain.Verdict) error {
	for _, v := range verdicts {
		if v == nil || v.RunID == "" || v.MintAddress == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range verdicts {
		verdictCopy := *v
		s.data = append(s.data, &verdictCopy)
	}
	return nil
}

// GetByRunID retrieves verdicts of one pass ordered by coin_id ASC.
func (s *VerdictStore) GetByRunID(_ context.Context, runID string) ([]*domain.Verdict, error) {
	result := s.filter(func(v *domain.Verdict) bool { return v.RunID == runID })
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CoinID < result[j].CoinID
	})
	return result, nil
}

// GetByMint retrieves every verdict for a mint ordered by evaluated_at ASC.
func (s *VerdictStore) GetByMint(_ context.Context, mint string) ([]*domain.Verdict, error) {
	result := s.filter(func(v *domain.Verdict) bool { return v.MintAddress == mint })
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].EvaluatedAt.Before(result[j].EvaluatedAt)
	})
	return result, nil
}

func (s *VerdictStore) filter(keep func(*domain.Verdict) bool) []*domain.Verdict {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Verdict
	for _, v := range s.data {
		if keep(v) {
			verdictCopy := *v
			result = append(result, &verdictCopy)
		}
	}
	return result
}

var _ storage.VerdictStore = (*VerdictStore)(nil)
