package memory

import (
	"context"
	"sort"
	"sync"

	"signal-backtest-lab/internal/domain"
	"signal-backtest-lab/internal/storage"
)

// EquityCurveStore is an in-memory implementation of storage.EquityCurveStore.
type EquityCurveStore struct {
	mu   sync.RWMutex
	data map[string][]domain.EquityPoint // keyed by run_id
}

// NewEquityCurveStore creates a new in-memory equity curve store.
func NewEquityCurveStore() *EquityCurveStore {
	return &EquityCurveStore{
		data: make(map[string][]domain.EquityPoint),
	}
}

// InsertBulk adds the equity curve of a run.
// Fails on an existing curve or duplicate timestamps within the batch.
func (s *EquityCurveStore) InsertBulk(_ context.Context, runID string, points []domain.EquityPoint) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[runID]; exists {
		return storage.ErrDuplicateKey
	}

	batchKeys := make(map[int64]struct{}, len(points))
	for _, p := range points {
		if _, exists := batchKeys[p.TimestampMs]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[p.TimestampMs] = struct{}{}
	}

	curve := append([]domain.EquityPoint(nil), points...)
	sort.Slice(curve, func(i, j int) bool {
		return curve[i].TimestampMs < curve[j].TimestampMs
	})
	s.data[runID] = curve
	return nil
}

// GetByRunID retrieves the equity curve of a run, ordered by timestamp ASC.
func (s *EquityCurveStore) GetByRunID(_ context.Context, runID string) ([]domain.EquityPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.EquityPoint(nil), s.data[runID]...), nil
}

var _ storage.EquityCurveStore = (*EquityCurveStore)(nil)
