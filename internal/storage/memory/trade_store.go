package memory

import (
	"context"
	"sync"

	"signal-backtest-lab/internal/domain"
	"signal-backtest-lab/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string][]domain.Trade // keyed by run_id, in execution order
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string][]domain.Trade),
	}
}

// InsertBulk adds the trade log of a run. Fails if the run already has trades.
func (s *TradeStore) InsertBulk(_ context.Context, runID string, trades []domain.Trade) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[runID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[runID] = append([]domain.Trade(nil), trades...)
	return nil
}

// GetByRunID retrieves the trade log of a run in execution order.
func (s *TradeStore) GetByRunID(_ context.Context, runID string) ([]domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.Trade(nil), s.data[runID]...), nil
}

var _ storage.TradeStore = (*TradeStore)(nil)
