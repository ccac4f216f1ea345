package repository

import (
	"context"
	"sync"

	"dh-form/domain"
)

// HistoryMemory is an in-memory implementation of HistoryRepository.
type HistoryMemory struct {
	mu   sync.Mutex
	data []domain.CalculationRecord
}

// NewHistoryMemory creates a new in-memory history repository.
func NewHistoryMemory() *HistoryMemory {
	return &HistoryMemory{
		data: []domain.CalculationRecord{},
	}
}

// Save stores the calculation in memory.
func (r *HistoryMemory) Save(_ context.Context, record domain.CalculationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data = append(r.data, record)
	return nil
}

func (r *HistoryMemory) Get(_ context.Context, id string) (domain.CalculationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.data {
		if rec.ID == id {
			return rec, nil
		}
	}
	return domain.CalculationRecord{}, ErrNotFound
}

func (r *HistoryMemory) Recent(_ context.Context, limit int) ([]domain.CalculationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []domain.CalculationRecord{}
	for i := len(r.data) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, r.data[i])
	}
	return out, nil
}
