package repository

import (
	"context"
	"errors"

	"dh-form/domain"
)

var ErrNotFound = errors.New("record not found")

// HistoryRepository keeps successful calculations.
type HistoryRepository interface {
	Save(ctx context.Context, record domain.CalculationRecord) error
	Get(ctx context.Context, id string) (domain.CalculationRecord, error)
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]domain.CalculationRecord, error)
}
