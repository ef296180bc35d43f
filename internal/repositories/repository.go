package repositories

import (
	"context"
	"errors"

	"kiosk-lottery/internal/models"
)

// ErrRecordNotFound is returned by FindByID when no record has the id.
var ErrRecordNotFound = errors.New("draw record not found")

// DrawRecordRepository defines the persistence operations for draw history.
type DrawRecordRepository interface {
	// AppendRecord inserts a completed round. Records are never updated.
	AppendRecord(ctx context.Context, record *models.DrawRecord) error
	// NextRoundNumber returns max(roundNumber)+1 for the pool, or 1 if it has no records.
	NextRoundNumber(ctx context.Context, poolID models.PoolID) (int, error)
	FindByID(ctx context.Context, id string) (*models.DrawRecord, error)
	// ListRecords returns every record in no particular order.
	ListRecords(ctx context.Context) ([]models.DrawRecord, error)
	// ListRecordsByPool returns the pool's records sorted by round number ascending.
	ListRecordsByPool(ctx context.Context, poolID models.PoolID) ([]models.DrawRecord, error)
	// ClearAll deletes the whole history. Pool configuration is not touched.
	ClearAll(ctx context.Context) error
	Close() error
}
