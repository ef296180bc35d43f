// Package sqlstore keeps draw history in a SQL database through GORM.
// SQLite is the kiosk default; postgres and mysql are available for shared setups.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kiosk-lottery/internal/models"
	"kiosk-lottery/internal/repositories"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// drawRecordRow is the GORM model for the draw_records table.
type drawRecordRow struct {
	ID          string          `gorm:"column:id;primaryKey;type:varchar(36)"`
	EventDate   string          `gorm:"column:event_date;type:varchar(10);index"`
	PoolID      string          `gorm:"column:pool_id;type:varchar(16);not null;index:idx_pool_round"`
	PoolName    string          `gorm:"column:pool_name;not null"`
	RoundNumber int             `gorm:"column:round_number;not null;index:idx_pool_round"`
	PrizeName   string          `gorm:"column:prize_name"`
	Winners     []models.Winner `gorm:"column:winners;serializer:json"`
	CreatedAt   time.Time       `gorm:"column:created_at;not null;index"`
}

// TableName pins the table name regardless of GORM's naming strategy.
func (drawRecordRow) TableName() string {
	return "draw_records"
}

func toRow(r *models.DrawRecord) *drawRecordRow {
	return &drawRecordRow{
		ID:          r.ID,
		EventDate:   r.EventDate,
		PoolID:      string(r.PoolID),
		PoolName:    r.PoolName,
		RoundNumber: r.RoundNumber,
		PrizeName:   r.PrizeName,
		Winners:     r.Winners,
		CreatedAt:   r.CreatedAt,
	}
}

func (row *drawRecordRow) toModel() models.DrawRecord {
	winners := row.Winners
	if winners == nil {
		winners = []models.Winner{}
	}
	return models.DrawRecord{
		ID:          row.ID,
		EventDate:   row.EventDate,
		PoolID:      models.PoolID(row.PoolID),
		PoolName:    row.PoolName,
		RoundNumber: row.RoundNumber,
		PrizeName:   row.PrizeName,
		Winners:     winners,
		CreatedAt:   row.CreatedAt,
	}
}

// Store implements repositories.DrawRecordRepository on a GORM connection.
type Store struct {
	db *gorm.DB
}

var _ repositories.DrawRecordRepository = (*Store)(nil)

// Open connects with the named driver and migrates the schema.
// driver is one of "sqlite", "postgres" or "mysql".
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}
	return New(db)
}

// New wraps an existing connection. The caller keeps ownership of db's lifecycle
// only if it does not call Close.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&drawRecordRow{}); err != nil {
		return nil, fmt.Errorf("migrate draw_records: %w", err)
	}
	return &Store{db: db}, nil
}

// AppendRecord inserts a completed round.
func (s *Store) AppendRecord(ctx context.Context, record *models.DrawRecord) error {
	return s.db.WithContext(ctx).Create(toRow(record)).Error
}

// NextRoundNumber returns max(round_number)+1 for the pool, 1 when it has none.
func (s *Store) NextRoundNumber(ctx context.Context, poolID models.PoolID) (int, error) {
	var maxRound int
	err := s.db.WithContext(ctx).
		Model(&drawRecordRow{}).
		Where("pool_id = ?", string(poolID)).
		Select("COALESCE(MAX(round_number), 0)").
		Scan(&maxRound).Error
	if err != nil {
		return 0, err
	}
	return maxRound + 1, nil
}

// FindByID returns repositories.ErrRecordNotFound when no row has the id.
func (s *Store) FindByID(ctx context.Context, id string) (*models.DrawRecord, error) {
	var row drawRecordRow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repositories.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	record := row.toModel()
	return &record, nil
}

// ListRecords returns every record in storage order.
func (s *Store) ListRecords(ctx context.Context) ([]models.DrawRecord, error) {
	var rows []drawRecordRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toModels(rows), nil
}

// ListRecordsByPool returns the pool's records by round ascending.
func (s *Store) ListRecordsByPool(ctx context.Context, poolID models.PoolID) ([]models.DrawRecord, error) {
	var rows []drawRecordRow
	err := s.db.WithContext(ctx).
		Where("pool_id = ?", string(poolID)).
		Order("round_number ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toModels(rows), nil
}

// ClearAll deletes every record.
func (s *Store) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&drawRecordRow{}).Error
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toModels(rows []drawRecordRow) []models.DrawRecord {
	records := make([]models.DrawRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].toModel())
	}
	return records
}
