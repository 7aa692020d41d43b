package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Postgres is the durable content-log adapter.
type Postgres struct {
	db     *gorm.DB
	logger *slog.Logger
}

// OpenPostgres connects, migrates the content_logs table, and returns the
// adapter.
func OpenPostgres(dsn string, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&ContentLog{}); err != nil {
		return nil, fmt.Errorf("migrate content_logs: %w", err)
	}
	return &Postgres{db: db, logger: logger}, nil
}

func (p *Postgres) Save(ctx context.Context, log ContentLog) error {
	if err := p.db.WithContext(ctx).Create(&log).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (p *Postgres) SeenSource(ctx context.Context, sourceURL string) (bool, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Model(&ContentLog{}).
		Where("source_url = ?", sourceURL).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (p *Postgres) Recent(ctx context.Context, n int) ([]ContentLog, error) {
	var rows []ContentLog
	tx := p.db.WithContext(ctx).Order("created_at DESC")
	if n > 0 {
		tx = tx.Limit(n)
	}
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
