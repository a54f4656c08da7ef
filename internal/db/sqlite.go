package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/pysugar/oauth-connect/internal/accounts"
	"github.com/pysugar/oauth-connect/internal/db/models"
	"github.com/pysugar/oauth-connect/internal/providers"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// InitDB opens the SQLite database at dsn and runs migrations.
func InitDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}

	if err := db.AutoMigrate(&models.ConnectedAccount{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Store is an accounts.Store backed by gorm. Several service instances can
// share one database file.
type Store struct {
	db *gorm.DB
}

var _ accounts.Store = (*Store)(nil)

// NewStore wraps an initialized database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Upsert(ctx context.Context, key providers.Key, record accounts.Record) error {
	row := models.ConnectedAccount{
		Key:       string(key),
		Provider:  string(record.Provider),
		AccountID: record.AccountID,
		Status:    record.Status,
		Email:     record.Email,
		Username:  record.Username,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"provider", "account_id", "status", "email", "username", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key providers.Key) (bool, error) {
	result := s.db.WithContext(ctx).Where(&models.ConnectedAccount{Key: string(key)}).Delete(&models.ConnectedAccount{})
	if result.Error != nil {
		return false, fmt.Errorf("remove %s: %w", key, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *Store) Get(ctx context.Context, key providers.Key) (accounts.Record, bool, error) {
	var row models.ConnectedAccount
	err := s.db.WithContext(ctx).Where(&models.ConnectedAccount{Key: string(key)}).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return accounts.Record{}, false, nil
	}
	if err != nil {
		return accounts.Record{}, false, fmt.Errorf("get %s: %w", key, err)
	}
	return toRecord(row), true, nil
}

func (s *Store) Entries(ctx context.Context) ([]accounts.Entry, error) {
	var rows []models.ConnectedAccount
	if err := s.db.WithContext(ctx).Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list cached accounts: %w", err)
	}
	entries := make([]accounts.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, accounts.Entry{Key: providers.Key(row.Key), Record: toRecord(row)})
	}
	return entries, nil
}

func toRecord(row models.ConnectedAccount) accounts.Record {
	return accounts.Record{
		Provider:  providers.UpstreamID(row.Provider),
		AccountID: row.AccountID,
		Status:    row.Status,
		Email:     row.Email,
		Username:  row.Username,
		UpdatedAt: row.UpdatedAt,
	}
}
