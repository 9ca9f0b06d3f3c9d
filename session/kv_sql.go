package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/chatgate/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// kvEntry is the single table backing SQLKV.
type kvEntry struct {
	Key       string `gorm:"column:kv_key;primaryKey;size:255"`
	Value     []byte
	UpdatedAt time.Time
}

func (kvEntry) TableName() string { return "chatgate_kv" }

// SQLKV stores values in one table through GORM (postgres, mysql or sqlite).
type SQLKV struct {
	pool *database.PoolManager
}

// NewSQLKV migrates the table and returns the KV.
func NewSQLKV(pool *database.PoolManager) (*SQLKV, error) {
	if err := pool.DB().AutoMigrate(&kvEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate kv table: %w", err)
	}
	return &SQLKV{pool: pool}, nil
}

// Load implements KV.
func (s *SQLKV) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var e kvEntry
	err := s.pool.DB().WithContext(ctx).Where("kv_key = ?", key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv load failed: %w", err)
	}
	return e.Value, true, nil
}

// Save implements KV as an upsert.
func (s *SQLKV) Save(ctx context.Context, key string, value []byte) error {
	return s.pool.WithTransaction(ctx, func(tx *gorm.DB) error {
		e := kvEntry{Key: key, Value: value, UpdatedAt: time.Now()}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kv_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&e).Error
	})
}

// Close closes the pool.
func (s *SQLKV) Close() error {
	return s.pool.Close()
}
