package cache

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CacheEntry — строка советующего кэша в PostgreSQL (GORM).
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:256"`
	Value     []byte    `gorm:"type:bytea"`
	StoredAt  time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (CacheEntry) TableName() string { return "cache_entries" }

// GormStore persists cache entries so the first paint after a restart can
// come from the last known snapshot, the same way the original dashboard
// survived page reloads on localStorage. Every failure degrades to a miss
// or a dropped write; the store never makes a sync cycle fail.
type GormStore struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewGormStore creates a persistent store over an open GORM handle.
func NewGormStore(db *gorm.DB, log *zap.Logger) *GormStore {
	return &GormStore{db: db, log: log}
}

func (s *GormStore) Load(key string) (Entry, bool) {
	var row CacheEntry
	err := s.db.Where("key = ?", key).First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("cache: load failed", zap.String("key", key), zap.Error(err))
		}
		return Entry{}, false
	}
	return Entry{Value: row.Value, StoredAt: row.StoredAt}, true
}

func (s *GormStore) Save(key string, e Entry) {
	row := CacheEntry{Key: key, Value: e.Value, StoredAt: e.StoredAt}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "stored_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		s.log.Warn("cache: save failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *GormStore) Delete(key string) {
	if err := s.db.Where("key = ?", key).Delete(&CacheEntry{}).Error; err != nil {
		s.log.Warn("cache: delete failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *GormStore) DeletePrefix(prefix string) {
	if err := s.db.Where("key LIKE ?", prefix+"%").Delete(&CacheEntry{}).Error; err != nil {
		s.log.Warn("cache: delete prefix failed", zap.String("prefix", prefix), zap.Error(err))
	}
}
