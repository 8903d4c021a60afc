package models

import "time"

// CacheEntry backs the database cache driver.
type CacheEntry struct {
	Key       string    `gorm:"column:cache_key;primaryKey;size:255" json:"key"`
	Value     []byte    `json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CacheEntry) TableName() string { return "cache_entries" }
