package services

import (
	"testing"

	"github.com/ethosradar/backend/internal/config"
	"github.com/ethosradar/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// newTestDB opens a private in-memory sqlite database with all tables.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := models.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
