// Package testutil provides test helpers: an in-memory database, a fake
// clock, a fake finance backend, and assertions.
//
// Test style follows the layer. The domain packages (classifier, categorize,
// debounce, dedupe, notify, quickadd, upload) assert with testify. The
// transport and storage packages (backend, services, handlers, middleware,
// router, tokenstore, database and the rest) use plain testing with the
// Assert helpers here. A package never mixes the two.
package testutil

import (
	"testing"
	"time"

	"fintrack/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// localModels are the tables owned by this service.
var localModels = []interface{}{
	&models.AuthToken{},
	&models.UploadRun{},
}

// SetupTestDB creates an in-memory SQLite database with the local tables migrated.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(localModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// TeardownTestDB closes the underlying database connection.
func TeardownTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	sqlDB, err := db.DB()
	if err != nil {
		t.Errorf("failed to get underlying DB for teardown: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		t.Errorf("failed to close test database: %v", err)
	}
}

// CreateTestUploadRun inserts an upload run that completed at the given time.
func CreateTestUploadRun(t *testing.T, db *gorm.DB, fileName string, saved, failed int, completedAt time.Time) *models.UploadRun {
	t.Helper()

	run := &models.UploadRun{
		SessionID:   "session-" + fileName,
		FileName:    fileName,
		Extracted:   saved + failed,
		Saved:       saved,
		Failed:      failed,
		StartedAt:   completedAt.Add(-10 * time.Second),
		CompletedAt: completedAt,
	}
	if err := db.Create(run).Error; err != nil {
		t.Fatalf("failed to create test upload run: %v", err)
	}
	return run
}
