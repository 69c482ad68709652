package services

import (
	"errors"
	"fmt"
	"homematch-server/models"
	"homematch-server/storage"
	"homematch-server/utils"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB swaps storage.DB for an in-memory sqlite database so every test
// starts from a clean schema. Redis and the live hub stay nil; both paths are
// nil-safe.
func setupTestDB(t *testing.T) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Listing{},
		&models.Conversation{},
		&models.Message{},
		&models.Notification{},
		&models.ViewingReservation{},
		&models.TenantRating{},
		&models.LandlordRating{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	storage.DB = db
	storage.Redis = nil
	Live = nil
}

func createTestUser(t *testing.T, firstName, lastName, role string) *models.User {
	t.Helper()
	user := models.User{
		FirstName: firstName,
		LastName:  lastName,
		Email:     fmt.Sprintf("%s.%s@example.com", firstName, lastName),
		Role:      role,
	}
	if err := storage.DB.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return &user
}

func createTestListing(t *testing.T, ownerID uint, title string) *models.Listing {
	t.Helper()
	listing := models.Listing{
		OwnerID: ownerID,
		Title:   title,
		City:    "Harare",
		Type:    "rent",
		Price:   450,
	}
	if err := storage.DB.Create(&listing).Error; err != nil {
		t.Fatalf("failed to create listing: %v", err)
	}
	return &listing
}

func assertErrorKind(t *testing.T, err error, kind string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", kind)
	}
	var appErr *utils.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected %s, got %v", kind, err)
	}
	if appErr.Kind != kind {
		t.Fatalf("expected kind %s, got %s (%s)", kind, appErr.Kind, appErr.Message)
	}
}
