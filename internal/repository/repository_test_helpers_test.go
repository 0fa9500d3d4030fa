package repository

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pahfm/fleet-backend/internal/domain"
)

func newRepositoryDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.Driver{},
		&domain.Passenger{},
		&domain.Drive{},
		&domain.VerificationToken{},
	); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return db
}

func seedDriveForTest(t *testing.T, db *gorm.DB) (*domain.Drive, *domain.Passenger) {
	t.Helper()
	driver := &domain.Driver{Email: "driver@example.com", Name: "Driver"}
	if err := db.Create(driver).Error; err != nil {
		t.Fatalf("create driver: %v", err)
	}
	passenger := &domain.Passenger{FirstName: "Ada", LastName: "Passenger", Email: "ada@example.com"}
	if err := db.Create(passenger).Error; err != nil {
		t.Fatalf("create passenger: %v", err)
	}
	drive := &domain.Drive{DriverID: driver.ID, StartLocation: "Warsaw", EndLocation: "Lodz"}
	if err := db.Create(drive).Error; err != nil {
		t.Fatalf("create drive: %v", err)
	}
	return drive, passenger
}
