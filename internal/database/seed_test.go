package database

import (
	"testing"

	"github.com/pahfm/fleet-backend/internal/domain"
)

func TestSeedDemoCreatesDataAndNoopOnSecondRun(t *testing.T) {
	db := newSQLiteDB(t)
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	report1, err := SeedDemo(db)
	if err != nil {
		t.Fatalf("seed first run: %v", err)
	}
	if report1.Noop || report1.CreatedDrivers != 1 || report1.CreatedPassengers != 2 {
		t.Fatalf("unexpected first report %+v", report1)
	}

	report2, err := SeedDemo(db)
	if err != nil {
		t.Fatalf("seed second run: %v", err)
	}
	if !report2.Noop {
		t.Fatalf("expected noop on second run: %+v", report2)
	}

	var passengers int64
	if err := db.Model(&domain.Passenger{}).Count(&passengers).Error; err != nil {
		t.Fatalf("count passengers: %v", err)
	}
	if passengers != 2 {
		t.Fatalf("expected 2 passengers, got %d", passengers)
	}
}

func TestSeedDemoFailureWhenDBClosed(t *testing.T) {
	db := newSQLiteDB(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("close sql db: %v", err)
	}
	if _, err := SeedDemo(db); err == nil {
		t.Fatal("expected seed error on closed database")
	}
}
