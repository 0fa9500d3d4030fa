package database

import (
	"errors"
	"fmt"

	"github.com/pahfm/fleet-backend/internal/domain"

	"gorm.io/gorm"
)

type SeedReport struct {
	CreatedDrivers    int
	CreatedPassengers int
	Noop              bool
}

// SeedDemo inserts a driver and two passengers for local development. Rows
// are matched on email, so running it twice changes nothing.
func SeedDemo(db *gorm.DB) (SeedReport, error) {
	var report SeedReport
	err := db.Transaction(func(tx *gorm.DB) error {
		created, err := ensureByEmail(tx, &domain.Driver{Email: "driver@fleet.local", Name: "Demo Driver"}, "driver@fleet.local")
		if err != nil {
			return err
		}
		if created {
			report.CreatedDrivers++
		}
		for _, p := range []domain.Passenger{
			{FirstName: "Ada", LastName: "Passenger", Email: "ada@fleet.local"},
			{FirstName: "Linus", LastName: "Passenger", Email: "linus@fleet.local"},
		} {
			created, err := ensureByEmail(tx, &p, p.Email)
			if err != nil {
				return err
			}
			if created {
				report.CreatedPassengers++
			}
		}
		return nil
	})
	if err != nil {
		return SeedReport{}, fmt.Errorf("seed demo data: %w", err)
	}
	report.Noop = report.CreatedDrivers == 0 && report.CreatedPassengers == 0
	return report, nil
}

func ensureByEmail(tx *gorm.DB, row interface{}, email string) (bool, error) {
	err := tx.Where("email = ?", email).Take(row).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if err := tx.Create(row).Error; err != nil {
		return false, err
	}
	return true, nil
}
