package database

import (
	"github.com/pahfm/fleet-backend/internal/domain"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Driver{},
		&domain.Passenger{},
		&domain.Drive{},
		&domain.VerificationToken{},
	)
}
