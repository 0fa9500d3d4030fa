package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/pahfm/fleet-backend/internal/domain"
	"github.com/pahfm/fleet-backend/internal/observability"
)

var (
	ErrDriveNotFound     = errors.New("drive not found")
	ErrDriverNotFound    = errors.New("driver not found")
	ErrPassengerNotFound = errors.New("passenger not found")
)

type DriveRepository interface {
	Create(ctx context.Context, drive *domain.Drive) error
	FindByID(ctx context.Context, id uint) (*domain.Drive, error)
	FindDriverByID(ctx context.Context, id uint) (*domain.Driver, error)
	// FindPassengersByIDs returns ErrPassengerNotFound unless every id resolves.
	FindPassengersByIDs(ctx context.Context, ids []uint) ([]domain.Passenger, error)
	// Transaction runs fn with repositories bound to one database transaction.
	Transaction(ctx context.Context, fn func(drives DriveRepository, tokens VerificationTokenRepository) error) error
}

type GormDriveRepository struct{ db *gorm.DB }

func NewDriveRepository(db *gorm.DB) DriveRepository {
	return &GormDriveRepository{db: db}
}

func (r *GormDriveRepository) Create(ctx context.Context, drive *domain.Drive) error {
	if err := r.db.WithContext(ctx).Omit("Tokens").Create(drive).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "drive", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "drive", "create", "success")
	return nil
}

func (r *GormDriveRepository) FindByID(ctx context.Context, id uint) (*domain.Drive, error) {
	var drive domain.Drive
	err := r.db.WithContext(ctx).Preload("Tokens", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	}).First(&drive, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "drive", "find_by_id", "not_found")
			return nil, ErrDriveNotFound
		}
		observability.RecordRepositoryOperation(ctx, "drive", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "drive", "find_by_id", "success")
	return &drive, nil
}

func (r *GormDriveRepository) FindDriverByID(ctx context.Context, id uint) (*domain.Driver, error) {
	var driver domain.Driver
	if err := r.db.WithContext(ctx).First(&driver, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "driver", "find_by_id", "not_found")
			return nil, ErrDriverNotFound
		}
		observability.RecordRepositoryOperation(ctx, "driver", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "driver", "find_by_id", "success")
	return &driver, nil
}

func (r *GormDriveRepository) FindPassengersByIDs(ctx context.Context, ids []uint) ([]domain.Passenger, error) {
	unique := make([]uint, 0, len(ids))
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	var passengers []domain.Passenger
	if len(unique) > 0 {
		if err := r.db.WithContext(ctx).Where("id IN ?", unique).Order("id asc").Find(&passengers).Error; err != nil {
			observability.RecordRepositoryOperation(ctx, "passenger", "find_by_ids", "error")
			return nil, err
		}
	}
	if len(passengers) != len(unique) {
		observability.RecordRepositoryOperation(ctx, "passenger", "find_by_ids", "not_found")
		return nil, ErrPassengerNotFound
	}
	observability.RecordRepositoryOperation(ctx, "passenger", "find_by_ids", "success")
	return passengers, nil
}

func (r *GormDriveRepository) Transaction(ctx context.Context, fn func(drives DriveRepository, tokens VerificationTokenRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormDriveRepository{db: tx}, NewVerificationTokenRepository(tx))
	})
}
