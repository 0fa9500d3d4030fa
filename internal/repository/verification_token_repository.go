package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pahfm/fleet-backend/internal/domain"
	"github.com/pahfm/fleet-backend/internal/observability"
)

var ErrVerificationTokenNotFound = errors.New("verification token not found")

type VerificationTokenRepository interface {
	FindByToken(ctx context.Context, token uuid.UUID) (*domain.VerificationToken, error)
	Create(ctx context.Context, token *domain.VerificationToken) error
	// Confirm records a decision taken at the given instant and returns the stored row.
	Confirm(ctx context.Context, token uuid.UUID, isOK bool, comment string, at time.Time) (*domain.VerificationToken, error)
}

type GormVerificationTokenRepository struct{ db *gorm.DB }

func NewVerificationTokenRepository(db *gorm.DB) VerificationTokenRepository {
	return &GormVerificationTokenRepository{db: db}
}

func (r *GormVerificationTokenRepository) FindByToken(ctx context.Context, token uuid.UUID) (*domain.VerificationToken, error) {
	var tok domain.VerificationToken
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&tok).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "verification_token", "find_by_token", "not_found")
			return nil, ErrVerificationTokenNotFound
		}
		observability.RecordRepositoryOperation(ctx, "verification_token", "find_by_token", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "verification_token", "find_by_token", "success")
	return &tok, nil
}

func (r *GormVerificationTokenRepository) Create(ctx context.Context, token *domain.VerificationToken) error {
	if token.Token == uuid.Nil {
		token.Token = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "verification_token", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "verification_token", "create", "success")
	return nil
}

// Confirm is a single UPDATE keyed by token so the write is atomic at row
// level; concurrent confirmations of the same token resolve last-write-wins.
func (r *GormVerificationTokenRepository) Confirm(ctx context.Context, token uuid.UUID, isOK bool, comment string, at time.Time) (*domain.VerificationToken, error) {
	res := r.db.WithContext(ctx).Model(&domain.VerificationToken{}).
		Where("token = ?", token).
		Updates(map[string]any{
			"is_confirmed": true,
			"is_ok":        isOK,
			"comment":      strings.TrimSpace(comment),
			"updated_at":   at,
		})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "verification_token", "confirm", "error")
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "verification_token", "confirm", "not_found")
		return nil, ErrVerificationTokenNotFound
	}
	observability.RecordRepositoryOperation(ctx, "verification_token", "confirm", "success")
	return r.FindByToken(ctx, token)
}
