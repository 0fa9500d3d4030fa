package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTokenExpiration is used when no expiration window is configured.
const DefaultTokenExpiration = 72 * time.Hour

// MaxCommentLength matches the size of the comment column.
const MaxCommentLength = 1024

// VerificationToken is a passenger's invitation to confirm participation in
// a drive. Token is the external lookup key; ID never leaves the database.
type VerificationToken struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	Token       uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"token"`
	DriveID     uint      `gorm:"index;not null" json:"drive_id"`
	PassengerID uint      `gorm:"index;not null" json:"passenger_id"`
	IsConfirmed bool      `gorm:"not null;default:false" json:"is_confirmed"`
	IsOK        bool      `gorm:"not null;default:false" json:"is_ok"`
	Comment     string    `gorm:"size:1024" json:"comment"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ExpiresAt is the first instant at which the token counts as expired.
func (t *VerificationToken) ExpiresAt(expiration time.Duration) time.Time {
	return t.CreatedAt.Add(expiration)
}

// IsExpired reports whether now has reached CreatedAt+expiration. The
// boundary instant itself is expired.
func (t *VerificationToken) IsExpired(now time.Time, expiration time.Duration) bool {
	return !now.Before(t.ExpiresAt(expiration))
}

// IsActive reports whether the token still awaits a decision.
func (t *VerificationToken) IsActive(now time.Time, expiration time.Duration) bool {
	return !t.IsExpired(now, expiration) && !t.IsConfirmed
}

// VerificationURL is the link a passenger follows to answer the invitation.
func (t *VerificationToken) VerificationURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/verification-token/" + t.Token.String()
}
