package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pahfm/fleet-backend/internal/clock"
	"github.com/pahfm/fleet-backend/internal/domain"
	"github.com/pahfm/fleet-backend/internal/observability"
	"github.com/pahfm/fleet-backend/internal/repository"
)

// Decision is a passenger's answer. Nil fields were absent from the request.
type Decision struct {
	IsOK    *bool
	Comment *string
}

func (d Decision) Validate() error {
	verr := NewValidationError()
	if d.IsOK == nil {
		verr.Add("isOk", msgRequired)
	}
	switch {
	case d.Comment == nil:
		verr.Add("comment", msgRequired)
	case strings.TrimSpace(*d.Comment) == "":
		verr.Add("comment", msgBlank)
	case utf8.RuneCountInString(strings.TrimSpace(*d.Comment)) > domain.MaxCommentLength:
		verr.Add("comment", fmt.Sprintf(msgMaxLength, domain.MaxCommentLength))
	}
	return verr.OrNil()
}

type TokenStatus struct {
	IsActive bool
}

type ConfirmationServiceInterface interface {
	Status(ctx context.Context, token uuid.UUID) (TokenStatus, error)
	Submit(ctx context.Context, token uuid.UUID, decision Decision) (TokenStatus, error)
}

type ConfirmationService struct {
	tokens     repository.VerificationTokenRepository
	clock      clock.Clock
	expiration time.Duration
	logger     *slog.Logger
}

func NewConfirmationService(tokens repository.VerificationTokenRepository, clk clock.Clock, expiration time.Duration, logger *slog.Logger) *ConfirmationService {
	if clk == nil {
		clk = clock.Real()
	}
	if expiration <= 0 {
		expiration = domain.DefaultTokenExpiration
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfirmationService{tokens: tokens, clock: clk, expiration: expiration, logger: logger}
}

func (s *ConfirmationService) Status(ctx context.Context, token uuid.UUID) (TokenStatus, error) {
	tok, err := s.tokens.FindByToken(ctx, token)
	if err != nil {
		return TokenStatus{}, err
	}
	return TokenStatus{IsActive: tok.IsActive(s.clock.Now(), s.expiration)}, nil
}

// Submit records the decision. The token is resolved before the payload is
// validated, so an unknown token reports not-found even for an empty body.
// Expired and already-confirmed tokens are overwritten.
func (s *ConfirmationService) Submit(ctx context.Context, token uuid.UUID, decision Decision) (TokenStatus, error) {
	current, err := s.tokens.FindByToken(ctx, token)
	if err != nil {
		return TokenStatus{}, err
	}
	if err := decision.Validate(); err != nil {
		observability.RecordTokenConfirmation(ctx, "invalid")
		return TokenStatus{}, err
	}

	now := s.clock.Now()
	if current.IsConfirmed || current.IsExpired(now, s.expiration) {
		s.logger.InfoContext(ctx, "verification token decision overwritten",
			"token", token.String(),
			"was_confirmed", current.IsConfirmed,
			"expired", current.IsExpired(now, s.expiration),
		)
	}

	updated, err := s.tokens.Confirm(ctx, token, *decision.IsOK, *decision.Comment, now)
	if err != nil {
		observability.RecordTokenConfirmation(ctx, "error")
		return TokenStatus{}, fmt.Errorf("confirm verification token: %w", err)
	}
	outcome := "rejected"
	if updated.IsOK {
		outcome = "accepted"
	}
	observability.RecordTokenConfirmation(ctx, outcome)
	s.logger.InfoContext(ctx, "verification token confirmed",
		"token", token.String(),
		"drive_id", updated.DriveID,
		"passenger_id", updated.PassengerID,
		"is_ok", updated.IsOK,
	)
	return TokenStatus{IsActive: updated.IsActive(now, s.expiration)}, nil
}
