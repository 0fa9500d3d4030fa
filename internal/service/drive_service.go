package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pahfm/fleet-backend/internal/clock"
	"github.com/pahfm/fleet-backend/internal/domain"
	"github.com/pahfm/fleet-backend/internal/observability"
	"github.com/pahfm/fleet-backend/internal/repository"
)

type CreateDriveInput struct {
	DriverID      uint
	PassengerIDs  []uint
	StartLocation string
	EndLocation   string
	Description   string
	Date          time.Time
}

func (in CreateDriveInput) Validate() error {
	verr := NewValidationError()
	if in.DriverID == 0 {
		verr.Add("driverId", msgRequired)
	}
	if len(in.PassengerIDs) == 0 {
		verr.Add("passengerIds", "At least one passenger is required.")
	}
	for _, id := range in.PassengerIDs {
		if id == 0 {
			verr.Add("passengerIds", "Passenger ids must be positive.")
			break
		}
	}
	if strings.TrimSpace(in.StartLocation) == "" {
		verr.Add("startLocation", msgBlank)
	}
	if strings.TrimSpace(in.EndLocation) == "" {
		verr.Add("endLocation", msgBlank)
	}
	return verr.OrNil()
}

type CreatedDrive struct {
	Drive  *domain.Drive
	Tokens []domain.VerificationToken
}

type DriveServiceInterface interface {
	Create(ctx context.Context, in CreateDriveInput) (*CreatedDrive, error)
}

type DriveService struct {
	drives     repository.DriveRepository
	notifier   DriveCreatedNotifier
	clock      clock.Clock
	expiration time.Duration
	baseURL    string
	logger     *slog.Logger
}

func NewDriveService(
	drives repository.DriveRepository,
	notifier DriveCreatedNotifier,
	clk clock.Clock,
	expiration time.Duration,
	baseURL string,
	logger *slog.Logger,
) *DriveService {
	if clk == nil {
		clk = clock.Real()
	}
	if expiration <= 0 {
		expiration = domain.DefaultTokenExpiration
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DriveService{
		drives:     drives,
		notifier:   notifier,
		clock:      clk,
		expiration: expiration,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// Create stores the drive and one verification token per passenger in a
// single transaction, reloads the committed rows, then notifies each
// passenger. Notification failures are logged and do not fail the call.
func (s *DriveService) Create(ctx context.Context, in CreateDriveInput) (*CreatedDrive, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.drives.FindDriverByID(ctx, in.DriverID); err != nil {
		return nil, err
	}
	passengers, err := s.drives.FindPassengersByIDs(ctx, in.PassengerIDs)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	date := in.Date
	if date.IsZero() {
		date = now
	}
	drive := &domain.Drive{
		DriverID:      in.DriverID,
		StartLocation: strings.TrimSpace(in.StartLocation),
		EndLocation:   strings.TrimSpace(in.EndLocation),
		Description:   strings.TrimSpace(in.Description),
		Date:          date,
	}
	tokens := make([]domain.VerificationToken, 0, len(passengers))
	err = s.drives.Transaction(ctx, func(drives repository.DriveRepository, tokenRepo repository.VerificationTokenRepository) error {
		if err := drives.Create(ctx, drive); err != nil {
			return fmt.Errorf("create drive: %w", err)
		}
		for _, p := range passengers {
			tok := domain.VerificationToken{
				Token:       uuid.New(),
				DriveID:     drive.ID,
				PassengerID: p.ID,
				CreatedAt:   now,
			}
			if err := tokenRepo.Create(ctx, &tok); err != nil {
				return fmt.Errorf("create verification token: %w", err)
			}
			tokens = append(tokens, tok)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if stored, err := s.drives.FindByID(ctx, drive.ID); err == nil {
		drive, tokens = stored, stored.Tokens
	} else {
		s.logger.WarnContext(ctx, "reload created drive failed", "drive_id", drive.ID, "error", err.Error())
	}

	s.logger.InfoContext(ctx, "drive created",
		"drive_id", drive.ID,
		"driver_id", drive.DriverID,
		"passengers", len(passengers),
	)
	s.notifyPassengers(ctx, drive, passengers, tokens)
	return &CreatedDrive{Drive: drive, Tokens: tokens}, nil
}

func (s *DriveService) notifyPassengers(ctx context.Context, drive *domain.Drive, passengers []domain.Passenger, tokens []domain.VerificationToken) {
	if s.notifier == nil {
		return
	}
	emails := make(map[uint]string, len(passengers))
	for _, p := range passengers {
		emails[p.ID] = p.Email
	}
	for i := range tokens {
		tok := &tokens[i]
		event := DriveCreatedEvent{
			DriveID:         drive.ID,
			DriverID:        drive.DriverID,
			TokenID:         tok.Token,
			PassengerID:     tok.PassengerID,
			PassengerEmail:  emails[tok.PassengerID],
			VerificationURL: tok.VerificationURL(s.baseURL),
			ExpiresAt:       tok.ExpiresAt(s.expiration),
		}
		if err := s.notifier.NotifyDriveCreated(ctx, event); err != nil {
			observability.RecordDriveNotification(ctx, notifierName(s.notifier), "error")
			s.logger.WarnContext(ctx, "drive created notification failed",
				"drive_id", drive.ID,
				"passenger_id", tok.PassengerID,
				"error", err.Error(),
			)
			continue
		}
		observability.RecordDriveNotification(ctx, notifierName(s.notifier), "success")
	}
}

func notifierName(n DriveCreatedNotifier) string {
	switch n.(type) {
	case *LogDriveCreatedNotifier:
		return "log"
	case *KafkaDriveCreatedNotifier:
		return "kafka"
	default:
		return "custom"
	}
}

// IsNotFound reports whether err is one of the repository not-found errors
// surfaced by this package.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrVerificationTokenNotFound) ||
		errors.Is(err, repository.ErrDriverNotFound) ||
		errors.Is(err, repository.ErrPassengerNotFound) ||
		errors.Is(err, repository.ErrDriveNotFound)
}
