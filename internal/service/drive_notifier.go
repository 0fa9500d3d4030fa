package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DriveCreatedEvent is emitted once per invited passenger after the drive and
// its verification tokens are committed.
type DriveCreatedEvent struct {
	DriveID         uint      `json:"drive_id"`
	DriverID        uint      `json:"driver_id"`
	TokenID         uuid.UUID `json:"token_id"`
	PassengerID     uint      `json:"passenger_id"`
	PassengerEmail  string    `json:"passenger_email"`
	VerificationURL string    `json:"verification_url"`
	ExpiresAt       time.Time `json:"expires_at"`
}

type DriveCreatedNotifier interface {
	NotifyDriveCreated(ctx context.Context, event DriveCreatedEvent) error
}

// LogDriveCreatedNotifier only logs the invitation; no email leaves the
// process.
type LogDriveCreatedNotifier struct {
	logger *slog.Logger
}

func NewLogDriveCreatedNotifier(logger *slog.Logger) *LogDriveCreatedNotifier {
	return &LogDriveCreatedNotifier{logger: logger}
}

func (n *LogDriveCreatedNotifier) NotifyDriveCreated(ctx context.Context, event DriveCreatedEvent) error {
	n.logger.InfoContext(ctx, "drive invitation issued",
		"drive_id", event.DriveID,
		"driver_id", event.DriverID,
		"passenger_id", event.PassengerID,
		"email", event.PassengerEmail,
		"expires_at", event.ExpiresAt,
		"verification", event.VerificationURL,
	)
	return nil
}
