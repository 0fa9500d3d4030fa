package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/pahfm/fleet-backend"

var (
	instrumentsOnce sync.Once
	repoOps         metric.Int64Counter
	confirmations   metric.Int64Counter
	notifications   metric.Int64Counter
)

// Instruments bind to the global meter provider, which is a no-op until an
// exporter installs a real one.
func instruments() {
	instrumentsOnce.Do(func() {
		meter := otel.Meter(meterName)
		repoOps, _ = meter.Int64Counter("repository.operations",
			metric.WithDescription("Repository operations by repository, operation and outcome"))
		confirmations, _ = meter.Int64Counter("verification_token.confirmations",
			metric.WithDescription("Verification token confirmation submissions by outcome"))
		notifications, _ = meter.Int64Counter("drive.notifications",
			metric.WithDescription("Drive-created notifications by notifier and outcome"))
	})
}

func RecordRepositoryOperation(ctx context.Context, repo, op, outcome string) {
	instruments()
	if repoOps == nil {
		return
	}
	repoOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("repository", repo),
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}

func RecordTokenConfirmation(ctx context.Context, outcome string) {
	instruments()
	if confirmations == nil {
		return
	}
	confirmations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordDriveNotification(ctx context.Context, notifier, outcome string) {
	instruments()
	if notifications == nil {
		return
	}
	notifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("notifier", notifier),
		attribute.String("outcome", outcome),
	))
}
