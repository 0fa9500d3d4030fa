//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/pahfm/fleet-backend/internal/app"
	"github.com/pahfm/fleet-backend/internal/observability"
)

func InitializeApp() (*app.App, func(), error) {
	panic(wire.Build(
		ConfigSet,
		ObservabilitySet,
		RuntimeInfraSet,
		RepositorySet,
		ServiceSet,
		HTTPSet,
		AppSet,
	))
}

func InitializeMigrationRunner() (*MigrationRunner, func(), error) {
	panic(wire.Build(
		ConfigSet,
		observability.NewLogger,
		provideOpenDB,
		NewMigrationRunner,
	))
}
