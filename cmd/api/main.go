package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pahfm/fleet-backend/internal/di"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrationOnly(); err != nil {
			log.Fatal(err)
		}
		return
	}

	a, cleanup, err := di.InitializeApp()
	if err != nil {
		log.Fatal(err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := a.Run(ctx); err != nil {
		a.Logger.Error("server stopped", "error", err.Error())
		cleanup()
		os.Exit(1)
	}
}

func runMigrationOnly() error {
	runner, cleanup, err := di.InitializeMigrationRunner()
	if err != nil {
		return err
	}
	defer cleanup()
	return runner.Migrate()
}
