package common

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pahfm/fleet-backend/internal/config"
	"github.com/pahfm/fleet-backend/internal/database"
)

// LoadConfigDB reads config (after applying envFile) and opens the database.
// The returned close func is never nil.
func LoadConfigDB(envFile string) (*config.Config, *gorm.DB, func(), error) {
	noop := func() {}
	if err := LoadEnvFile(envFile); err != nil {
		return nil, nil, noop, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, noop, fmt.Errorf("load config: %w", err)
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, noop, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := database.Ping(ctx, db); err != nil {
		closeFn()
		return nil, nil, noop, fmt.Errorf("ping database: %w", err)
	}
	return cfg, db, closeFn, nil
}

// Run executes action under timeout and reports the outcome.
func Run(ci bool, timeout time.Duration, title string, action func(ctx context.Context) ([]string, error)) ([]string, error) {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	details, err := action(ctx)
	PrintCIResult(!ci, title, details, err)
	return details, err
}
