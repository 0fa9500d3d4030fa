package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/pahfm/fleet-backend/internal/database"
	"github.com/pahfm/fleet-backend/internal/tools/common"
)

type options struct {
	envFile string
	ci      bool
	timeout time.Duration
}

var errDryRunRollback = errors.New("dry run rollback")

func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "seed",
		Short:         "Load demo drivers and passengers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "env file applied before reading configuration")
	root.PersistentFlags().BoolVar(&opts.ci, "ci", false, "print a single JSON result line")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", time.Minute, "overall timeout")

	root.AddCommand(&cobra.Command{
		Use:   "apply",
		Short: "Insert demo rows that are missing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := run(opts, "seed", "apply", withDB(opts, apply))
			return err
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "dry-run",
		Short: "Report what apply would insert without writing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := run(opts, "seed", "dry-run", withDB(opts, dryRun))
			return err
		},
	})
	return root
}

func run(opts *options, title, action string, fn func(ctx context.Context) ([]string, error)) ([]string, error) {
	return common.Run(opts.ci, opts.timeout, title+" "+action, fn)
}

func withDB(opts *options, fn func(ctx context.Context, db *gorm.DB) ([]string, error)) func(ctx context.Context) ([]string, error) {
	return func(ctx context.Context) ([]string, error) {
		_, db, closeFn, err := common.LoadConfigDB(opts.envFile)
		defer closeFn()
		if err != nil {
			return nil, err
		}
		return fn(ctx, db)
	}
}

func apply(ctx context.Context, db *gorm.DB) ([]string, error) {
	report, err := database.SeedDemo(db.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return describe(report), nil
}

func dryRun(ctx context.Context, db *gorm.DB) ([]string, error) {
	var report database.SeedReport
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if report, err = database.SeedDemo(tx); err != nil {
			return err
		}
		return errDryRunRollback
	})
	if err != nil && !errors.Is(err, errDryRunRollback) {
		return nil, err
	}
	return describe(report), nil
}

func describe(report database.SeedReport) []string {
	return []string{
		fmt.Sprintf("drivers created: %d", report.CreatedDrivers),
		fmt.Sprintf("passengers created: %d", report.CreatedPassengers),
		fmt.Sprintf("noop: %t", report.Noop),
	}
}
