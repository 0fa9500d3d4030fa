package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/pahfm/fleet-backend/internal/database"
	"github.com/pahfm/fleet-backend/internal/domain"
	"github.com/pahfm/fleet-backend/internal/tools/common"
)

type options struct {
	envFile string
	ci      bool
	timeout time.Duration
}

type managedTable struct {
	name  string
	model interface{}
}

func managedTables() []managedTable {
	return []managedTable{
		{name: "drivers", model: &domain.Driver{}},
		{name: "passengers", model: &domain.Passenger{}},
		{name: "drives", model: &domain.Drive{}},
		{name: "verification_tokens", model: &domain.VerificationToken{}},
	}
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply and inspect the fleet database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "env file applied before reading configuration")
	root.PersistentFlags().BoolVar(&opts.ci, "ci", false, "print a single JSON result line")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall timeout")

	root.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Create or update all tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := run(opts, "migrate", "up", withDB(opts, func(ctx context.Context, db *gorm.DB) ([]string, error) {
				if err := database.Migrate(db.WithContext(ctx)); err != nil {
					return nil, err
				}
				return tableStatus(db)
			}))
			return err
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Report which tables exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := run(opts, "migrate", "status", withDB(opts, func(_ context.Context, db *gorm.DB) ([]string, error) {
				return tableStatus(db)
			}))
			return err
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "plan",
		Short: "List the tables migrate up manages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := run(opts, "migrate", "plan", func(context.Context) ([]string, error) {
				details := make([]string, 0, len(managedTables()))
				for _, tbl := range managedTables() {
					details = append(details, fmt.Sprintf("%s (%T)", tbl.name, tbl.model))
				}
				return details, nil
			})
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
		_, db, closeFn, err := loadConfigDB(opts.envFile)
		defer closeFn()
		if err != nil {
			return nil, err
		}
		return fn(ctx, db)
	}
}

func loadConfigDB(envFile string) (string, *gorm.DB, func(), error) {
	cfg, db, closeFn, err := common.LoadConfigDB(envFile)
	if err != nil {
		return "", nil, closeFn, err
	}
	return cfg.Env, db, closeFn, nil
}

func tableStatus(db *gorm.DB) ([]string, error) {
	details := make([]string, 0, len(managedTables()))
	for _, tbl := range managedTables() {
		state := "missing"
		if db.Migrator().HasTable(tbl.model) {
			state = "present"
		}
		details = append(details, tbl.name+": "+state)
	}
	return details, nil
}
