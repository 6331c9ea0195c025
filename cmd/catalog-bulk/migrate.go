package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/openpim/catalog-bulk/internal/config"
	"github.com/openpim/catalog-bulk/internal/jobs"
	"github.com/openpim/catalog-bulk/internal/store"
	"github.com/openpim/catalog-bulk/pkg/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the db",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, done, err := setup()
		if err != nil {
			return fmt.Errorf("reading configuration: %w", err)
		}
		defer done()

		zap.S().Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			return fmt.Errorf("initializing data store: %w", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		if err := migrate(cmd.Context(), cfg, db, s); err != nil {
			return err
		}
		zap.S().Info("Db migrated")

		return nil
	},
}

// migrate runs the goose and river migrations on postgres. sqlite databases are
// local and disposable, they get the schema from the models.
func migrate(ctx context.Context, cfg *config.Config, db *gorm.DB, s store.Store) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if cfg.Database.Type != store.TypePgsql {
		if err := s.InitialMigration(ctx); err != nil {
			return fmt.Errorf("running initial migration: %w", err)
		}
		return nil
	}

	pool, err := jobs.NewPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening queue pool: %w", err)
	}
	defer pool.Close()

	if err := migrations.MigrateStore(ctx, db, cfg.Service.MigrationFolder, pool); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
