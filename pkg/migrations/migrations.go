package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed sql/*.sql
var embedded embed.FS

// Source returns the migration files. An empty folder selects the embedded set.
func Source(migrationFolder string) (fs.FS, error) {
	if migrationFolder == "" {
		return fs.Sub(embedded, "sql")
	}

	fi, err := os.Stat(migrationFolder)
	if err != nil {
		return nil, err
	}

	if !fi.Mode().IsDir() {
		return nil, fmt.Errorf("failed to open migration folder: %s is not a folder", migrationFolder)
	}

	return os.DirFS(migrationFolder), nil
}

// MigrateStore applies the schema migrations, then the river queue tables when a pool is given.
func MigrateStore(ctx context.Context, db *gorm.DB, migrationFolder string, pgxPool *pgxpool.Pool) error {
	goose.SetLogger(&logger{})

	source, err := Source(migrationFolder)
	if err != nil {
		return err
	}
	goose.SetBaseFS(source)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return err
	}

	if pgxPool == nil {
		return nil
	}

	if err := migrateRiver(ctx, pgxPool); err != nil {
		return fmt.Errorf("river migrations: %w", err)
	}

	return nil
}

func migrateRiver(ctx context.Context, pool *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return err
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return err
	}
	for _, v := range res.Versions {
		zap.S().Named("migrations").Infof("river migration %d applied", v.Version)
	}
	return nil
}

// logger routes goose output through zap.
type logger struct{}

func (m *logger) Printf(format string, v ...interface{}) { zap.S().Infof(format, v...) }
func (m *logger) Fatalf(format string, v ...interface{}) { zap.S().Fatalf(format, v...) }
