package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	authdomain "github.com/railzwaylabs/waterline/internal/auth/domain"
	customerdomain "github.com/railzwaylabs/waterline/internal/customer/domain"
	deliverydomain "github.com/railzwaylabs/waterline/internal/delivery/domain"
	invoicedomain "github.com/railzwaylabs/waterline/internal/invoice/domain"
	productdomain "github.com/railzwaylabs/waterline/internal/product/domain"
	schedulerdomain "github.com/railzwaylabs/waterline/internal/scheduler/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Run brings the schema up to date for the connection's dialect and activates
// the bootstrap state checked by the schema gate. PostgreSQL runs the embedded
// SQL migrations; other dialects are migrated from the gorm models.
func Run(ctx context.Context, conn *gorm.DB, log *zap.Logger) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	latestVersion, err := LatestMigrationVersion()
	if err != nil {
		return err
	}
	expectedVersion := fmt.Sprintf("%d", latestVersion)

	expectedChecksum, err := MigrationsChecksum()
	if err != nil {
		return err
	}

	dialect := conn.Dialector.Name()
	switch dialect {
	case "postgres":
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(ctx, sqlDB, log); err != nil {
			return err
		}
	default:
		if err := autoMigrate(ctx, conn); err != nil {
			return err
		}
	}

	if err := activateSystemBootstrapState(ctx, conn, expectedVersion, expectedChecksum); err != nil {
		return err
	}

	if log != nil {
		log.Info("schema migrated",
			zap.String("dialect", dialect),
			zap.String("version", expectedVersion),
		)
	}
	return nil
}

// RunMigrations applies all embedded migrations under a PostgreSQL advisory lock.
func RunMigrations(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	lock, err := newAdvisoryLock().acquire(ctx, db)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("failed to release migration lock", zap.Error(err))
		}
	}()

	latestVersion, err := LatestMigrationVersion()
	if err != nil {
		return err
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if _, err := ensureNotDirty(migrator); err != nil {
		return err
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}

	currentVersion, err := ensureNotDirty(migrator)
	if err != nil {
		return err
	}

	if currentVersion != latestVersion {
		return fmt.Errorf("schema version mismatch after migrate: got %d want %d", currentVersion, latestVersion)
	}
	return nil
}

func schemaModels() []any {
	return []any{
		&bootstrapStateRow{},
		&authdomain.User{},
		&customerdomain.Customer{},
		&productdomain.Product{},
		&deliverydomain.Delivery{},
		&deliverydomain.Entry{},
		&invoicedomain.Invoice{},
		&schedulerdomain.JobRun{},
	}
}

// autoMigrate creates missing tables and adds missing columns. Existing columns
// are never altered: sqlite rebuilds the whole table to alter one, and that
// rebuild cannot parse numeric(p,s) column types.
func autoMigrate(ctx context.Context, conn *gorm.DB) error {
	tx := conn.WithContext(ctx)
	migrator := tx.Migrator()

	for _, model := range schemaModels() {
		if !migrator.HasTable(model) {
			if err := migrator.CreateTable(model); err != nil {
				return fmt.Errorf("auto migrate: %w", err)
			}
			continue
		}

		stmt := &gorm.Statement{DB: tx}
		if err := stmt.Parse(model); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		for _, column := range stmt.Schema.DBNames {
			if migrator.HasColumn(model, column) {
				continue
			}
			if err := migrator.AddColumn(model, column); err != nil {
				return fmt.Errorf("auto migrate %s.%s: %w", stmt.Schema.Table, column, err)
			}
		}
	}
	return nil
}

func ensureNotDirty(migrator *migrate.Migrate) (uint, error) {
	if migrator == nil {
		return 0, errors.New("migrator is required")
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, nil
		}
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("database migrations are dirty at version %d", version)
	}
	return version, nil
}
