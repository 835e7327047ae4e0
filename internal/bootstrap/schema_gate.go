package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/railzwaylabs/waterline/internal/migration"
	"gorm.io/gorm"
)

var (
	ErrBootstrapStateInactive = errors.New("system bootstrap state is not active")
	ErrSchemaVersionMismatch  = errors.New("schema version mismatch")
	ErrSchemaChecksumMismatch = errors.New("schema checksum mismatch")
)

// SchemaGate compares the recorded schema state with the migrations embedded in
// this binary. The server and the scheduler refuse to start on a mismatch, and
// readiness reports it while running.
type SchemaGate interface {
	MustBeActive(ctx context.Context) error
	Expected() SchemaVersion
}

type SchemaVersion struct {
	Version  string `json:"version"`
	Checksum string `json:"checksum"`
}

type schemaGate struct {
	db       *gorm.DB
	expected SchemaVersion
}

func NewSchemaGate(db *gorm.DB) (SchemaGate, error) {
	if db == nil {
		return nil, errors.New("schema gate requires database handle")
	}

	latest, err := migration.LatestMigrationVersion()
	if err != nil {
		return nil, err
	}
	checksum, err := migration.MigrationsChecksum()
	if err != nil {
		return nil, err
	}

	return &schemaGate{
		db: db,
		expected: SchemaVersion{
			Version:  fmt.Sprintf("%d", latest),
			Checksum: checksum,
		},
	}, nil
}

func (g *schemaGate) Expected() SchemaVersion {
	return g.expected
}

func (g *schemaGate) MustBeActive(ctx context.Context) error {
	state, err := loadSystemBootstrapState(ctx, g.db)
	if err != nil {
		return err
	}

	if state.Status != StatusActive {
		return fmt.Errorf("%w: status=%s", ErrBootstrapStateInactive, state.Status)
	}
	if state.SchemaVersion != g.expected.Version {
		return fmt.Errorf("%w: state=%s expected=%s", ErrSchemaVersionMismatch, state.SchemaVersion, g.expected.Version)
	}
	// Rows written before checksums were recorded only carry a version.
	if state.Checksum != nil && strings.TrimSpace(*state.Checksum) != "" && *state.Checksum != g.expected.Checksum {
		return fmt.Errorf("%w: state=%s expected=%s", ErrSchemaChecksumMismatch, *state.Checksum, g.expected.Checksum)
	}
	return nil
}
