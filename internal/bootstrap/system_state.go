package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

const systemBootstrapStateTable = "system_bootstrap_state"

const (
	StatusInitializing = "initializing"
	StatusActive       = "active"
)

var ErrBootstrapStateNotFound = errors.New("system bootstrap state not found; run `waterline migrate`")

type SystemBootstrapState struct {
	Status        string     `gorm:"column:status"`
	SchemaVersion string     `gorm:"column:schema_version"`
	Checksum      *string    `gorm:"column:checksum"`
	ActivatedAt   *time.Time `gorm:"column:activated_at"`
}

func loadSystemBootstrapState(ctx context.Context, db *gorm.DB) (*SystemBootstrapState, error) {
	if db == nil {
		return nil, errors.New("bootstrap state requires database handle")
	}

	var state SystemBootstrapState
	result := db.WithContext(ctx).Table(systemBootstrapStateTable).
		Select("status, schema_version, checksum, activated_at").
		Where("id = ?", true).
		Limit(1).
		Scan(&state)
	if result.Error != nil {
		if !db.Migrator().HasTable(systemBootstrapStateTable) {
			return nil, ErrBootstrapStateNotFound
		}
		return nil, fmt.Errorf("load bootstrap state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrBootstrapStateNotFound
	}

	state.Status = strings.ToLower(strings.TrimSpace(state.Status))
	state.SchemaVersion = strings.TrimSpace(state.SchemaVersion)
	if state.Checksum != nil {
		trimmed := strings.TrimSpace(*state.Checksum)
		state.Checksum = &trimmed
	}
	return &state, nil
}
