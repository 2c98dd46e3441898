package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"uniqbot/internal/domain"
	"uniqbot/internal/infra"
	"uniqbot/internal/sqlinline"
)

// PresetRepositoryPG reads transform presets from PostgreSQL. Presets are
// read-only at run time; workers may load them concurrently.
type PresetRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewPresetRepository constructs a preset repository over the given executor.
func NewPresetRepository(sql infra.SQLExecutor) *PresetRepositoryPG {
	return &PresetRepositoryPG{sql: sql}
}

// Get loads the preset with the given id. A missing id is a configuration
// error for the referencing job.
func (r *PresetRepositoryPG) Get(ctx context.Context, id int) (domain.Preset, error) {
	return r.scanPreset(r.sql.QueryRow(ctx, sqlinline.QSelectPreset, id), id)
}

// GetDefault loads the preset flagged as default.
func (r *PresetRepositoryPG) GetDefault(ctx context.Context) (domain.Preset, error) {
	return r.scanPreset(r.sql.QueryRow(ctx, sqlinline.QSelectDefaultPreset), 0)
}

// SeedDefault installs the built-in preset when no default exists yet.
// Idempotent; safe to run at every startup.
func (r *PresetRepositoryPG) SeedDefault(ctx context.Context, preset domain.Preset) error {
	methods, err := json.Marshal(preset.Methods)
	if err != nil {
		return fmt.Errorf("encode preset methods: %w", err)
	}
	if _, err := r.sql.Exec(ctx, sqlinline.QSeedDefaultPreset, preset.Name, methods); err != nil {
		return fmt.Errorf("seed default preset: %w", err)
	}
	return nil
}

func (r *PresetRepositoryPG) scanPreset(row interface{ Scan(...any) error }, id int) (domain.Preset, error) {
	var (
		preset      domain.Preset
		methodsJSON []byte
	)
	if err := row.Scan(&preset.ID, &preset.Name, &methodsJSON); err != nil {
		if infra.IsNoRows(err) {
			return domain.Preset{}, fmt.Errorf("preset %d: %w", id, domain.ErrUnknownPreset)
		}
		return domain.Preset{}, fmt.Errorf("select preset: %w", err)
	}
	if err := json.Unmarshal(methodsJSON, &preset.Methods); err != nil {
		return domain.Preset{}, fmt.Errorf("decode preset %d methods: %w", preset.ID, err)
	}
	return preset, nil
}
