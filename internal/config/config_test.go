package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pacekeeper/internal/recurrence"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, 720*time.Hour, cfg.TokenLifetime)
	assert.Equal(t, int64(50), cfg.Engine.LifeReviveCost)
	assert.Equal(t, int64(100), cfg.Engine.GoalReviveCost)
	require.NoError(t, cfg.Validate())

	opts := cfg.Engine.Recurrence()
	assert.Equal(t, 9*60, opts.AnchorMinutes[recurrence.AnchorMorning])
	assert.Equal(t, 21*60, opts.AnchorMinutes[recurrence.AnchorNight])
	assert.Equal(t, 10*60, opts.FallbackStartMinute)
	assert.Equal(t, time.UTC, opts.Location)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	env := "SERVER_PORT=9000\nLIFE_REVIVE_COST=75\nDEFAULT_TIMEZONE=Europe/Lisbon\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644))
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("ANCHOR_MORNING", "07:45")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.ServerPort)
	assert.Equal(t, int64(75), cfg.Engine.LifeReviveCost)
	opts := cfg.Engine.Recurrence()
	assert.Equal(t, "Europe/Lisbon", opts.Location.String())
	assert.Equal(t, 7*60+45, opts.AnchorMinutes[recurrence.AnchorMorning])
}

func TestEngine_BadValuesFallBack(t *testing.T) {
	e := Engine{DefaultTimezone: "Atlantis/Capital", MorningAt: "late", FallbackStartAt: "x"}
	opts := e.Recurrence()
	assert.Equal(t, time.UTC, opts.Location)
	assert.Equal(t, 9*60, opts.AnchorMinutes[recurrence.AnchorMorning])
	assert.Equal(t, 10*60, opts.FallbackStartMinute)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Environment = "production"
	assert.Error(t, cfg.Validate())
	cfg.JWTSecret = "s3cret"
	assert.NoError(t, cfg.Validate())

	cfg.ReportTime = "8am"
	assert.Error(t, cfg.Validate())
}
