package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/moneyplanner/internal/common"
	"github.com/Veraticus/moneyplanner/internal/phase"
)

func newViper(values map[string]any) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper(nil))
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".local/share/planner/planner.db"), cfg.Database.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, phase.DefaultConfig(), cfg.Phase)
	assert.Equal(t, 3, cfg.Income.Window)
	assert.InDelta(t, 0.05, cfg.Income.ChangeThreshold, 1e-9)
	assert.Equal(t, ":5001", cfg.Server.Addr)
	assert.Equal(t, "user-1", cfg.User.DefaultID)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_DevModePhaseWindows(t *testing.T) {
	cfg, err := Load(newViper(map[string]any{"dev_mode": true}))
	require.NoError(t, err)
	assert.Equal(t, phase.DevConfig(), cfg.Phase)

	cfg, err = Load(newViper(map[string]any{
		"dev_mode":               true,
		"phase.observation_days": 3,
		"phase.automation_gate":  true,
	}))
	require.NoError(t, err)
	assert.Equal(t, phase.Config{ObservationDays: 3, BudgetCycleDays: 1, AutomationGate: true}, cfg.Phase)
}

func TestLoad_PlaidFromEnvironment(t *testing.T) {
	t.Setenv("PLAID_CLIENT_ID", "env-id")
	t.Setenv("PLAID_SECRET", "env-secret")

	cfg, err := Load(newViper(map[string]any{"plaid.client_id": "file-id"}))
	require.NoError(t, err)

	assert.Equal(t, "file-id", cfg.Plaid.ClientID)
	assert.Equal(t, "env-secret", cfg.Plaid.Secret)
	assert.True(t, cfg.Plaid.Configured())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		values map[string]any
		name   string
	}{
		{name: "log level", values: map[string]any{"logging.level": "loud"}},
		{name: "log format", values: map[string]any{"logging.format": "xml"}},
		{name: "window", values: map[string]any{"income.window": 0}},
		{name: "threshold", values: map[string]any{"income.change_threshold": 1.5}},
		{name: "negative observation", values: map[string]any{"phase.observation_days": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newViper(tt.values))
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("PLANNER_TEST_DIR", "/data")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "db.sqlite"), ExpandPath("~/db.sqlite"))
	assert.Equal(t, "/data/db.sqlite", ExpandPath("$PLANNER_TEST_DIR/db.sqlite"))
}

func TestBindEnv(t *testing.T) {
	t.Setenv("PLANNER_DATABASE_PATH", "/tmp/env.db")
	t.Setenv("PLANNER_SERVER_ADDR", ":9000")

	v := viper.New()
	BindEnv(v)
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env.db", cfg.Database.Path)
	assert.Equal(t, ":9000", cfg.Server.Addr)
}
