package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studycal/internal/config"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Listen, cfg.Listen)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.RefreshCron, again.RefreshCron)
	assert.Equal(t, cfg.Conflict, again.Conflict)
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte(`
timezone: Europe/Berlin
week_start: friday
store:
  driver: sqlite
conflict:
  buffer_minutes: -5
  latest_hour: 30
ics:
  - id: uni
    url: https://example.com/uni.ics
  - id: exams
    url: https://example.com/exams.ics
    kind: exam
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
	assert.Equal(t, "monday", cfg.WeekStart)
	assert.Equal(t, "file", cfg.Store.Driver)
	assert.Equal(t, "./var/records.yaml", cfg.Store.Path)
	assert.Equal(t, 0, cfg.Conflict.BufferMinutes)
	assert.Equal(t, 22, cfg.Conflict.LatestHour)
	assert.Equal(t, 0.5, cfg.Conflict.MajorityRatio)
	assert.Equal(t, []string{"schedule", "exam"}, cfg.Conflict.BufferTypes)
	assert.Equal(t, 120, cfg.ExamMinutes)
	require.Len(t, cfg.ICS, 2)
	assert.Equal(t, "schedule", cfg.ICS[0].Kind)
	assert.Equal(t, "exam", cfg.ICS[1].Kind)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: 127.0.0.1:9000\n"), 0o600))

	t.Setenv(config.EnvListen, "0.0.0.0:8181")
	t.Setenv(config.EnvDBDSN, "postgres://planner@localhost/studycal")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8181", cfg.Listen)
	assert.Equal(t, "postgres://planner@localhost/studycal", cfg.Store.DSN)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "0.0.0.0")
}

func TestEmptyPath(t *testing.T) {
	_, err := config.Load("")
	assert.ErrorIs(t, err, config.ErrEmptyPath)
	assert.ErrorIs(t, config.Save("", config.DefaultConfig()), config.ErrEmptyPath)
}
