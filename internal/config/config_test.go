package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverlaysFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
engine:
  statistical_thresholds:
    price_deviation: 2.5
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2.5, cfg.Engine.StatisticalThresholds.PriceDeviation)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, Default().Engine.PatternRecognition, cfg.Engine.PatternRecognition)
	assert.Equal(t, Default().Engine.Alerting.MinSeverity, cfg.Engine.Alerting.MinSeverity)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidEngineConfigFailsFast(t *testing.T) {
	path := writeConfig(t, `
engine:
  alerting:
    min_severity: urgent
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_severity")
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "engine: [not a mapping")
	_, err := Load(path)
	require.Error(t, err)
}
