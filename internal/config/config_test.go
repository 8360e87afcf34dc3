package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "0.0.0.0", cfg.ServerHost)
	assert.Equal(t, "8000", cfg.ServerPort)
	assert.Equal(t, "9090", cfg.MetricsPort)
	assert.Equal(t, "Fiat Panda", cfg.SearchTerm)
	assert.Contains(t, cfg.SearchURL, "bilbasen.dk/brugt/bil/fiat/panda")
	assert.Equal(t, 3, cfg.MaxPages)
	assert.Equal(t, time.Second, cfg.RequestDelayMin)
	assert.Equal(t, 3*time.Second, cfg.RequestDelayMax)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 7, cfg.CleanupDays)

	assert.Equal(t, 0.40, cfg.Scoring.Weights.Price)
	assert.Equal(t, 0.25, cfg.Scoring.Weights.Year)
	assert.Equal(t, 0.25, cfg.Scoring.Weights.Kilometers)
	assert.Equal(t, 0.10, cfg.Scoring.Weights.Condition)
	assert.Equal(t, 5.0, cfg.Scoring.WinsorizeLowerPct)
	assert.Equal(t, 95.0, cfg.Scoring.WinsorizeUpperPct)

	assert.NoError(t, cfg.Scoring.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("MAX_PAGES", "7")
	t.Setenv("REQUEST_DELAY_MIN", "250ms")
	t.Setenv("SCORE_WEIGHT_PRICE", "0.5")
	t.Setenv("SCORE_WEIGHT_CONDITION", "0.0")
	t.Setenv("SCRAPE_ON_START", "true")

	cfg := Load()

	assert.Equal(t, "8081", cfg.ServerPort)
	assert.Equal(t, 7, cfg.MaxPages)
	assert.Equal(t, 250*time.Millisecond, cfg.RequestDelayMin)
	assert.Equal(t, 0.5, cfg.Scoring.Weights.Price)
	assert.Equal(t, 0.0, cfg.Scoring.Weights.Condition)
	assert.True(t, cfg.ScrapeOnStart)
}

func TestLoad_InvalidEnvValuesFallBack(t *testing.T) {
	t.Setenv("MAX_PAGES", "many")
	t.Setenv("REQUEST_DELAY_MIN", "soon")
	t.Setenv("SCORE_WEIGHT_PRICE", "heavy")

	cfg := Load()

	assert.Equal(t, 3, cfg.MaxPages)
	assert.Equal(t, time.Second, cfg.RequestDelayMin)
	assert.Equal(t, 0.40, cfg.Scoring.Weights.Price)
}

func TestLoad_ScoringProfile(t *testing.T) {
	profile := `
weights:
  price: 0.30
  year: 0.30
  kilometers: 0.30
  condition: 0.10
winsorize_lower_pct: 10
winsorize_upper_pct: 90
`
	path := filepath.Join(t.TempDir(), "scoring.yaml")
	require.NoError(t, os.WriteFile(path, []byte(profile), 0o644))
	t.Setenv("SCORING_CONFIG", path)

	cfg := Load()

	assert.Equal(t, 0.30, cfg.Scoring.Weights.Price)
	assert.Equal(t, 0.30, cfg.Scoring.Weights.Year)
	assert.Equal(t, 10.0, cfg.Scoring.WinsorizeLowerPct)
	assert.Equal(t, 90.0, cfg.Scoring.WinsorizeUpperPct)
}

func TestLoad_EnvBeatsProfile(t *testing.T) {
	profile := "weights:\n  price: 0.30\n  year: 0.30\n  kilometers: 0.30\n  condition: 0.10\n"
	path := filepath.Join(t.TempDir(), "scoring.yaml")
	require.NoError(t, os.WriteFile(path, []byte(profile), 0o644))
	t.Setenv("SCORING_CONFIG", path)
	t.Setenv("SCORE_WEIGHT_PRICE", "0.45")

	cfg := Load()

	assert.Equal(t, 0.45, cfg.Scoring.Weights.Price)
	assert.Equal(t, 0.30, cfg.Scoring.Weights.Year)
}
