package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.ListenAddr)
	assert.Equal(t, 40*time.Second, cfg.NightDuration())
	assert.Equal(t, 90*time.Second, cfg.DayDuration())
	assert.Equal(t, 30*time.Second, cfg.VoteDuration())
	assert.Equal(t, 6*time.Second, cfg.ResultDelay())
	assert.Equal(t, 80, cfg.DetectiveAccuracy)
	assert.Equal(t, 8, cfg.MaxConnsPerIP)
	assert.False(t, cfg.Debug)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MAFIAD_ADDR", ":9999")
	t.Setenv("MAFIAD_NIGHT_SECONDS", "15")
	t.Setenv("MAFIAD_DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, 15*time.Second, cfg.NightDuration())
	assert.True(t, cfg.Debug)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("MAFIAD_DAY_SECONDS", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadAccuracy(t *testing.T) {
	t.Setenv("MAFIAD_DETECTIVE_ACCURACY", "120")
	_, err := Load()
	assert.Error(t, err)
}
