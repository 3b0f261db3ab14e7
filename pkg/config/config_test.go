package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(quietLogger())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.True(t, cfg.HTTP.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Analysis.SessionGap)
	assert.Equal(t, 10000, cfg.Analysis.LargeInputThreshold)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9191")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ANALYSIS_SESSION_GAP", "45m")
	t.Setenv("ANALYSIS_TOP_N", "5")

	cfg, err := Load(quietLogger())
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.HTTP.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 45*time.Minute, cfg.Analysis.SessionGap)
	assert.Equal(t, 5, cfg.Analysis.TopN)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("LOG_LEVEL", "shouting")
	t.Setenv("LOG_FORMAT", "xml")
	t.Setenv("ANALYSIS_TOP_N", "-2")

	cfg, err := Load(quietLogger())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 20, cfg.Analysis.TopN)
}

func TestLoadConfigFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chatlytics.yaml")
	contents := []byte("http:\n  port: 7070\nanalysis:\n  top_n: 12\n")
	require.NoError(t, os.WriteFile(path, contents, 0o644))

	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load(quietLogger())
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.HTTP.Port)
	assert.Equal(t, 12, cfg.Analysis.TopN)
}

func TestValidateRejectsBadPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "70000")

	_, err := Load(quietLogger())
	assert.Error(t, err)
}

func TestToAnalytics(t *testing.T) {
	section := AnalysisConfig{
		SessionGap:             30 * time.Minute,
		RelationshipSessionGap: 30 * time.Minute,
		RapidFireGap:           10 * time.Second,
		ReciprocityWindow:      2 * time.Hour,
		ResponseCeiling:        24 * time.Hour,
		ResponseProfileCeiling: 48 * time.Hour,
		TopN:                   20,
		LargeInputThreshold:    10000,
		ChunkSize:              2500,
	}

	out := section.ToAnalytics()
	assert.Equal(t, 30*time.Minute, out.SessionGap)
	assert.Equal(t, 10*time.Second, out.RapidFireGap)
	assert.Equal(t, 2500, out.ChunkSize)
}
