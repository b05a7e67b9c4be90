package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "thistle", cfg.AppName)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, ResidualPerList, cfg.ResidualMode)
	assert.True(t, cfg.ScoringEnabled)
	assert.False(t, cfg.StrictDuplicateIDs)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("yaml then env", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "thistle.yaml")
		require.NoError(t, os.WriteFile(path, []byte("workers: 8\nresidual_mode: combined\noutput_dir: /tmp/run\n"), 0o600))

		t.Setenv("WORKERS", "2")
		t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.Workers)
		assert.Equal(t, ResidualCombined, cfg.ResidualMode)
		assert.Equal(t, "/tmp/run", cfg.OutputDir)
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	})

	t.Run("env file", func(t *testing.T) {
		dir := t.TempDir()
		envFile := filepath.Join(dir, ".env")
		require.NoError(t, os.WriteFile(envFile, []byte("THISTLE_TEST_ONLY=1\nSTRICT_DUPLICATE_IDS=true\n"), 0o600))
		t.Cleanup(func() {
			os.Unsetenv("THISTLE_TEST_ONLY")
			os.Unsetenv("STRICT_DUPLICATE_IDS")
		})

		cfg, err := Load("", envFile, filepath.Join(dir, "missing.env"))
		require.NoError(t, err)
		assert.True(t, cfg.StrictDuplicateIDs)
	})

	t.Run("yaml keeps values the defaults would overwrite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "thistle.yaml")
		require.NoError(t, os.WriteFile(path, []byte("app_name: screening\nport: 8080\n"), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "screening", cfg.AppName)
		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, 4, cfg.Workers)
	})

	t.Run("missing yaml file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad int", func(t *testing.T) {
		t.Setenv("WORKERS", "many")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("invalid residual mode", func(t *testing.T) {
		t.Setenv("RESIDUAL_MODE", "both")
		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ResidualMode")
	})
}
