package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqtylab/cupcake/internal/config"
)

func TestLoadWatchdogConfig_MissingFileIsNotAnError(t *testing.T) {
	wc, err := config.LoadWatchdogConfig(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	assert.Equal(t, &config.WatchdogConfig{}, wc)
}

func TestLoadWatchdogConfig_ParsesFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"model":"gpt-4","temperature":0.2}`), 0o644))

	wc, err := config.LoadWatchdogConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", wc.Model)
	assert.Equal(t, 0.2, wc.Temperature)
}
