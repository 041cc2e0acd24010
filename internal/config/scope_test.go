package config_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqtylab/cupcake/internal/config"
)

func TestProjectScope_PathsAreUnderDotCupcake(t *testing.T) {
	s := config.ProjectScope("/repo")
	assert.Equal(t, "/repo/.cupcake", s.Dir)
	assert.Equal(t, "/repo/.cupcake/rulebook.yml", s.RulebookPath())
	assert.Equal(t, "/repo/.cupcake/policies/claude-code", s.PoliciesDir("claude-code"))
	assert.False(t, s.Global)
}

func TestGlobalScope_ResolvesUnderUserConfigDir(t *testing.T) {
	root, err := filepath.Abs(".")
	require.NoError(t, err)
	t.Setenv("XDG_CONFIG_HOME", root)

	s, err := config.GlobalScope()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "cupcake"), s.Dir)
	assert.True(t, s.Global)
}

func TestScope_ExistsFalseForMissingDir(t *testing.T) {
	s := config.ProjectScope(t.TempDir())
	assert.False(t, s.Exists())
}
