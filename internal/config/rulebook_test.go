package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqtylab/cupcake/internal/config"
)

const sampleRulebook = `
builtins:
  bash_guard:
    enabled: true
    params:
      deny_patterns: ["rm -rf /"]
  secrets_scan:
    enabled: false
signals:
  git_status:
    command: "git status --porcelain"
    timeout_seconds: 3
actions:
  notify_slack:
    command: "notify-slack.sh"
    when: "decision.kind == 'deny'"
watchdog: true
`

func writeRulebook(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, config.RulebookFile)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_ParsesAllSections(t *testing.T) {
	path := writeRulebook(t, sampleRulebook)

	rb, err := config.Load(path)
	require.NoError(t, err)

	assert.True(t, rb.Builtins["bash_guard"].Enabled)
	assert.False(t, rb.Builtins["secrets_scan"].Enabled)
	assert.Equal(t, []string{"bash_guard"}, rb.EnabledBuiltins())

	sig := rb.Signals["git_status"]
	assert.Equal(t, "git_status", sig.Name)
	assert.Equal(t, "git status --porcelain", sig.Command)
	assert.Equal(t, 3*1e9, float64(sig.Timeout))

	act := rb.Actions["notify_slack"]
	assert.Equal(t, "notify-slack.sh", act.Command)
	assert.Contains(t, act.When, "deny")

	assert.True(t, rb.Watchdog)
}

func TestLoad_MissingFileIsConfigError(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	var cfgErr *config.Error
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoad_SignalMissingCommandFailsValidation(t *testing.T) {
	path := writeRulebook(t, "signals:\n  broken:\n    timeout_seconds: 1\n")
	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoad_ActionMissingCommandFailsValidation(t *testing.T) {
	path := writeRulebook(t, "actions:\n  broken:\n    when: \"true\"\n")
	_, err := config.Load(path)
	require.Error(t, err)
}
