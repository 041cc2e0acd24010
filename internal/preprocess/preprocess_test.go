package preprocess_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqtylab/cupcake/internal/preprocess"
)

func TestProcess_HarnessFieldMapping(t *testing.T) {
	p := preprocess.New("generic")
	event := map[string]any{
		"tool": "Bash",
		"args": map[string]any{"command": "ls"},
	}

	out := p.Process(event)
	assert.Equal(t, "Bash", out["tool_name"])
	assert.Equal(t, "Bash", out["tool"], "original field must not be stripped")
}

func TestProcess_ContentUnification(t *testing.T) {
	p := preprocess.New("generic")
	event := map[string]any{"content": "hello world"}

	out := p.Process(event)
	assert.Equal(t, "hello world", out["new_string"])
	assert.Equal(t, "hello world", out["content"])
}

func TestProcess_SymlinkResolution(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	link := filepath.Join(dir, "link.txt")
	require.NoError(t, os.Symlink(target, link))

	p := preprocess.New("generic")
	out := p.Process(map[string]any{"file_path": link})

	assert.Equal(t, target, out["resolved_file_path"])
	assert.Equal(t, true, out["is_symlink"])
	assert.Equal(t, link, out["file_path"], "original field must not be stripped")
}

func TestProcess_NonSymlinkPath(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	p := preprocess.New("generic")
	out := p.Process(map[string]any{"file_path": target})

	assert.Equal(t, false, out["is_symlink"])
}

func TestProcess_WhitespaceNormalization(t *testing.T) {
	p := preprocess.New("generic")
	event := map[string]any{
		"tool_input": map[string]any{"command": "rm   -rf    /"},
	}

	out := p.Process(event)
	toolInput := out["tool_input"].(map[string]any)
	assert.Equal(t, "rm -rf /", toolInput["command"])
}

func TestProcess_HarnessTagAttached(t *testing.T) {
	p := preprocess.New("claude-code")
	out := p.Process(map[string]any{})
	assert.Equal(t, "claude-code", out["harness"])
}

func TestProcess_Idempotent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	p := preprocess.New("generic")
	event := map[string]any{
		"tool":       "Bash",
		"args":       map[string]any{"command": "ls  -la"},
		"content":    "hello",
		"file_path":  target,
		"tool_input": map[string]any{"command": "ls   -la"},
	}

	once := p.Process(event)
	twice := p.Process(once)

	assert.Equal(t, once, twice)
}
