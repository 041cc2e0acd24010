package telemetry_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqtylab/cupcake/internal/telemetry"
)

func TestProvider_WritesSpanTreeOnRootCompletion(t *testing.T) {
	dir := t.TempDir()
	p := telemetry.New("cupcake-test", dir)

	ctx, root := p.StartInvocation(context.Background(), "pre-tool")
	_, child := p.StartSpan(ctx, "route")
	child.End()
	root.End()

	require.NoError(t, p.Shutdown(context.Background()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	raw, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)

	var tree []map[string]any
	require.NoError(t, json.Unmarshal(raw, &tree))
	require.Len(t, tree, 1)
	assert.Equal(t, "cupcake.evaluate", tree[0]["name"])

	children, ok := tree[0]["children"].([]any)
	require.True(t, ok)
	require.Len(t, children, 1)
	assert.Equal(t, "route", children[0].(map[string]any)["name"])
}

func TestProvider_EmptyDebugDirSkipsFileWrite(t *testing.T) {
	p := telemetry.New("cupcake-test", "")
	ctx, root := p.StartInvocation(context.Background(), "pre-tool")
	_ = ctx
	root.End()
	require.NoError(t, p.Shutdown(context.Background()))
}
