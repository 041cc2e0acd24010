package signal_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqtylab/cupcake/internal/signal"
)

func TestCollect_JSONOutput(t *testing.T) {
	defs := map[string]signal.Definition{
		"git_branch": {Name: "git_branch", Command: `echo '{"branch":"main"}'`, Timeout: time.Second},
	}
	r := signal.New(defs, nil, nil)

	results := r.Collect(context.Background(), []string{"git_branch"}, []byte(`{}`))
	require.Contains(t, results, "git_branch")
	assert.Nil(t, results["git_branch"].Error)
	assert.Equal(t, map[string]any{"branch": "main"}, results["git_branch"].Value)
}

func TestCollect_NonJSONOutputIsRawString(t *testing.T) {
	defs := map[string]signal.Definition{
		"raw": {Name: "raw", Command: `echo hello`, Timeout: time.Second},
	}
	r := signal.New(defs, nil, nil)

	results := r.Collect(context.Background(), []string{"raw"}, []byte(`{}`))
	assert.Equal(t, "hello", results["raw"].Value)
}

func TestCollect_NonZeroExit(t *testing.T) {
	defs := map[string]signal.Definition{
		"fails": {Name: "fails", Command: `exit 7`, Timeout: time.Second},
	}
	r := signal.New(defs, nil, nil)

	results := r.Collect(context.Background(), []string{"fails"}, []byte(`{}`))
	require.NotNil(t, results["fails"].Error)
	require.NotNil(t, results["fails"].Error.ExitCode)
	assert.Equal(t, 7, *results["fails"].Error.ExitCode)
}

func TestCollect_Timeout(t *testing.T) {
	defs := map[string]signal.Definition{
		"slow": {Name: "slow", Command: `sleep 2`, Timeout: 50 * time.Millisecond},
	}
	r := signal.New(defs, nil, nil)

	start := time.Now()
	results := r.Collect(context.Background(), []string{"slow"}, []byte(`{}`))
	elapsed := time.Since(start)

	require.NotNil(t, results["slow"].Error)
	assert.Equal(t, "timeout", results["slow"].Error.ErrorMsg)
	assert.Less(t, elapsed, time.Second)
}

func TestCollect_AllSignalsRunConcurrently(t *testing.T) {
	defs := map[string]signal.Definition{
		"a": {Name: "a", Command: `sleep 0.2`, Timeout: time.Second},
		"b": {Name: "b", Command: `sleep 0.2`, Timeout: time.Second},
		"c": {Name: "c", Command: `sleep 0.2`, Timeout: time.Second},
	}
	r := signal.New(defs, nil, nil)

	start := time.Now()
	results := r.Collect(context.Background(), []string{"a", "b", "c"}, []byte(`{}`))
	elapsed := time.Since(start)

	assert.Len(t, results, 3)
	// Concurrent execution should take much less than 3x the per-signal sleep.
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestCollect_UnknownSignalNameYieldsError(t *testing.T) {
	r := signal.New(map[string]signal.Definition{}, nil, nil)
	results := r.Collect(context.Background(), []string{"missing"}, []byte(`{}`))
	require.NotNil(t, results["missing"].Error)
}
