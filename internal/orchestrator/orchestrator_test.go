package orchestrator_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqtylab/cupcake/internal/harness"
	"github.com/eqtylab/cupcake/internal/orchestrator"
	"github.com/eqtylab/cupcake/internal/policy"
	"github.com/eqtylab/cupcake/internal/preprocess"
	"github.com/eqtylab/cupcake/internal/router"
	"github.com/eqtylab/cupcake/internal/telemetry"
)

func newTestOrchestrator() *orchestrator.Orchestrator {
	return &orchestrator.Orchestrator{
		Preprocessor: preprocess.New("generic"),
		Global:       orchestrator.Layer{Name: "global", Router: router.Build(nil)},
		Project:      orchestrator.Layer{Name: "project", Router: router.Build(nil)},
		Telemetry:    telemetry.New("cupcake-test", ""),
		Adapter:      harness.PreTool{},
		Strict:       true,
	}
}

func TestRun_NoRoutesMatched_AllowsWithEmptyResponse(t *testing.T) {
	o := newTestOrchestrator()
	var out bytes.Buffer

	code := o.Run(context.Background(), []byte(`{"hook_event_name":"PreToolUse","tool_name":"Bash"}`), &out)

	assert.Equal(t, harness.ExitAllow, code)
	assert.Equal(t, "{}\n", out.String())
}

func TestRun_MalformedEventJSON_FailsOpen(t *testing.T) {
	o := newTestOrchestrator()
	var out bytes.Buffer

	code := o.Run(context.Background(), []byte(`not json`), &out)

	assert.Equal(t, harness.ExitAllow, code)
	assert.Contains(t, out.String(), "additionalContext")
}

func TestRun_RoutedButNoCompiledModule_TreatsAsEmptyDecisionSet(t *testing.T) {
	o := newTestOrchestrator()
	o.Global.Router = router.Build([]policy.Metadata{
		{PolicyID: "system.evaluate", RequiredEvents: []string{"PreToolUse"}},
	})
	var out bytes.Buffer

	code := o.Run(context.Background(), []byte(`{"hook_event_name":"PreToolUse","tool_name":"Bash"}`), &out)

	require.Equal(t, harness.ExitAllow, code)
	assert.Equal(t, "{}\n", out.String())
}
