package harness_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eqtylab/cupcake/internal/harness"
	"github.com/eqtylab/cupcake/internal/policy"
)

func TestLookup_UnknownFallsBackToPreTool(t *testing.T) {
	assert.Equal(t, harness.TagPreTool, harness.Lookup("some-other-harness").Name())
}

func TestPreTool_AllowNoContext_EmptyObject(t *testing.T) {
	a := harness.PreTool{}
	out := a.Render(policy.Allow())
	assert.Equal(t, map[string]any{}, out)
	assert.Equal(t, harness.ExitAllow, a.ExitCode(policy.Allow(), true))
}

func TestPreTool_AllowWithContext(t *testing.T) {
	a := harness.PreTool{}
	out := a.Render(policy.Allow("hello"))
	assert.Equal(t, map[string]any{
		"hookSpecificOutput": map[string]any{"additionalContext": "hello"},
	}, out)
}

func TestPreTool_Deny_BlocksWithReason(t *testing.T) {
	a := harness.PreTool{}
	fd := policy.FinalDecision{Kind: policy.KindDeny, Reason: "no"}
	out := a.Render(fd)
	assert.Equal(t, map[string]any{"decision": "block", "reason": "no"}, out)
	assert.Equal(t, harness.ExitDenyStrict, a.ExitCode(fd, true))
	assert.Equal(t, harness.ExitAllow, a.ExitCode(fd, false))
}

func TestPreTool_Halt_StopsWithNonzeroExitInStrictMode(t *testing.T) {
	a := harness.PreTool{}
	fd := policy.FinalDecision{Kind: policy.KindHalt, Reason: "catastrophic"}
	out := a.Render(fd)
	assert.Equal(t, map[string]any{"continue": false, "stopReason": "catastrophic"}, out)
	assert.Equal(t, harness.ExitDenyStrict, a.ExitCode(fd, true))
}

func TestPreTool_Modify(t *testing.T) {
	a := harness.PreTool{}
	fd := policy.FinalDecision{Kind: policy.KindModify, UpdatedInput: map[string]any{"command": "safe"}}
	out := a.Render(fd)
	assert.Equal(t, map[string]any{
		"hookSpecificOutput": map[string]any{"updatedInput": map[string]any{"command": "safe"}},
	}, out)
}

func TestBeforeShell_AllowNoContext(t *testing.T) {
	a := harness.BeforeShell{}
	out := a.Render(policy.Allow())
	assert.Equal(t, map[string]any{"permission": "allow"}, out)
}

func TestBeforeShell_Deny(t *testing.T) {
	a := harness.BeforeShell{}
	fd := policy.FinalDecision{Kind: policy.KindDeny, Reason: "blocked"}
	out := a.Render(fd)
	assert.Equal(t, map[string]any{
		"permission":   "deny",
		"userMessage":  "blocked",
		"agentMessage": "blocked",
	}, out)
}

func TestBeforeShell_Ask(t *testing.T) {
	a := harness.BeforeShell{}
	fd := policy.FinalDecision{Kind: policy.KindAsk, Question: "sure?"}
	out := a.Render(fd)
	assert.Equal(t, map[string]any{"permission": "ask", "userMessage": "sure?"}, out)
}

func TestBeforeShell_Modify(t *testing.T) {
	a := harness.BeforeShell{}
	fd := policy.FinalDecision{Kind: policy.KindModify, UpdatedInput: map[string]any{"x": 1}}
	out := a.Render(fd)
	assert.Equal(t, map[string]any{"permission": "allow", "modifiedArgs": map[string]any{"x": 1}}, out)
}

func TestMarshal_ProducesValidJSON(t *testing.T) {
	a := harness.PreTool{}
	raw, err := harness.Marshal(a, policy.Allow())
	assert.NoError(t, err)
	assert.Equal(t, "{}", string(raw))
}
