package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eqtylab/cupcake/internal/policy"
)

func TestParseVerbs_AllKinds(t *testing.T) {
	raw := []byte(`[
		{"kind":"deny","reason":"no","rule_id":"R1","severity":"high"},
		{"kind":"ask","reason":"confirm","question":"proceed?","rule_id":"R2","severity":"medium"},
		{"kind":"add_context","text":"fyi"},
		{"kind":"modify","reason":"rewrite","rule_id":"R3","priority":10,"updated_input":{"x":1}},
		{"kind":"allow_override","reason":"trusted","rule_id":"R1","broad_scope":true},
		{"kind":"halt","reason":"stop","rule_id":"R4","severity":"critical"}
	]`)

	set, diagnostics := parseVerbs(raw, policy.LayerProject)
	assert.Empty(t, diagnostics)
	assert.Len(t, set.Denials, 1)
	assert.Len(t, set.Asks, 1)
	assert.Len(t, set.Contexts, 1)
	assert.Len(t, set.Modifications, 1)
	assert.Len(t, set.AllowOverrides, 1)
	assert.Len(t, set.Halts, 1)
	assert.Equal(t, policy.LayerProject, set.Layer)
	assert.True(t, set.AllowOverrides[0].BroadScope)
}

func TestParseVerbs_MissingRuleIDIsDroppedWithDiagnostic(t *testing.T) {
	raw := []byte(`[{"kind":"deny","reason":"no rule id here"}]`)

	set, diagnostics := parseVerbs(raw, policy.LayerGlobal)
	assert.Empty(t, set.Denials)
	assert.Len(t, diagnostics, 1)
}

func TestParseVerbs_UnknownKindDroppedWithDiagnostic(t *testing.T) {
	raw := []byte(`[{"kind":"teleport","reason":"??","rule_id":"R9"}]`)

	set, diagnostics := parseVerbs(raw, policy.LayerGlobal)
	assert.True(t, set.Empty())
	assert.Len(t, diagnostics, 1)
}

func TestParseVerbs_OneMalformedVerbDoesNotDropOthers(t *testing.T) {
	raw := []byte(`[
		{"kind":"deny"},
		{"kind":"deny","reason":"valid","rule_id":"R1"}
	]`)

	set, diagnostics := parseVerbs(raw, policy.LayerProject)
	assert.Len(t, set.Denials, 1)
	assert.Equal(t, "R1", set.Denials[0].RuleIDV)
	assert.Len(t, diagnostics, 1)
}

func TestParseVerbs_MalformedArrayReturnsDiagnosticNotPanic(t *testing.T) {
	set, diagnostics := parseVerbs([]byte(`not json`), policy.LayerProject)
	assert.True(t, set.Empty())
	assert.Len(t, diagnostics, 1)
}
