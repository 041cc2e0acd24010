// Package harness implements the Harness Adapter (spec.md §4.8): the
// boundary that turns a policy.FinalDecision into the JSON response
// shape and process exit code a specific agent harness expects. The
// engine core never encodes harness quirks — every quirk lives here.
//
// Grounded on the teacher's pkg/agent.KernelBridge.Dispatch
// switch-over-tool-name idiom, generalized to a switch over
// policy.DecisionKind per harness.
package harness

import (
	"encoding/json"

	"github.com/eqtylab/cupcake/internal/policy"
)

// Adapter renders a FinalDecision into the harness's expected response
// body and selects the process exit code.
type Adapter interface {
	// Name identifies the harness style, used for config lookup and
	// telemetry tagging.
	Name() string
	// Render produces the JSON-serializable response body for resp.
	Render(resp policy.FinalDecision) any
	// ExitCode selects the process exit code for resp (spec.md §4.8:
	// "0 allow/soft, 2 deny in strict mode").
	ExitCode(resp policy.FinalDecision, strict bool) int
}

// ExitAllow and ExitDenyStrict are the two exit codes spec.md §4.8
// names; a harness adapter may map additional FinalDecision kinds onto
// either one.
const (
	ExitAllow      = 0
	ExitDenyStrict = 2
)

// Marshal renders resp with a and serializes it to compact JSON,
// the shape the Orchestrator writes to stdout (spec.md §4.9 step 8).
func Marshal(a Adapter, resp policy.FinalDecision) ([]byte, error) {
	return json.Marshal(a.Render(resp))
}

// Tags identifying the two example harness styles spec.md §4.8 names.
const (
	TagPreTool     = "pre-tool"
	TagBeforeShell = "before-shell"
)

// Lookup resolves a harness tag to its Adapter. Unknown tags fall back
// to PreTool, the more conservative of the two shapes (no
// agentMessage/userMessage duplication).
func Lookup(harnessTag string) Adapter {
	switch harnessTag {
	case TagBeforeShell:
		return BeforeShell{}
	default:
		return PreTool{}
	}
}
