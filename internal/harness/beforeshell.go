package harness

import "github.com/eqtylab/cupcake/internal/policy"

// BeforeShell renders the "Harness B" response shape from spec.md
// §4.8: a flat "permission" field plus separate user/agent-facing
// message strings.
type BeforeShell struct{}

func (BeforeShell) Name() string { return TagBeforeShell }

func (BeforeShell) Render(resp policy.FinalDecision) any {
	switch resp.Kind {
	case policy.KindAllow:
		if len(resp.Contexts) == 0 {
			return map[string]any{"permission": "allow"}
		}
		return map[string]any{
			"permission":   "allow",
			"agentMessage": joinContexts(resp.Contexts),
		}
	case policy.KindDeny, policy.KindBlock:
		return map[string]any{
			"permission":   "deny",
			"userMessage":  resp.Reason,
			"agentMessage": resp.Reason,
		}
	case policy.KindAsk:
		return map[string]any{
			"permission":  "ask",
			"userMessage": resp.Question,
		}
	case policy.KindModify:
		return map[string]any{
			"permission":   "allow",
			"modifiedArgs": resp.UpdatedInput,
		}
	case policy.KindHalt:
		return map[string]any{
			"permission":  "deny",
			"userMessage": resp.Reason,
		}
	default:
		return map[string]any{"permission": "allow"}
	}
}

func (BeforeShell) ExitCode(resp policy.FinalDecision, strict bool) int {
	switch resp.Kind {
	case policy.KindDeny, policy.KindBlock, policy.KindHalt:
		if strict {
			return ExitDenyStrict
		}
	}
	return ExitAllow
}
