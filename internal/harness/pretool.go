package harness

import "github.com/eqtylab/cupcake/internal/policy"

// PreTool renders the "Harness A" response shape from spec.md §4.8:
// hookSpecificOutput for context/modify, decision for
// deny/ask, continue=false for halt.
type PreTool struct{}

func (PreTool) Name() string { return TagPreTool }

func (PreTool) Render(resp policy.FinalDecision) any {
	switch resp.Kind {
	case policy.KindAllow:
		if len(resp.Contexts) == 0 {
			return map[string]any{}
		}
		return map[string]any{
			"hookSpecificOutput": map[string]any{
				"additionalContext": joinContexts(resp.Contexts),
			},
		}
	case policy.KindDeny, policy.KindBlock:
		return map[string]any{
			"decision": "block",
			"reason":   resp.Reason,
		}
	case policy.KindAsk:
		return map[string]any{
			"decision": "ask",
			"question": resp.Question,
		}
	case policy.KindModify:
		return map[string]any{
			"hookSpecificOutput": map[string]any{
				"updatedInput": resp.UpdatedInput,
			},
		}
	case policy.KindHalt:
		return map[string]any{
			"continue":   false,
			"stopReason": resp.Reason,
		}
	default:
		return map[string]any{}
	}
}

func (PreTool) ExitCode(resp policy.FinalDecision, strict bool) int {
	switch resp.Kind {
	case policy.KindDeny, policy.KindBlock, policy.KindHalt:
		if strict {
			return ExitDenyStrict
		}
	}
	return ExitAllow
}

func joinContexts(contexts []string) string {
	if len(contexts) == 1 {
		return contexts[0]
	}
	out := contexts[0]
	for _, c := range contexts[1:] {
		out += "\n" + c
	}
	return out
}
