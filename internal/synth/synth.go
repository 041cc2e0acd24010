// Package synth implements the Synthesizer (spec.md §4.7): it reduces
// one or more DecisionSets — one per evaluated layer — into exactly
// one FinalDecision, deterministically and without any external
// state. Grounded on the teacher's governance/policy_engine.go merge
// pass, generalized from HELM's single-authority model to cupcake's
// global-then-project layering.
package synth

import (
	"sort"
	"strings"

	"github.com/eqtylab/cupcake/internal/policy"
)

// Synthesize applies the priority order from spec.md §4.7 across sets,
// which MUST be ordered global-first, project-second (spec.md §4.9
// step 7: "Synthesize (global first, then project..."). Passing sets
// in any other order will still produce a result, but layer semantics
// (global vetoes project) only hold with that ordering.
func Synthesize(sets ...policy.DecisionSet) policy.FinalDecision {
	if fd, ok := synthesizeHalt(sets); ok {
		return fd
	}
	if fd, ok := synthesizeDenyBlock(sets); ok {
		return fd
	}
	if fd, ok := synthesizeAsk(sets); ok {
		return fd
	}
	if fd, ok := synthesizeModify(sets); ok {
		return fd
	}
	return synthesizeAllow(sets)
}

// synthesizeHalt picks the earliest-by-severity Halt across all sets,
// tie-broken by rule_id lexicographic order (spec.md §9 open question
// resolution).
func synthesizeHalt(sets []policy.DecisionSet) (policy.FinalDecision, bool) {
	var all []policy.Halt
	for _, s := range sets {
		all = append(all, s.Halts...)
	}
	if len(all) == 0 {
		return policy.FinalDecision{}, false
	}
	best := bestBySeverityThenRuleID(all, func(h policy.Halt) (policy.Severity, string) {
		return h.SeverityV, h.RuleIDV
	})
	return policy.FinalDecision{
		Kind:     policy.KindHalt,
		Reason:   best.ReasonText,
		Severity: best.SeverityV,
		RuleID:   best.RuleIDV,
	}, true
}

// synthesizeDenyBlock applies allow_override suppression per layer,
// then picks the earliest-by-severity survivor. Deny and Block share
// priority tier 2 of spec.md §4.7; Deny is checked first only to keep
// the resulting Kind stable when both are present at equal severity
// (Deny is pre-execution and therefore the more conservative choice).
func synthesizeDenyBlock(sets []policy.DecisionSet) (policy.FinalDecision, bool) {
	var survivingDenies []policy.Deny
	var survivingBlocks []policy.Block

	for _, s := range sets {
		overridden := overriddenRuleIDs(s.AllowOverrides)
		broad := hasBroadOverride(s.AllowOverrides)
		for _, d := range s.Denials {
			if broad || overridden[d.RuleIDV] {
				continue
			}
			survivingDenies = append(survivingDenies, d)
		}
		for _, b := range s.Blocks {
			if broad || overridden[b.RuleIDV] {
				continue
			}
			survivingBlocks = append(survivingBlocks, b)
		}
	}

	if len(survivingDenies) == 0 && len(survivingBlocks) == 0 {
		return policy.FinalDecision{}, false
	}

	var bestDeny policy.Deny
	if len(survivingDenies) > 0 {
		bestDeny = bestBySeverityThenRuleID(survivingDenies, func(d policy.Deny) (policy.Severity, string) {
			return d.SeverityV, d.RuleIDV
		})
	}

	if len(survivingBlocks) > 0 {
		best := bestBySeverityThenRuleID(survivingBlocks, func(b policy.Block) (policy.Severity, string) {
			return b.SeverityV, b.RuleIDV
		})
		if len(survivingDenies) == 0 || best.SeverityV.Rank() < bestDeny.SeverityV.Rank() {
			return policy.FinalDecision{
				Kind:     policy.KindBlock,
				Reason:   best.ReasonText,
				Severity: best.SeverityV,
				RuleID:   best.RuleIDV,
			}, true
		}
	}

	return policy.FinalDecision{
		Kind:     policy.KindDeny,
		Reason:   bestDeny.ReasonText,
		Severity: bestDeny.SeverityV,
		RuleID:   bestDeny.RuleIDV,
	}, true
}

// overriddenRuleIDs returns the set of rule_ids an allow_override in
// this layer names explicitly.
func overriddenRuleIDs(overrides []policy.AllowOverride) map[string]bool {
	out := make(map[string]bool, len(overrides))
	for _, o := range overrides {
		out[o.RuleIDV] = true
	}
	return out
}

func hasBroadOverride(overrides []policy.AllowOverride) bool {
	for _, o := range overrides {
		if o.BroadScope {
			return true
		}
	}
	return false
}

// synthesizeAsk aggregates all asks into the earliest-severity one;
// the rest are dropped (spec.md §4.7 priority tier 3).
func synthesizeAsk(sets []policy.DecisionSet) (policy.FinalDecision, bool) {
	var all []policy.Ask
	for _, s := range sets {
		all = append(all, s.Asks...)
	}
	if len(all) == 0 {
		return policy.FinalDecision{}, false
	}
	best := bestBySeverityThenRuleID(all, func(a policy.Ask) (policy.Severity, string) {
		return a.SeverityV, a.RuleIDV
	})
	return policy.FinalDecision{
		Kind:     policy.KindAsk,
		Reason:   best.ReasonText,
		Question: best.Question,
		Severity: best.SeverityV,
		RuleID:   best.RuleIDV,
	}, true
}

// synthesizeModify merges all modify verbs by descending priority;
// ties broken by order of appearance (first writer wins a tie, as it
// appeared earliest in the combined stream). Later (lower-priority)
// writers only fill in fields the higher-priority writer didn't touch
// (spec.md §4.7 "shallow union with later writers overwriting only
// the fields they specify" — read in priority-descending order so the
// highest priority's fields always win).
func synthesizeModify(sets []policy.DecisionSet) (policy.FinalDecision, bool) {
	var all []policy.Modify
	for _, s := range sets {
		all = append(all, s.Modifications...)
	}
	if len(all) == 0 {
		return policy.FinalDecision{}, false
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Priority > all[j].Priority
	})

	merged := make(map[string]any)
	for _, m := range all {
		for field, value := range m.UpdatedInput {
			if _, already := merged[field]; !already {
				merged[field] = value
			}
		}
	}

	top := all[0]
	return policy.FinalDecision{
		Kind:         policy.KindModify,
		Reason:       top.ReasonText,
		Severity:     top.SeverityV,
		RuleID:       top.RuleIDV,
		UpdatedInput: merged,
	}, true
}

// synthesizeAllow is the floor of the priority order: no blocking verb
// survived, so concatenate add_context strings in layer order (global
// first) with newline separators.
func synthesizeAllow(sets []policy.DecisionSet) policy.FinalDecision {
	var texts []string
	for _, s := range sets {
		for _, c := range s.Contexts {
			if c.Text != "" {
				texts = append(texts, c.Text)
			}
		}
	}
	if len(texts) == 0 {
		return policy.Allow()
	}
	return policy.Allow(strings.Join(texts, "\n"))
}

// bestBySeverityThenRuleID picks the element with the lowest severity
// rank, tie-broken by lexicographically smallest rule_id.
func bestBySeverityThenRuleID[T any](items []T, key func(T) (policy.Severity, string)) T {
	best := items[0]
	bestSev, bestID := key(best)
	for _, item := range items[1:] {
		sev, id := key(item)
		if sev.Rank() < bestSev.Rank() || (sev.Rank() == bestSev.Rank() && id < bestID) {
			best = item
			bestSev, bestID = sev, id
		}
	}
	return best
}
