// Package router implements the Metadata Index / Router (spec.md
// §4.3): a one-shot, immutable map from (event, tool) to the subset
// of policies and signals a routed evaluation needs. Grounded on the
// teacher's pkg/governance routing tables, simplified to the single
// event->policy fan-out cupcake's data model calls for.
package router

import "github.com/eqtylab/cupcake/internal/policy"

// Index is built once from a layer's metadata table and never mutated
// afterward, so Route is safe for concurrent callers without locking.
type Index struct {
	byEvent        map[string][]string
	signalsByEvent map[string]map[string]struct{}
	toolsByEvent   map[string]map[string]struct{}
}

// Build constructs the routing index from a layer's compiled policy
// metadata. Policies with an empty RequiredEvents slice never appear
// in the index (spec.md §4.2: "Policies without the mandated metadata
// block... are compiled but never routed").
func Build(metas []policy.Metadata) *Index {
	idx := &Index{
		byEvent:        make(map[string][]string),
		signalsByEvent: make(map[string]map[string]struct{}),
		toolsByEvent:   make(map[string]map[string]struct{}),
	}
	for _, m := range metas {
		for _, event := range m.RequiredEvents {
			idx.byEvent[event] = append(idx.byEvent[event], m.PolicyID)

			sigSet, ok := idx.signalsByEvent[event]
			if !ok {
				sigSet = make(map[string]struct{})
				idx.signalsByEvent[event] = sigSet
			}
			for _, sig := range m.RequiredSignals {
				sigSet[sig] = struct{}{}
			}

			toolSet, ok := idx.toolsByEvent[event]
			if !ok {
				toolSet = make(map[string]struct{})
				idx.toolsByEvent[event] = toolSet
			}
			for _, tool := range m.RequiredTools {
				toolSet[tool] = struct{}{}
			}
		}
	}
	return idx
}

// Result is the outcome of a single Route lookup.
type Result struct {
	MatchedPolicies []string
	RequiredSignals []string
}

// Empty reports whether routing matched nothing, in which case the
// Orchestrator short-circuits to Allow with no signal collection and
// no bytecode evaluation (spec.md §4.3 invariant).
func (r Result) Empty() bool {
	return len(r.MatchedPolicies) == 0
}

// Route returns the policies and signals that apply to the given
// event/tool pair. Route is deterministic and performs no I/O (spec.md
// §8 testable property). Tool filtering happens only at the signal
// level here; the aggregation entrypoint itself still walks every
// compiled policy and self-filters (spec.md §4.3, "routing is a gate,
// not a filter").
func (idx *Index) Route(event, tool string) Result {
	ids, ok := idx.byEvent[event]
	if !ok {
		return Result{}
	}

	out := make([]string, len(ids))
	copy(out, ids)

	var signals []string
	if sigSet, ok := idx.signalsByEvent[event]; ok {
		for sig := range sigSet {
			if idx.toolAppliesForSignal(event, tool) {
				signals = append(signals, sig)
			}
		}
	}

	return Result{MatchedPolicies: out, RequiredSignals: signals}
}

// toolAppliesForSignal reports whether the routed event's tool
// restriction (if any) covers the given tool. An event with no tool
// restriction registered applies to every tool.
func (idx *Index) toolAppliesForSignal(event, tool string) bool {
	toolSet, ok := idx.toolsByEvent[event]
	if !ok || len(toolSet) == 0 {
		return true
	}
	if _, ok := toolSet[policy.AllTools]; ok {
		return true
	}
	_, ok = toolSet[tool]
	return ok
}
