package compiler

import (
	"fmt"

	"github.com/eqtylab/cupcake/internal/policy"
)

// CompiledModule exposes the single callable aggregation entrypoint
// (spec.md §4.2) plus the per-policy metadata table the Router needs.
type CompiledModule struct {
	// Bytecode is the compiled module, ready to be loaded into the
	// Evaluator's runtime pool.
	Bytecode []byte
	metadata map[string]policy.Metadata
	// Warnings holds non-fatal diagnostics, e.g. policies missing the
	// mandated metadata block (spec.md §4.2 edge case).
	Warnings []string
}

// Metadata returns the routing metadata for policyID, if it declared
// any (spec.md §4.2 contract).
func (m *CompiledModule) Metadata(policyID string) (policy.Metadata, bool) {
	meta, ok := m.metadata[policyID]
	return meta, ok
}

// AllMetadata returns every routable policy's metadata, used by the
// Router to build its index.
func (m *CompiledModule) AllMetadata() []policy.Metadata {
	out := make([]policy.Metadata, 0, len(m.metadata))
	for _, meta := range m.metadata {
		out = append(out, meta)
	}
	return out
}

func indexMetadata(metas []policy.Metadata) map[string]policy.Metadata {
	out := make(map[string]policy.Metadata, len(metas))
	for _, m := range metas {
		if len(m.RequiredEvents) == 0 {
			continue // not routed, but still compiled (spec.md §4.2)
		}
		out[m.PolicyID] = m
	}
	return out
}

func checkForEntrypoint(metas []policy.Metadata) error {
	for _, m := range metas {
		if m.PolicyID == EntrypointID {
			return nil
		}
	}
	return fmt.Errorf("compiler: layer is missing mandated aggregation entrypoint %q", EntrypointID)
}

func checkForDuplicates(metas []policy.Metadata) error {
	seen := make(map[string]bool, len(metas))
	for _, m := range metas {
		if seen[m.PolicyID] {
			return fmt.Errorf("compiler: duplicate policy id %q", m.PolicyID)
		}
		seen[m.PolicyID] = true
	}
	return nil
}
