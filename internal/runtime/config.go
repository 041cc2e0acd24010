// Package runtime implements the Evaluator (spec.md §4.6): a pool of
// sandboxed bytecode runtime instances that run the compiled
// aggregation entrypoint against an enriched event and parse its raw
// verb output into a policy.DecisionSet.
//
// Grounded on the teacher's pkg/runtime/sandbox.WasiSandbox and
// WASISandbox: same wazero runtime construction (memory-limited,
// WASI-instantiated, no filesystem/network/clock wiring), repurposed
// so the compiled module is the policy aggregation entrypoint rather
// than an arbitrary pack, and the pool is reused across both layers of
// a single event rather than closed after one run.
package runtime

import "time"

// MinMemoryMiB and MaxMemoryMiB bound the configurable memory ceiling
// (spec.md §4.6: "bounded memory (configurable; default 10 MiB, valid
// range 1-100 MiB)").
const (
	MinMemoryMiB     = 1
	MaxMemoryMiB     = 100
	DefaultMemoryMiB = 10

	bytesPerMiB  = 1024 * 1024
	wasmPageSize = 64 * 1024
)

// FailMode selects what the Orchestrator does when the Evaluator
// itself fails (spec.md §4.6 failure modes: "the Orchestrator
// escalates to a fail-open or fail-closed behavior based on config").
type FailMode int

const (
	// FailOpen allows the action through with a diagnostic recorded in
	// the trace (spec.md §4.6: "default fail-open with an error in the
	// trace").
	FailOpen FailMode = iota
	FailClosed
)

// Config configures the Evaluator's runtime pool.
type Config struct {
	// MemoryLimitMiB is clamped to [MinMemoryMiB, MaxMemoryMiB]; zero
	// selects DefaultMemoryMiB.
	MemoryLimitMiB int
	// PoolSize is the number of runtime instances kept warm (spec.md
	// §4.6: "a small pool of runtime instances (1..n)"). Zero selects 1.
	PoolSize int
	// Timeout bounds a single evaluate call; the runtime has no clock
	// access of its own, so this is enforced via context deadline from
	// the caller's side.
	Timeout time.Duration
	// OnFailure selects fail-open vs fail-closed when a runtime trap or
	// compile error occurs.
	OnFailure FailMode
}

func (c Config) memoryPages() uint32 {
	mib := c.MemoryLimitMiB
	if mib == 0 {
		mib = DefaultMemoryMiB
	}
	if mib < MinMemoryMiB {
		mib = MinMemoryMiB
	}
	if mib > MaxMemoryMiB {
		mib = MaxMemoryMiB
	}
	pages := uint32(mib * bytesPerMiB / wasmPageSize)
	if pages == 0 {
		pages = 1
	}
	return pages
}

func (c Config) poolSize() int {
	if c.PoolSize <= 0 {
		return 1
	}
	return c.PoolSize
}
