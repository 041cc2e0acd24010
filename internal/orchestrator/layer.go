// Package orchestrator implements the Orchestrator (spec.md §4.9): it
// drives exactly one event through preprocess -> route -> signals ->
// evaluate -> synthesize -> adapt, in that order, for every
// invocation of `cupcake eval`.
package orchestrator

import (
	"github.com/eqtylab/cupcake/internal/action"
	"github.com/eqtylab/cupcake/internal/compiler"
	"github.com/eqtylab/cupcake/internal/config"
	"github.com/eqtylab/cupcake/internal/router"
	"github.com/eqtylab/cupcake/internal/signal"
	"github.com/eqtylab/cupcake/internal/trust"
)

// Layer bundles one evaluation layer's (global or project) compiled
// module, routing index, signal definitions, and trust store.
type Layer struct {
	Name    string // "global" or "project", for telemetry tagging
	Router  *router.Index
	Module  *compiler.CompiledModule
	Signals map[string]signal.Definition
	Actions map[string]config.Action
	Trust   *trust.Store // nil disables trust gating for this layer
	// ReadFile resolves a signal's ScriptRel against this layer's own
	// scope directory; global and project scopes never share one
	// ReadFile, since a ScriptRel is only unambiguous within its own
	// scope.
	ReadFile func(path string) ([]byte, error)
}

// trustAdapter satisfies signal.Trust over a *trust.Store, translating
// its three-way VerifyResult into the boolean the Signal Runner wants.
// A Tampered verdict surfaces as an error so the caller's diagnostic
// names the specific failure, not just "untrusted" (spec.md §4.4: an
// untrusted or tampered entry is "skipped with an error record").
type trustAdapter struct {
	store *trust.Store
}

func (t trustAdapter) Verify(scriptPath string, content []byte) (bool, error) {
	if t.store == nil {
		return true, nil
	}
	switch t.store.Verify(scriptPath, content) {
	case trust.Trusted:
		return true, nil
	case trust.Tampered:
		return false, errTampered(scriptPath)
	default:
		return false, nil
	}
}

type tamperedError string

func (e tamperedError) Error() string { return "script " + string(e) + " failed trust verification: tampered" }

func errTampered(scriptPath string) error { return tamperedError(scriptPath) }

// signalRunner builds this layer's Signal Runner, reading trusted
// scripts relative to its own scope directory.
func (l Layer) signalRunner() *signal.Runner {
	return signal.New(l.Signals, trustAdapter{store: l.Trust}, l.ReadFile)
}

// actionRunner builds this layer's Action Runner. Nil on a layer with
// no action definitions, so callers can skip firing entirely.
func (l Layer) actionRunner() (*action.Runner, error) {
	if len(l.Actions) == 0 {
		return nil, nil
	}
	return action.New(l.Actions, trustAdapter{store: l.Trust}, l.ReadFile)
}
