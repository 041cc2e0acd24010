// Package config loads the Rulebook (spec.md §3 "Config (Rulebook)"):
// the declarative mapping of builtin toggles, signal definitions,
// action definitions, and the watchdog flag that `cupcake init`
// scaffolds and `cupcake eval` reads at startup.
//
// Grounded on the teacher's pkg/config.LoadProfile: same
// os.ReadFile + yaml.v3 Unmarshal idiom, generalized from a
// jurisdiction profile to the rulebook shape.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/eqtylab/cupcake/internal/signal"
)

// RulebookFile is the canonical file name under .cupcake/ (spec.md §6).
const RulebookFile = "rulebook.yml"

// Builtin toggles one of the engine's built-in policy families on or
// off, with family-specific parameters passed through opaquely to the
// policy layer.
type Builtin struct {
	Enabled bool           `yaml:"enabled"`
	Params  map[string]any `yaml:"params,omitempty"`
}

// Action mirrors a Signal definition's command/timeout shape plus an
// optional CEL `when` guard (spec.md §9 "optional CEL when guards");
// unlike a Signal, an Action's output is not attached to the event —
// it runs as a side effect of a decision (e.g. a notifier).
type Action struct {
	Command   string `yaml:"command"`
	When      string `yaml:"when,omitempty"`
	ScriptRel string `yaml:"-"` // path relative to the scope dir, for trust lookups; empty for inline shell strings
}

// Rulebook is the parsed contents of rulebook.yml (spec.md §6 "Config
// format (rulebook)").
type Rulebook struct {
	Builtins map[string]Builtin           `yaml:"builtins,omitempty"`
	Signals  map[string]signal.Definition `yaml:"signals,omitempty"`
	Actions  map[string]Action            `yaml:"actions,omitempty"`
	// Watchdog is the only watchdog knob the rulebook carries; every
	// other watchdog parameter lives in watchdog/config.json (spec.md
	// §3 invariant: "rulebook only toggles enabled/disabled for
	// watchdog").
	Watchdog bool `yaml:"watchdog"`
}

// Load reads and validates the rulebook at path.
func Load(path string) (*Rulebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Op: "load", Path: path, Err: err}
	}

	var rb Rulebook
	if err := yaml.Unmarshal(data, &rb); err != nil {
		return nil, &Error{Op: "parse", Path: path, Err: err}
	}
	for name, def := range rb.Signals {
		rb.Signals[name] = def.ApplyDefaults(name)
	}

	if err := rb.Validate(); err != nil {
		return nil, &Error{Op: "validate", Path: path, Err: err}
	}

	return &rb, nil
}

// Validate enforces the rulebook-level invariants spec.md §6-§7 name:
// signal/action names must be non-empty, every signal needs a command
// or an argv, and every action needs a command.
func (rb *Rulebook) Validate() error {
	for name, def := range rb.Signals {
		if name == "" {
			return fmt.Errorf("config: signal has empty name")
		}
		if def.Command == "" && len(def.Argv) == 0 {
			return fmt.Errorf("config: signal %q has no command or argv", name)
		}
	}
	for name, act := range rb.Actions {
		if name == "" {
			return fmt.Errorf("config: action has empty name")
		}
		if act.Command == "" {
			return fmt.Errorf("config: action %q has no command", name)
		}
	}
	return nil
}

// EnabledBuiltins returns the names of every builtin toggled on.
func (rb *Rulebook) EnabledBuiltins() []string {
	var names []string
	for name, b := range rb.Builtins {
		if b.Enabled {
			names = append(names, name)
		}
	}
	return names
}

// Error is a ConfigError (spec.md §7): "rulebook/manifest malformed,
// unknown builtin, bad flag value. Fatal at init; never surfaced from
// eval."
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
