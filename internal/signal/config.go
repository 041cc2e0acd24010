package signal

import "time"

// Definition is one named signal program from the rulebook (spec.md
// §3 "Signal"). Command may be a shell string (run through `sh -c`)
// or an argv array; exactly one of those is populated.
//
// TimeoutSeconds is the yaml-facing field (yaml.v3 has no native
// time.Duration decoding); Timeout and Name are filled in by
// ApplyDefaults once the rulebook's map key (the signal's name) is
// known to the caller.
type Definition struct {
	Name           string   `yaml:"-"`
	Command        string   `yaml:"command,omitempty"`
	Argv           []string `yaml:"argv,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty"`
	Timeout        time.Duration `yaml:"-"`
	ScriptRel      string   `yaml:"-"` // path relative to the scope dir, for trust lookups; empty for inline shell strings
}

// defaultTimeout applies when a rulebook entry omits one.
const defaultTimeout = 5 * time.Second

// ApplyDefaults fills Name from the rulebook map key and derives
// Timeout from TimeoutSeconds, called once per entry right after yaml
// decoding (map values can't see their own key during Unmarshal).
func (d Definition) ApplyDefaults(name string) Definition {
	d.Name = name
	if d.TimeoutSeconds > 0 {
		d.Timeout = time.Duration(d.TimeoutSeconds) * time.Second
	}
	return d
}

// EffectiveTimeout returns d.Timeout, falling back to defaultTimeout.
func (d Definition) EffectiveTimeout() time.Duration {
	if d.Timeout <= 0 {
		return defaultTimeout
	}
	return d.Timeout
}

// OutputMaxBytes caps captured stdout per signal (spec.md §4.4 "soft
// cap"), named the way the teacher's sandbox.OutputMaxBytes is.
const OutputMaxBytes = 1024 * 1024
