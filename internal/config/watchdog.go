package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// WatchdogConfigFile is the optional JSON side-file carrying every
// watchdog parameter besides the rulebook's on/off flag (spec.md §3
// invariant; spec.md §6 "watchdog/config.json # optional,
// watchdog-specific").
const WatchdogConfigFile = "watchdog/config.json"

// WatchdogConfig holds the LLM-as-judge signal's own parameters.
// Engine-side the watchdog is just another signal (spec.md §9); this
// struct only feeds that signal's invocation, it never reaches the
// Synthesizer directly.
type WatchdogConfig struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// LoadWatchdogConfig reads the side-file at path. A missing file is
// not an error — the watchdog signal falls back to built-in defaults
// when the rulebook enables it without a config file present.
func LoadWatchdogConfig(path string) (*WatchdogConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &WatchdogConfig{}, nil
	}
	if err != nil {
		return nil, &Error{Op: "load", Path: path, Err: err}
	}

	var wc WatchdogConfig
	if err := json.Unmarshal(data, &wc); err != nil {
		return nil, &Error{Op: "parse", Path: path, Err: fmt.Errorf("watchdog config: %w", err)}
	}
	return &wc, nil
}
