package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/eqtylab/cupcake/internal/config"
	"github.com/eqtylab/cupcake/internal/trust"
)

// trustEnabledMarker is a zero-byte sentinel file recording whether
// trust gating is switched on for a scope; `enable`/`disable` toggle its
// presence, `reset` removes both it and the manifest. This lives
// alongside, not inside, trust.manifest so toggling it never
// invalidates an otherwise-valid signed manifest. `cupcake eval` does
// not read the marker: there, gating depends only on whether a
// manifest exists.
const trustEnabledMarker = "trust.enabled"

// runTrustCmd implements `cupcake trust <init|update|verify|list|enable|disable|reset>`.
// Grounded on the teacher's runTrustCmd (cmd/helm/doctor_init_trust.go):
// subcommand switch, manual --json scan, JSON vs human-readable output.
func runTrustCmd(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stderr, "Usage: cupcake trust <init|update|verify|list|enable|disable|reset> [--json] [--global] [--test-mode]")
		return 2
	}

	subCmd := args[0]
	rest := args[1:]

	cmd := flag.NewFlagSet("trust "+subCmd, flag.ContinueOnError)
	cmd.SetOutput(stderr)
	var (
		global     bool
		jsonOutput bool
		testMode   bool
		force      bool
	)
	cmd.BoolVar(&global, "global", false, "operate on the global scope instead of the project scope")
	cmd.BoolVar(&jsonOutput, "json", false, "output result as JSON")
	cmd.BoolVar(&testMode, "test-mode", false, "derive the manifest key from a fixed test constant")
	cmd.BoolVar(&force, "force", false, "overwrite an existing manifest")
	if err := cmd.Parse(rest); err != nil {
		return 2
	}

	scope, err := resolveScope(global, ".")
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: resolve scope: %v\n", err)
		return 2
	}
	projectPath, err := filepath.Abs(scope.Dir)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	switch subCmd {
	case "init":
		return trustInit(scope, projectPath, testMode, force, jsonOutput, stdout, stderr)
	case "update":
		return trustUpdate(scope, projectPath, testMode, jsonOutput, stdout, stderr)
	case "verify", "list":
		return trustStatus(scope, projectPath, testMode, jsonOutput, stdout, stderr)
	case "enable":
		return trustSetEnabled(scope, true, jsonOutput, stdout, stderr)
	case "disable":
		return trustSetEnabled(scope, false, jsonOutput, stdout, stderr)
	case "reset":
		return trustReset(scope, jsonOutput, stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown trust subcommand: %s\n", subCmd)
		return 2
	}
}

func trustInit(scope config.Scope, projectPath string, testMode, force, jsonOutput bool, stdout, stderr io.Writer) int {
	key, err := deriveTrustKey(projectPath, testMode)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	store, err := trust.Init(scope.Dir, key, force)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	entries, _ := store.Status()
	return reportTrust(stdout, jsonOutput, "init", entries, nil)
}

func trustUpdate(scope config.Scope, projectPath string, testMode, jsonOutput bool, stdout, stderr io.Writer) int {
	store, err := openTrustStore(scope, projectPath, testMode)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if !store.TrustExists() {
		_, _ = fmt.Fprintf(stderr, "Error: no manifest at %s; run `trust init` first\n", scope.TrustManifestPath())
		return 2
	}
	if err := store.Update(); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	entries, _ := store.Status()
	return reportTrust(stdout, jsonOutput, "update", entries, nil)
}

func trustStatus(scope config.Scope, projectPath string, testMode, jsonOutput bool, stdout, stderr io.Writer) int {
	store, err := openTrustStore(scope, projectPath, testMode)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if !store.TrustExists() {
		_, _ = fmt.Fprintf(stderr, "Error: no manifest at %s\n", scope.TrustManifestPath())
		return 1
	}
	entries, err := store.Status()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	tampered := 0
	for _, e := range entries {
		if e.State != trust.Trusted {
			tampered++
		}
	}
	code := 0
	if tampered > 0 {
		code = 1
	}
	return max(reportTrust(stdout, jsonOutput, "status", entries, nil), code)
}

func trustSetEnabled(scope config.Scope, enabled bool, jsonOutput bool, stdout, stderr io.Writer) int {
	markerPath := filepath.Join(scope.Dir, trustEnabledMarker)
	if enabled {
		if err := os.MkdirAll(scope.Dir, 0o750); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		if err := os.WriteFile(markerPath, nil, 0o644); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
	} else if err := os.Remove(markerPath); err != nil && !os.IsNotExist(err) {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	action := "disable"
	if enabled {
		action = "enable"
	}
	return reportTrust(stdout, jsonOutput, action, nil, nil)
}

func trustReset(scope config.Scope, jsonOutput bool, stdout, stderr io.Writer) int {
	for _, name := range []string{trust.ManifestFile, trustEnabledMarker} {
		path := filepath.Join(scope.Dir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
	}
	return reportTrust(stdout, jsonOutput, "reset", nil, nil)
}

func reportTrust(stdout io.Writer, jsonOutput bool, action string, entries []trust.StatusEntry, extra map[string]any) int {
	if jsonOutput {
		out := map[string]any{"action": action, "entries": entries}
		for k, v := range extra {
			out[k] = v
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
		return 0
	}

	fmt.Fprintf(stdout, "%strust %s%s\n", ColorBold+ColorCyan, action, ColorReset)
	if entries == nil {
		return 0
	}
	for _, e := range entries {
		icon := "✅"
		if e.State != trust.Trusted {
			icon = "❌"
		}
		fmt.Fprintf(stdout, "  %s %-40s %s\n", icon, e.Path, e.State)
	}
	return 0
}
