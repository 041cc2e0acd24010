package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/eqtylab/cupcake/internal/config"
)

// defaultEntrypointSource is the stub aggregation entrypoint `init`
// scaffolds so `verify`/`eval` have something compilable on a fresh
// project; it declares no routing metadata itself (it IS the
// entrypoint, not a routed policy) and emits no verbs.
const defaultEntrypointSource = `# METADATA
# custom:
#   policy_id: system.evaluate
package system.evaluate

verbs := []
`

// runInitCmd implements `cupcake init` — scaffolds a .cupcake/ policy
// scope (spec.md §6 on-disk layout), grounded on the teacher's
// runInitCmd (cmd/helm/doctor_init_trust.go): create directories, then
// write a default config file only if one isn't already there.
func runInitCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("init", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		global      bool
		harnessTag  string
		builtinsCSV string
	)
	cmd.BoolVar(&global, "global", false, "scaffold the global scope instead of the project scope")
	cmd.StringVar(&harnessTag, "harness", "pre-tool", "harness tag to scaffold a policies/<harness> directory for")
	cmd.StringVar(&builtinsCSV, "builtins", "", "comma-separated list of builtins to enable in the scaffolded rulebook")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	scope, err := resolveScope(global, ".")
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: resolve scope: %v\n", err)
		return 2
	}

	dirs := []string{
		scope.Dir,
		scope.SystemEntrypointDir(),
		scope.PoliciesDir(harnessTag),
		scope.SignalsDir(),
		scope.ActionsDir(),
		scope.DebugDir(),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o750); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: cannot create %s: %v\n", d, err)
			return 2
		}
	}

	entrypointPath := filepath.Join(scope.SystemEntrypointDir(), "evaluate.rego")
	if _, err := os.Stat(entrypointPath); os.IsNotExist(err) {
		if err := os.WriteFile(entrypointPath, []byte(defaultEntrypointSource), 0o644); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: cannot write %s: %v\n", entrypointPath, err)
			return 2
		}
	}

	if _, err := os.Stat(scope.RulebookPath()); os.IsNotExist(err) {
		if err := os.WriteFile(scope.RulebookPath(), []byte(defaultRulebook(builtinsCSV)), 0o644); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: cannot write %s: %v\n", scope.RulebookPath(), err)
			return 2
		}
	}

	_, _ = fmt.Fprintf(stdout, "Initialized cupcake %s scope at %s\n", scopeLabel(global), scope.Dir)
	return 0
}

func scopeLabel(global bool) string {
	if global {
		return "global"
	}
	return "project"
}

// resolveScope picks the project or global scope rooted at dir.
func resolveScope(global bool, dir string) (config.Scope, error) {
	if global {
		return config.GlobalScope()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return config.Scope{}, err
	}
	return config.ProjectScope(abs), nil
}

func defaultRulebook(builtinsCSV string) string {
	var b strings.Builder
	b.WriteString("builtins:\n")
	for _, name := range strings.Split(builtinsCSV, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		fmt.Fprintf(&b, "  %s:\n    enabled: true\n", name)
	}
	b.WriteString("signals: {}\n")
	b.WriteString("actions: {}\n")
	b.WriteString("watchdog: false\n")
	return b.String()
}
