package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/eqtylab/cupcake/internal/compiler"
	"github.com/eqtylab/cupcake/internal/policy"
)

// runInspectCmd implements `cupcake inspect` — compiles the project's
// policies and prints their routing metadata, in either a --json
// machine-readable shape or a --table human-readable one (spec.md §6;
// the --json convention is grounded on cmd/helm/main.go's JSON output
// used throughout its pack/verify subcommands).
func runInspectCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("inspect", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		policyDir  string
		harness    string
		opaPath    string
		jsonOutput bool
		table      bool
	)
	cmd.StringVar(&policyDir, "policy-dir", ".cupcake", "project scope directory")
	cmd.StringVar(&harness, "harness", "pre-tool", "harness tag whose policies/<harness> directory to include")
	cmd.StringVar(&opaPath, "opa-path", "", "explicit path to the external compiler binary")
	cmd.BoolVar(&jsonOutput, "json", false, "print metadata as JSON")
	cmd.BoolVar(&table, "table", false, "print metadata as a table (default)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	driver := &compiler.Driver{ExplicitPath: opaPath}
	module, err := driver.CompileDirs(context.Background(), []string{
		filepath.Join(policyDir, "system"),
		filepath.Join(policyDir, "policies", harness),
	})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: compile: %v\n", err)
		return 1
	}

	metas := module.AllMetadata()
	sort.Slice(metas, func(i, j int) bool { return metas[i].PolicyID < metas[j].PolicyID })

	if jsonOutput {
		return printInspectJSON(stdout, metas, module.Warnings)
	}
	printInspectTable(stdout, metas, module.Warnings)
	return 0
}

func printInspectJSON(stdout io.Writer, metas []policy.Metadata, warnings []string) int {
	out := map[string]any{
		"policies": metas,
		"warnings": warnings,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return 1
	}
	_, _ = fmt.Fprintln(stdout, string(data))
	return 0
}

func printInspectTable(stdout io.Writer, metas []policy.Metadata, warnings []string) {
	fmt.Fprintf(stdout, "%-30s %-20s %-10s %s\n", "POLICY", "EVENTS", "SEVERITY", "SIGNALS")
	for _, m := range metas {
		fmt.Fprintf(stdout, "%-30s %-20s %-10s %s\n", m.PolicyID, joinOrDash(m.RequiredEvents), string(m.Severity), joinOrDash(m.RequiredSignals))
	}
	if len(warnings) > 0 {
		fmt.Fprintln(stdout, "\nwarnings:")
		for _, w := range warnings {
			fmt.Fprintf(stdout, "  %s\n", w)
		}
	}
}

func joinOrDash(xs []string) string {
	if len(xs) == 0 {
		return "-"
	}
	out := xs[0]
	for _, x := range xs[1:] {
		out += "," + x
	}
	return out
}
