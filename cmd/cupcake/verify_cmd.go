package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"

	"github.com/eqtylab/cupcake/internal/compiler"
)

// runVerifyCmd implements `cupcake verify` — compiles the project's
// policy sources and reports CompileError failures without running
// anything. Grounded on the teacher's cmd/helm/verify_cmd.go:
// compile-and-report, nonzero exit on failure, no side effects.
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		policyDir string
		opaPath   string
		harness   string
	)
	cmd.StringVar(&policyDir, "policy-dir", ".cupcake", "project scope directory")
	cmd.StringVar(&opaPath, "opa-path", "", "explicit path to the external compiler binary")
	cmd.StringVar(&harness, "harness", "pre-tool", "harness tag whose policies/<harness> directory to include")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	driver := &compiler.Driver{ExplicitPath: opaPath}
	module, err := driver.CompileDirs(context.Background(), []string{
		filepath.Join(policyDir, "system"),
		filepath.Join(policyDir, "policies", harness),
	})
	if err != nil {
		if cerr, ok := err.(*compiler.CompileError); ok {
			_, _ = fmt.Fprintf(stderr, "%sverify failed%s: %d source error(s)\n", ColorRed, ColorReset, len(cerr.Failures))
			for _, f := range cerr.Failures {
				_, _ = fmt.Fprintf(stderr, "  %s: %s\n", f.File, f.Message)
			}
			return 1
		}
		_, _ = fmt.Fprintf(stderr, "verify failed: %v\n", err)
		return 1
	}

	metas := module.AllMetadata()
	_, _ = fmt.Fprintf(stdout, "%sverify ok%s: %d routed polic%s, %d warning(s)\n",
		ColorGreen, ColorReset, len(metas), plural(len(metas)), len(module.Warnings))
	for _, w := range module.Warnings {
		_, _ = fmt.Fprintf(stdout, "  warning: %s\n", w)
	}
	return 0
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
