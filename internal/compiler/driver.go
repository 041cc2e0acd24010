// Package compiler implements the Policy Compiler Driver (spec.md
// §4.2): it invokes an external rule-language compiler over a
// directory of policy source files and returns in-memory bytecode
// plus a metadata table. Grounded on the teacher's pkg/trust
// pack_loader.go external-tool-resolution idiom and its semver
// version gating, since cupcake treats the compiler the same way HELM
// treats an external pack publisher toolchain: trusted by version
// range, not by reimplementing it in-process.
package compiler

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// SupportedCompilerVersions is the semver range of external compiler
// releases this engine has been validated against.
const SupportedCompilerVersions = ">= 0.40.0, < 1.0.0"

// EntrypointID is the mandated name of the aggregation entrypoint
// policy every layer must declare (spec.md §3, §4.2).
const EntrypointID = "system.evaluate"

// Driver resolves and invokes the external compiler.
type Driver struct {
	// ExplicitPath is set from --opa-path; takes priority over
	// discovery (spec.md §4.2: "path resolved in order: explicit CLI
	// flag, bundled companion binary, process PATH").
	ExplicitPath string
	// BundledPath is the path to a companion binary shipped alongside
	// this engine's own executable, if any.
	BundledPath string
}

// resolveBinary implements the three-tier lookup order.
func (d *Driver) resolveBinary() (string, error) {
	if d.ExplicitPath != "" {
		if _, err := os.Stat(d.ExplicitPath); err != nil {
			return "", fmt.Errorf("compiler: --opa-path %s: %w", d.ExplicitPath, err)
		}
		return d.ExplicitPath, nil
	}
	if d.BundledPath != "" {
		if _, err := os.Stat(d.BundledPath); err == nil {
			return d.BundledPath, nil
		}
	}
	path, err := exec.LookPath("opa")
	if err != nil {
		return "", fmt.Errorf("compiler: no compiler found (flag, bundled binary, or PATH): %w", err)
	}
	return path, nil
}

// Compile walks policyDir, invokes the external compiler, and parses
// the resulting bytecode module plus metadata table.
func (d *Driver) Compile(ctx context.Context, policyDir string) (*CompiledModule, error) {
	return d.CompileDirs(ctx, []string{policyDir})
}

// CompileDirs compiles the union of every *.rego file found under
// dirs into a single bytecode module. A layer's sources are split
// across system/ (the mandated aggregation entrypoint) and
// policies/<harness>/ (spec.md §6 on-disk layout); CompileDirs lets
// the caller bundle both roots into one compiled unit without the
// harness-agnostic Driver needing to know that layout itself.
func (d *Driver) CompileDirs(ctx context.Context, dirs []string) (*CompiledModule, error) {
	binary, err := d.resolveBinary()
	if err != nil {
		return nil, err
	}

	if err := d.checkVersion(ctx, binary); err != nil {
		return nil, err
	}

	var sources []string
	for _, dir := range dirs {
		found, err := discoverSources(dir)
		if err != nil {
			return nil, fmt.Errorf("compiler: discover sources in %s: %w", dir, err)
		}
		sources = append(sources, found...)
	}
	if len(sources) == 0 {
		return nil, &CompileError{Failures: []SourceFailure{{File: strings.Join(dirs, ", "), Message: "no policy sources found"}}}
	}

	bytecode, err := invokeCompiler(ctx, binary, dirs[0], sources)
	if err != nil {
		return nil, err
	}

	metas, warnings, err := extractMetadata(sources)
	if err != nil {
		return nil, err
	}

	if err := checkForEntrypoint(metas); err != nil {
		return nil, err
	}
	if err := checkForDuplicates(metas); err != nil {
		return nil, err
	}

	return &CompiledModule{
		Bytecode: bytecode,
		metadata: indexMetadata(metas),
		Warnings: warnings,
	}, nil
}

// checkVersion runs `<binary> version` and gates it against
// SupportedCompilerVersions, failing closed on an unparseable or
// out-of-range version rather than risking a bytecode format mismatch.
func (d *Driver) checkVersion(ctx context.Context, binary string) error {
	constraint, err := semver.NewConstraint(SupportedCompilerVersions)
	if err != nil {
		// Our own constraint string is a programming error, not a
		// runtime condition; fail loudly rather than silently skip
		// the check.
		panic(fmt.Sprintf("compiler: invalid built-in constraint: %v", err))
	}

	out, err := exec.CommandContext(ctx, binary, "version").Output()
	if err != nil {
		return fmt.Errorf("compiler: run %s version: %w", binary, err)
	}

	v, err := semver.NewVersion(string(bytes.TrimSpace(out)))
	if err != nil {
		return fmt.Errorf("compiler: parse version output %q: %w", string(out), err)
	}

	if !constraint.Check(v) {
		return fmt.Errorf("compiler: version %s does not satisfy %s", v, SupportedCompilerVersions)
	}
	return nil
}

// discoverSources finds every policy source file under policyDir.
func discoverSources(policyDir string) ([]string, error) {
	var files []string
	err := filepath.Walk(policyDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == policyDir {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		if filepath.Ext(path) == ".rego" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// invokeCompiler shells out to the resolved compiler binary to
// produce a single bundled bytecode module from every discovered
// source file.
func invokeCompiler(ctx context.Context, binary, policyDir string, sources []string) ([]byte, error) {
	args := append([]string{"build", "-t", "wasm", "-e", EntrypointID, "-o", "/dev/stdout"}, sources...)
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = policyDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &CompileError{Failures: []SourceFailure{{
			File:    policyDir,
			Message: fmt.Sprintf("compile failed: %v: %s", err, stderr.String()),
		}}}
	}
	return stdout.Bytes(), nil
}
