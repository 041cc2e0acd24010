package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/eqtylab/cupcake/internal/compiler"
	"github.com/eqtylab/cupcake/internal/config"
	"github.com/eqtylab/cupcake/internal/harness"
	"github.com/eqtylab/cupcake/internal/orchestrator"
	"github.com/eqtylab/cupcake/internal/policy"
	"github.com/eqtylab/cupcake/internal/preprocess"
	"github.com/eqtylab/cupcake/internal/router"
	"github.com/eqtylab/cupcake/internal/runtime"
	"github.com/eqtylab/cupcake/internal/signal"
	"github.com/eqtylab/cupcake/internal/telemetry"
	"github.com/eqtylab/cupcake/internal/trust"
)

// runEvalCmd implements `cupcake eval`, the hook entrypoint every
// harness invocation spawns: read one event from stdin, drive it
// through the Orchestrator, write the response to stdout, exit per
// spec.md §4.8/§6. Every flag here is explicit (spec.md §6: "all
// configuration is via CLI flags; environment variables are NOT
// consulted for security-relevant knobs").
func runEvalCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("eval", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		harnessTag   string
		policyDir    string
		globalConfig string
		logLevel     string
		trace        bool
		debugFiles   bool
		wasmMaxMiB   int
		opaPath      string
		strict       bool
		failClosed   bool
		testMode     bool
	)
	cmd.StringVar(&harnessTag, "harness", harness.TagPreTool, "harness response shape (pre-tool, before-shell)")
	cmd.StringVar(&policyDir, "policy-dir", ".cupcake", "project scope directory")
	cmd.StringVar(&globalConfig, "global-config", "", "global scope directory (default: OS config root)")
	cmd.StringVar(&logLevel, "log-level", "warn", "structured log level (debug, info, warn, error)")
	cmd.BoolVar(&trace, "trace", false, "record a telemetry span tree for this invocation")
	cmd.BoolVar(&debugFiles, "debug-files", false, "persist the telemetry span tree under <scope>/debug")
	cmd.IntVar(&wasmMaxMiB, "wasm-max-memory", runtime.DefaultMemoryMiB, "sandbox memory ceiling in MiB (1-100)")
	cmd.StringVar(&opaPath, "opa-path", "", "explicit path to the external compiler binary")
	cmd.BoolVar(&strict, "strict", false, "exit 2 on deny/block/halt instead of 0")
	cmd.BoolVar(&failClosed, "fail-closed", false, "deny rather than allow when the evaluator itself fails")
	cmd.BoolVar(&testMode, "test-mode", false, "derive trust keys from a fixed test constant, for fixtures")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: parseLogLevel(logLevel)}))

	projectAbs, err := filepath.Abs(policyDir)
	if err != nil {
		logger.Error("resolve project scope", "error", err)
		return writeEvalFailure(harnessTag, strict, stdout)
	}
	projectScope := config.Scope{Dir: projectAbs}

	var globalScope config.Scope
	if globalConfig != "" {
		globalScope = config.Scope{Dir: globalConfig, Global: true}
	} else if gs, err := config.GlobalScope(); err == nil {
		globalScope = gs
	}

	projectLayer, err := loadLayer(context.Background(), "project", projectScope, harnessTag, opaPath, testMode, logger)
	if err != nil {
		logger.Warn("project layer unavailable, evaluating with an empty layer", "error", err)
		projectLayer = orchestrator.Layer{Name: "project", Router: router.Build(nil)}
	}
	globalLayer, err := loadLayer(context.Background(), "global", globalScope, harnessTag, opaPath, testMode, logger)
	if err != nil {
		logger.Warn("global layer unavailable, evaluating with an empty layer", "error", err)
		globalLayer = orchestrator.Layer{Name: "global", Router: router.Build(nil)}
	}

	pool, err := buildPool(wasmMaxMiB, failClosed)
	if err != nil {
		logger.Error("start runtime pool", "error", err)
		return writeEvalFailure(harnessTag, strict, stdout)
	}
	defer pool.Close(context.Background())

	debugDir := ""
	if debugFiles {
		debugDir = projectScope.DebugDir()
	}
	provider := telemetry.New("cupcake", debugDir)
	defer func() { _ = provider.Shutdown(context.Background()) }()
	_ = trace // tracing is always built; --trace only affects whether anything reads it live

	o := &orchestrator.Orchestrator{
		Preprocessor: preprocess.New(harnessTag),
		Global:       globalLayer,
		Project:      projectLayer,
		Pool:         pool,
		Telemetry:    provider,
		Adapter:      harness.Lookup(harnessTag),
		Strict:       strict,
		FailMode:     failModeFor(failClosed),
	}

	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		logger.Error("read stdin", "error", err)
		return writeEvalFailure(harnessTag, strict, stdout)
	}

	return o.Run(context.Background(), input, stdout)
}

// loadLayer builds one evaluation layer: rulebook, trust store,
// compiled module (system/ + policies/<harness>/), all rooted at
// scope. A missing scope directory is not fatal (spec.md §4.1: a
// missing manifest/scope degrades, it does not crash eval); the caller
// falls back to an empty, unrouted layer.
func loadLayer(ctx context.Context, name string, scope config.Scope, harnessTag, opaPath string, testMode bool, logger *slog.Logger) (orchestrator.Layer, error) {
	if !scope.Exists() {
		return orchestrator.Layer{}, fmt.Errorf("scope %s does not exist", scope.Dir)
	}

	rb, err := config.Load(scope.RulebookPath())
	if err != nil {
		return orchestrator.Layer{}, fmt.Errorf("load rulebook: %w", err)
	}

	key, err := deriveTrustKey(scope.Dir, testMode)
	if err != nil {
		return orchestrator.Layer{}, fmt.Errorf("derive trust key: %w", err)
	}
	trustStore, err := trust.Open(scope.Dir, key)
	if err != nil {
		logger.Warn("open trust manifest", "scope", name, "error", err)
		trustStore = nil
	} else if !trustStore.TrustExists() {
		// No manifest: trust gating is off for this layer (fail-open).
		trustStore = nil
	}

	driver := &compiler.Driver{ExplicitPath: opaPath}
	module, err := driver.CompileDirs(ctx, []string{
		scope.SystemEntrypointDir(),
		scope.PoliciesDir(harnessTag),
	})
	if err != nil {
		return orchestrator.Layer{}, fmt.Errorf("compile: %w", err)
	}

	signals := make(map[string]signal.Definition, len(rb.Signals))
	for n, def := range rb.Signals {
		signals[n] = def
	}
	actions := make(map[string]config.Action, len(rb.Actions))
	for n, def := range rb.Actions {
		actions[n] = def
	}

	return orchestrator.Layer{
		Name:    name,
		Router:  router.Build(module.AllMetadata()),
		Module:  module,
		Signals: signals,
		Actions: actions,
		Trust:   trustStore,
		ReadFile: func(path string) ([]byte, error) {
			return os.ReadFile(filepath.Join(scope.Dir, path))
		},
	}, nil
}

func buildPool(wasmMaxMiB int, failClosed bool) (*runtime.Pool, error) {
	cfg := runtime.Config{MemoryLimitMiB: wasmMaxMiB, OnFailure: failModeFor(failClosed)}
	return runtime.NewPool(context.Background(), cfg)
}

func failModeFor(failClosed bool) runtime.FailMode {
	if failClosed {
		return runtime.FailClosed
	}
	return runtime.FailOpen
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// writeEvalFailure handles the narrow window before the Orchestrator
// itself exists: a fatal setup error (pool init, stdin read) still
// owes the harness a well-formed response rather than a bare nonzero
// exit with nothing on stdout.
func writeEvalFailure(harnessTag string, strict bool, stdout io.Writer) int {
	adapter := harness.Lookup(harnessTag)
	resp, _ := harness.Marshal(adapter, policy.Allow("cupcake: evaluation unavailable, failing open"))
	var buf bytes.Buffer
	buf.Write(resp)
	buf.WriteByte('\n')
	_, _ = stdout.Write(buf.Bytes())
	return harness.ExitAllow
}
