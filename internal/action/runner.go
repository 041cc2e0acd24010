// Package action executes an evaluation layer's action definitions as
// side effects of a synthesized decision (spec.md §3 "Config
// (Rulebook)": "action definitions"; §9 "optional CEL when guards").
// Unlike a Signal, an action's output is never attached to the event —
// it fires after synthesis and cannot change the decision it reacts
// to.
//
// Grounded on internal/signal's exec.CommandContext + trust-gating
// idiom (same process-group timeout discipline), with the guard
// evaluator grounded on the teacher's
// pkg/governance/policy_evaluator_cel.go CEL program cache.
package action

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/eqtylab/cupcake/internal/config"
)

// Trust gates whether an action script may be spawned at all, mirroring
// signal.Trust (spec.md §4.1: the trust store covers "signals and
// actions" alike).
type Trust interface {
	Verify(scriptPath string, content []byte) (trusted bool, err error)
}

// Result records the outcome of firing one action, for telemetry only;
// nothing downstream consumes it as evaluation input.
type Result struct {
	Name     string
	Skipped  bool   // guard evaluated false, or trust rejected the script
	Error    string
	ExitCode int
}

const actionTimeout = 10 * time.Second

// Runner fires a layer's actions after a decision has been reached.
type Runner struct {
	definitions map[string]config.Action
	trust       Trust
	readFile    func(path string) ([]byte, error)

	env      *cel.Env
	mu       sync.Mutex
	programs map[string]cel.Program
}

// New builds a Runner over a layer's action definitions. env
// construction failures are programmer errors (a fixed two-variable
// environment), so New never fails in practice, but callers still get
// an error to handle rather than a panic.
func New(definitions map[string]config.Action, trust Trust, readFile func(string) ([]byte, error)) (*Runner, error) {
	env, err := cel.NewEnv(
		cel.Variable("input", cel.DynType),
		cel.Variable("decision", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("action: build CEL environment: %w", err)
	}
	return &Runner{
		definitions: definitions,
		trust:       trust,
		readFile:    readFile,
		env:         env,
		programs:    make(map[string]cel.Program),
	}, nil
}

// Fire evaluates every action's `when` guard against the enriched
// input and the synthesized decision, and runs every action whose
// guard passes (or has none). Actions never block the hook response;
// callers invoke Fire after the response has already been written.
// A guard compile/eval error or a trust rejection skips that action
// only — one bad action never prevents its siblings from firing.
func (r *Runner) Fire(ctx context.Context, enriched map[string]any, decision map[string]any) []Result {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []Result
	)

	for name, def := range r.definitions {
		name, def := name, def
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := r.runOne(ctx, name, def, enriched, decision)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

func (r *Runner) runOne(ctx context.Context, name string, def config.Action, enriched, decision map[string]any) Result {
	if def.When != "" {
		pass, err := r.evalGuard(def.When, enriched, decision)
		if err != nil {
			return Result{Name: name, Skipped: true, Error: fmt.Sprintf("guard: %v", err)}
		}
		if !pass {
			return Result{Name: name, Skipped: true}
		}
	}

	if err := r.checkTrust(def); err != nil {
		return Result{Name: name, Skipped: true, Error: fmt.Sprintf("trust: %v", err)}
	}

	runCtx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", def.Command)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		killGroup(cmd)
		return Result{Name: name, Error: "timeout"}
	}
	if err != nil {
		code := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
		return Result{Name: name, Error: stderr.String(), ExitCode: code}
	}
	return Result{Name: name}
}

func (r *Runner) checkTrust(def config.Action) error {
	if def.ScriptRel == "" || r.trust == nil {
		return nil
	}
	content, err := r.readFile(def.ScriptRel)
	if err != nil {
		return fmt.Errorf("read %s: %w", def.ScriptRel, err)
	}
	trusted, err := r.trust.Verify(def.ScriptRel, content)
	if err != nil {
		return err
	}
	if !trusted {
		return fmt.Errorf("script %s is not trusted", def.ScriptRel)
	}
	return nil
}

// evalGuard compiles (once per distinct expression, cached) and
// evaluates a `when` expression, matching the teacher's
// compile-once-cache-forever pattern in policy_evaluator_cel.go.
func (r *Runner) evalGuard(expr string, enriched, decision map[string]any) (bool, error) {
	r.mu.Lock()
	prg, hit := r.programs[expr]
	r.mu.Unlock()

	if !hit {
		ast, issues := r.env.Compile(expr)
		if issues != nil && issues.Err() != nil {
			return false, issues.Err()
		}
		p, err := r.env.Program(ast, cel.InterruptCheckFrequency(100), cel.CostLimit(10000))
		if err != nil {
			return false, err
		}
		r.mu.Lock()
		r.programs[expr] = p
		r.mu.Unlock()
		prg = p
	}

	out, _, err := prg.Eval(map[string]any{"input": enriched, "decision": decision})
	if err != nil {
		return false, err
	}
	pass, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("when guard %q did not evaluate to a boolean", expr)
	}
	return pass, nil
}

func killGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		_ = cmd.Process.Kill()
		return
	}
	_ = syscall.Kill(-pgid, syscall.SIGKILL)
}
