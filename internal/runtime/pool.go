package runtime

import (
	"bytes"
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/eqtylab/cupcake/internal/compiler"
	"github.com/eqtylab/cupcake/internal/policy"
)

// slot is one warm wazero.Runtime, deny-by-default just like the
// teacher's WASISandbox: WASI is instantiated for stdout/stderr only,
// no WithFSConfig, no WithSysNanotime, no WithRandSource.
type slot struct {
	runtime wazero.Runtime
}

// Pool is the Evaluator's runtime pool (spec.md §4.6). It keeps 1..n
// wazero runtimes warm, sharing a single compilation cache so the two
// layers of one event (and successive events) amortize instantiation
// cost instead of paying full reinstantiation each time.
type Pool struct {
	cfg   Config
	cache wazero.CompilationCache
	slots chan *slot
}

// NewPool creates and warms the pool. ctx is used only to build the
// wazero runtimes; it is not retained.
func NewPool(ctx context.Context, cfg Config) (*Pool, error) {
	cache := wazero.NewCompilationCache()

	p := &Pool{
		cfg:   cfg,
		cache: cache,
		slots: make(chan *slot, cfg.poolSize()),
	}

	for i := 0; i < cfg.poolSize(); i++ {
		s, err := newSlot(ctx, cfg, cache)
		if err != nil {
			p.Close(ctx)
			return nil, fmt.Errorf("runtime: warm pool slot %d: %w", i, err)
		}
		p.slots <- s
	}

	return p, nil
}

func newSlot(ctx context.Context, cfg Config, cache wazero.CompilationCache) (*slot, error) {
	runtimeCfg := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(cfg.memoryPages()).
		WithCompilationCache(cache)

	r := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}
	return &slot{runtime: r}, nil
}

// Close shuts down every runtime in the pool. Safe to call once.
func (p *Pool) Close(ctx context.Context) {
	close(p.slots)
	for s := range p.slots {
		_ = s.runtime.Close(ctx)
	}
}

func (p *Pool) acquire(ctx context.Context) (*slot, error) {
	select {
	case s, ok := <-p.slots:
		if !ok {
			return nil, fmt.Errorf("runtime: pool closed")
		}
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool) release(s *slot) {
	p.slots <- s
}

// Evaluate runs module's aggregation entrypoint against input and
// parses its stdout into a DecisionSet tagged with layer (spec.md §4.6
// contract: "evaluate(enriched_input) -> DecisionSet").
//
// A runtime trap or timeout surfaces as an *EvaluationError; a
// malformed individual verb does not fail the call, it is dropped and
// recorded in the returned diagnostics (spec.md §4.6 failure modes).
func (p *Pool) Evaluate(ctx context.Context, module *compiler.CompiledModule, layer policy.Layer, input []byte) (policy.DecisionSet, []string, error) {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	s, err := p.acquire(ctx)
	if err != nil {
		return policy.DecisionSet{}, nil, err
	}
	defer p.release(s)

	compiled, err := s.runtime.CompileModule(ctx, module.Bytecode)
	if err != nil {
		return policy.DecisionSet{}, nil, &EvaluationError{Code: ErrEvaluationTrap, Message: fmt.Sprintf("compile: %v", err)}
	}
	defer func() { _ = compiled.Close(ctx) }()

	var stdout, stderr bytes.Buffer
	modCfg := wazero.NewModuleConfig().
		WithName("cupcake-evaluate").
		WithStdin(bytes.NewReader(input)).
		WithStdout(&stdout).
		WithStderr(&stderr).
		WithStartFunctions("_start")
	// Deny-by-default: no WithFSConfig, no WithSysNanotime, no
	// WithRandSource, no WithEnv — the entrypoint sees only stdin.

	mod, err := s.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		if ctx.Err() != nil {
			return policy.DecisionSet{}, nil, &EvaluationError{Code: ErrEvaluationTimeout, Message: ctx.Err().Error()}
		}
		return policy.DecisionSet{}, nil, &EvaluationError{Code: ErrEvaluationTrap, Message: err.Error()}
	}
	defer func() { _ = mod.Close(ctx) }()

	if stdout.Len() > signalLikeOutputCap {
		return policy.DecisionSet{}, nil, &EvaluationError{Code: ErrEvaluationOutput, Message: fmt.Sprintf("output %d bytes exceeds cap %d", stdout.Len(), signalLikeOutputCap)}
	}

	set, diagnostics := parseVerbs(stdout.Bytes(), layer)
	return set, diagnostics, nil
}

// signalLikeOutputCap bounds the aggregation entrypoint's stdout, the
// same 1MiB ceiling the teacher's sandbox.OutputMaxBytes enforces.
const signalLikeOutputCap = 1024 * 1024
