package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"

	"github.com/eqtylab/cupcake/internal/harness"
	"github.com/eqtylab/cupcake/internal/policy"
	"github.com/eqtylab/cupcake/internal/preprocess"
	"github.com/eqtylab/cupcake/internal/runtime"
	"github.com/eqtylab/cupcake/internal/synth"
	"github.com/eqtylab/cupcake/internal/telemetry"
)

// Orchestrator drives one event through the full pipeline (spec.md
// §4.9). A single instance is built once per `cupcake eval` process
// invocation and used for exactly one event.
type Orchestrator struct {
	Preprocessor *preprocess.Preprocessor
	Global       Layer
	Project      Layer
	Pool         *runtime.Pool
	Telemetry    *telemetry.Provider
	Adapter      harness.Adapter
	Strict       bool
	FailMode     runtime.FailMode

	// lastEnriched holds the most recently preprocessed event, so
	// fireActions can evaluate `when` guards against it after Run has
	// already written the response. Safe unshared state: one
	// Orchestrator handles exactly one event per process.
	lastEnriched map[string]any
}

// Run executes the lifecycle of spec.md §4.9 steps 1-8 and returns the
// process exit code. It never panics outward: a panic during
// evaluation is recovered and converted into a fail-open/fail-closed
// FinalDecision per o.FailMode.
func (o *Orchestrator) Run(ctx context.Context, stdin []byte, stdout io.Writer) (exitCode int) {
	ctx, rootSpan := o.Telemetry.StartInvocation(ctx, o.Adapter.Name())
	defer rootSpan.End()

	fd := o.runPipeline(ctx, stdin)

	resp, err := harness.Marshal(o.Adapter, fd)
	if err != nil {
		// Marshal failure is a last-resort internal error: fail open
		// with no contexts rather than crash the harness's hook call.
		resp, _ = harness.Marshal(o.Adapter, policy.Allow())
	}
	_, _ = stdout.Write(resp)
	_, _ = stdout.Write([]byte("\n"))

	o.fireActions(fd)

	return o.Adapter.ExitCode(fd, o.Strict)
}

// fireActions runs both layers' action definitions as a side effect of
// fd, after the hook response is already on stdout (spec.md §1 "no
// network I/O on the hot path"; actions never gate the response they
// react to). It blocks the process exit only long enough for actions
// to finish or time out — still short-lived per invocation, just not
// on the latency-sensitive path that produced fd.
func (o *Orchestrator) fireActions(fd policy.FinalDecision) {
	decision := map[string]any{
		"kind":     string(fd.Kind),
		"reason":   fd.Reason,
		"rule_id":  fd.RuleID,
		"severity": string(fd.Severity),
	}
	for _, layer := range []Layer{o.Global, o.Project} {
		runner, err := layer.actionRunner()
		if err != nil || runner == nil {
			continue
		}
		runner.Fire(context.Background(), o.lastEnriched, decision)
	}
}

func (o *Orchestrator) runPipeline(ctx context.Context, stdin []byte) (fd policy.FinalDecision) {
	defer func() {
		if r := recover(); r != nil {
			fd = o.onEvaluationFailure(fmt.Errorf("panic during evaluation: %v", r))
		}
	}()

	_, enrichSpan := o.Telemetry.StartSpan(ctx, "ingest.enrich")
	enriched, err := o.Preprocessor.ProcessJSON(stdin)
	enrichSpan.End()
	if err != nil {
		return o.failureDecision(fmt.Sprintf("malformed event JSON: %v", err))
	}

	o.lastEnriched = enriched

	event, _ := enriched["hook_event_name"].(string)
	tool, _ := enriched["tool_name"].(string)

	globalRoute := o.Global.Router.Route(event, tool)
	projectRoute := o.Project.Router.Route(event, tool)
	if globalRoute.Empty() && projectRoute.Empty() {
		return policy.Allow()
	}

	o.attachSignals(ctx, enriched, globalRoute.RequiredSignals, o.Global)
	o.attachSignals(ctx, enriched, projectRoute.RequiredSignals, o.Project)
	enrichedJSON, err := json.Marshal(enriched)
	if err != nil {
		return o.failureDecision(fmt.Sprintf("re-marshal enriched event with signals: %v", err))
	}

	globalSet, err := o.evaluateLayer(ctx, o.Global, enrichedJSON)
	if err != nil {
		return o.onEvaluationFailure(err)
	}
	projectSet, err := o.evaluateLayer(ctx, o.Project, enrichedJSON)
	if err != nil {
		return o.onEvaluationFailure(err)
	}

	_, synthSpan := o.Telemetry.StartSpan(ctx, "synthesize")
	result := synth.Synthesize(globalSet, projectSet)
	synthSpan.SetAttributes(attribute.String("kind", string(result.Kind)))
	synthSpan.End()

	return result
}

// attachSignals collects layer's required signals and merges them
// into enriched["signals"] under their own names (spec.md §4.4: "input
// available to policies at input.signals.<name>").
func (o *Orchestrator) attachSignals(ctx context.Context, enriched map[string]any, names []string, layer Layer) {
	if len(names) == 0 {
		return
	}
	_, span := o.Telemetry.StartSpan(ctx, "signals."+layer.Name, attribute.StringSlice("names", names))
	defer span.End()

	eventJSON, err := json.Marshal(enriched)
	if err != nil {
		return
	}

	runner := layer.signalRunner()
	results := runner.Collect(ctx, names, eventJSON)

	signals, _ := enriched["signals"].(map[string]any)
	if signals == nil {
		signals = make(map[string]any)
	}
	for name, res := range results {
		signals[name] = res
	}
	enriched["signals"] = signals
}

func (o *Orchestrator) evaluateLayer(ctx context.Context, layer Layer, enrichedJSON []byte) (policy.DecisionSet, error) {
	if layer.Module == nil {
		return policy.DecisionSet{Layer: layerTag(layer.Name)}, nil
	}

	_, span := o.Telemetry.StartSpan(ctx, "evaluate."+layer.Name)
	defer span.End()

	set, diagnostics, err := o.Pool.Evaluate(ctx, layer.Module, layerTag(layer.Name), enrichedJSON)
	for _, d := range diagnostics {
		span.AddEvent(d)
	}
	if err != nil {
		span.RecordError(err)
		return policy.DecisionSet{}, err
	}
	return set, nil
}

func layerTag(name string) policy.Layer {
	if name == "global" {
		return policy.LayerGlobal
	}
	return policy.LayerProject
}

// onEvaluationFailure implements spec.md §4.6's fail-open/fail-closed
// escalation: fail-open allows through with an error recorded in the
// trace, fail-closed denies.
func (o *Orchestrator) onEvaluationFailure(err error) policy.FinalDecision {
	if o.FailMode == runtime.FailClosed {
		return policy.FinalDecision{
			Kind:     policy.KindDeny,
			Reason:   fmt.Sprintf("evaluation failed (fail-closed): %v", err),
			RuleID:   "cupcake.evaluator.failure",
			Severity: policy.SeverityHigh,
		}
	}
	return o.failureDecision(err.Error())
}

func (o *Orchestrator) failureDecision(reason string) policy.FinalDecision {
	return policy.Allow(fmt.Sprintf("cupcake: evaluation error suppressed (fail-open): %s", reason))
}
