package runtime

import (
	"encoding/json"
	"fmt"

	"github.com/eqtylab/cupcake/internal/policy"
)

// rawVerb is the wire shape the aggregation entrypoint emits on
// stdout: a flat JSON object tagged by "kind", carrying the union of
// every verb's fields. Decoding into one flat struct first lets a
// single malformed verb be dropped without losing the rest (spec.md
// §4.6: "drop that verb and record a diagnostic; other verbs
// survive").
type rawVerb struct {
	Kind         string         `json:"kind"`
	Reason       string         `json:"reason"`
	Severity     policy.Severity `json:"severity"`
	RuleID       string         `json:"rule_id"`
	Question     string         `json:"question,omitempty"`
	Priority     int            `json:"priority,omitempty"`
	UpdatedInput map[string]any `json:"updated_input,omitempty"`
	BroadScope   bool           `json:"broad_scope,omitempty"`
	Text         string         `json:"text,omitempty"`
}

// parseVerbs decodes the raw JSON array the aggregation entrypoint
// wrote to stdout into a DecisionSet tagged with layer, collecting one
// diagnostic string per verb dropped for missing mandatory fields.
func parseVerbs(raw []byte, layer policy.Layer) (policy.DecisionSet, []string) {
	set := policy.DecisionSet{Layer: layer}
	var diagnostics []string

	var verbs []rawVerb
	if err := json.Unmarshal(raw, &verbs); err != nil {
		return set, []string{fmt.Sprintf("evaluator: malformed verb array: %v", err)}
	}

	for i, v := range verbs {
		switch v.Kind {
		case "halt":
			if v.RuleID == "" || v.Reason == "" {
				diagnostics = append(diagnostics, missingFieldDiagnostic(i, "halt"))
				continue
			}
			set.Halts = append(set.Halts, policy.Halt{ReasonText: v.Reason, SeverityV: v.Severity, RuleIDV: v.RuleID})
		case "deny":
			if v.RuleID == "" || v.Reason == "" {
				diagnostics = append(diagnostics, missingFieldDiagnostic(i, "deny"))
				continue
			}
			set.Denials = append(set.Denials, policy.Deny{ReasonText: v.Reason, SeverityV: v.Severity, RuleIDV: v.RuleID})
		case "block":
			if v.RuleID == "" || v.Reason == "" {
				diagnostics = append(diagnostics, missingFieldDiagnostic(i, "block"))
				continue
			}
			set.Blocks = append(set.Blocks, policy.Block{ReasonText: v.Reason, SeverityV: v.Severity, RuleIDV: v.RuleID})
		case "ask":
			if v.RuleID == "" || v.Reason == "" {
				diagnostics = append(diagnostics, missingFieldDiagnostic(i, "ask"))
				continue
			}
			set.Asks = append(set.Asks, policy.Ask{ReasonText: v.Reason, Question: v.Question, SeverityV: v.Severity, RuleIDV: v.RuleID})
		case "modify":
			if v.RuleID == "" || v.Reason == "" {
				diagnostics = append(diagnostics, missingFieldDiagnostic(i, "modify"))
				continue
			}
			set.Modifications = append(set.Modifications, policy.Modify{
				ReasonText:   v.Reason,
				Priority:     v.Priority,
				SeverityV:    v.Severity,
				RuleIDV:      v.RuleID,
				UpdatedInput: v.UpdatedInput,
			})
		case "allow_override":
			if v.RuleID == "" || v.Reason == "" {
				diagnostics = append(diagnostics, missingFieldDiagnostic(i, "allow_override"))
				continue
			}
			set.AllowOverrides = append(set.AllowOverrides, policy.AllowOverride{ReasonText: v.Reason, RuleIDV: v.RuleID, BroadScope: v.BroadScope})
		case "add_context":
			if v.Text == "" {
				diagnostics = append(diagnostics, missingFieldDiagnostic(i, "add_context"))
				continue
			}
			set.Contexts = append(set.Contexts, policy.AddContext{Text: v.Text})
		default:
			diagnostics = append(diagnostics, fmt.Sprintf("evaluator: verb %d has unknown kind %q, dropped", i, v.Kind))
		}
	}

	return set, diagnostics
}

func missingFieldDiagnostic(index int, kind string) string {
	return fmt.Sprintf("evaluator: verb %d (kind=%s) missing rule_id or reason, dropped", index, kind)
}
