//go:build property
// +build property

package synth_test

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/eqtylab/cupcake/internal/policy"
	"github.com/eqtylab/cupcake/internal/synth"
)

// TestSynthesize_Deterministic verifies Synthesize(D) depends only on
// D's contents (spec.md §8: "synthesize(D) is deterministic and
// depends only on D").
func TestSynthesize_Deterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("same decision set yields same final decision", prop.ForAll(
		func(reasons []string, ruleIDs []string) bool {
			set := buildSet(reasons, ruleIDs)
			first := synth.Synthesize(set)
			second := synth.Synthesize(set)
			return reflect.DeepEqual(first, second)
		},
		gen.SliceOfN(5, gen.AlphaString()),
		gen.SliceOfN(5, gen.Identifier()),
	))

	properties.Property("synthesize always returns exactly one decision kind", prop.ForAll(
		func(reasons []string, ruleIDs []string) bool {
			set := buildSet(reasons, ruleIDs)
			fd := synth.Synthesize(set)
			switch fd.Kind {
			case policy.KindAllow, policy.KindDeny, policy.KindHalt, policy.KindAsk, policy.KindModify, policy.KindBlock:
				return true
			default:
				return false
			}
		},
		gen.SliceOfN(5, gen.AlphaString()),
		gen.SliceOfN(5, gen.Identifier()),
	))

	properties.TestingRun(t)
}

func buildSet(reasons, ruleIDs []string) policy.DecisionSet {
	n := len(reasons)
	if len(ruleIDs) < n {
		n = len(ruleIDs)
	}
	set := policy.DecisionSet{Layer: policy.LayerProject}
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			set.Denials = append(set.Denials, policy.Deny{
				ReasonText: reasons[i],
				SeverityV:  policy.SeverityMedium,
				RuleIDV:    ruleIDs[i],
			})
		} else {
			set.Contexts = append(set.Contexts, policy.AddContext{Text: reasons[i]})
		}
	}
	return set
}
