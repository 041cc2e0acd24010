// Package policy defines the data model shared by every stage of the
// evaluation pipeline: discovered policies, the decision verbs they
// emit, and the final synthesized decision. Nothing here performs I/O;
// it is the vocabulary the other internal packages speak.
package policy

// Severity is an enumerated ordering used for tie-breaking when two
// verbs of the same kind compete for the final decision.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// severityRank gives each severity a total order for tie-breaking;
// lower rank wins.
var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
	SeverityInfo:     4,
}

// Rank returns the ordering rank of s, defaulting to the lowest
// priority (as if INFO) for unrecognized values so a malformed
// severity never wins a tie-break by accident.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return severityRank[SeverityInfo]
}

// Layer identifies which policy set a verb or decision set came from.
type Layer string

const (
	LayerGlobal  Layer = "global"
	LayerProject Layer = "project"
)

// Metadata is the routing-relevant block every policy must declare
// (spec.md §3: "every non-system policy must declare at least one
// required event").
type Metadata struct {
	PolicyID        string   `json:"policy_id"`
	RequiredEvents  []string `json:"required_events"`
	RequiredTools   []string `json:"required_tools,omitempty"`
	RequiredSignals []string `json:"required_signals,omitempty"`
	Severity        Severity `json:"severity,omitempty"`
	Description     string   `json:"description,omitempty"`
}

// AllTools is the wildcard sentinel for "matches every tool".
const AllTools = "*"

// MatchesTool reports whether this metadata's tool scope covers the
// given tool name. Empty RequiredTools means "no tool restriction".
func (m Metadata) MatchesTool(tool string) bool {
	if len(m.RequiredTools) == 0 {
		return true
	}
	for _, t := range m.RequiredTools {
		if t == AllTools || t == tool {
			return true
		}
	}
	return false
}

// Policy is a single discovered and compiled unit.
type Policy struct {
	ID       string
	Source   string
	Metadata Metadata
}
