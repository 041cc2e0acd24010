package policy

// Verb is the common shape every decision verb satisfies: it always
// names the rule that produced it and carries a human reason.
type Verb interface {
	RuleID() string
	Reason() string
}

// Halt is a terminal stop. Nothing overrides a Halt.
type Halt struct {
	ReasonText string   `json:"reason"`
	SeverityV  Severity `json:"severity"`
	RuleIDV    string   `json:"rule_id"`
}

func (h Halt) RuleID() string { return h.RuleIDV }
func (h Halt) Reason() string { return h.ReasonText }

// Deny blocks the action before execution.
type Deny struct {
	ReasonText string   `json:"reason"`
	SeverityV  Severity `json:"severity"`
	RuleIDV    string   `json:"rule_id"`
}

func (d Deny) RuleID() string { return d.RuleIDV }
func (d Deny) Reason() string { return d.ReasonText }

// Block stops the action after execution, or at a prompt boundary.
type Block struct {
	ReasonText string   `json:"reason"`
	SeverityV  Severity `json:"severity"`
	RuleIDV    string   `json:"rule_id"`
}

func (b Block) RuleID() string { return b.RuleIDV }
func (b Block) Reason() string { return b.ReasonText }

// Ask requires the human to confirm before the action proceeds.
type Ask struct {
	ReasonText   string   `json:"reason"`
	Question     string   `json:"question"`
	SeverityV    Severity `json:"severity"`
	RuleIDV      string   `json:"rule_id"`
}

func (a Ask) RuleID() string { return a.RuleIDV }
func (a Ask) Reason() string { return a.ReasonText }

// Modify rewrites the tool input before execution. Priority is 1-100;
// higher wins field-by-field when multiple Modify verbs collide.
type Modify struct {
	ReasonText   string         `json:"reason"`
	Priority     int            `json:"priority"`
	SeverityV    Severity       `json:"severity"`
	RuleIDV      string         `json:"rule_id"`
	UpdatedInput map[string]any `json:"updated_input"`
}

func (m Modify) RuleID() string { return m.RuleIDV }
func (m Modify) Reason() string { return m.ReasonText }

// AllowOverride is an explicit allow that suppresses non-halt denials
// from the same layer. Scoped to the same layer it was produced in;
// it never reaches across layers.
type AllowOverride struct {
	ReasonText string `json:"reason"`
	RuleIDV    string `json:"rule_id"`
	// BroadScope, when true, suppresses any deny/block in the layer
	// regardless of rule_id (spec.md §4.7, "or carries a broader scope
	// flag").
	BroadScope bool `json:"broad_scope,omitempty"`
}

func (a AllowOverride) RuleID() string { return a.RuleIDV }
func (a AllowOverride) Reason() string { return a.ReasonText }

// AddContext injects text into the agent's context window. It never
// blocks anything; it is additive only.
type AddContext struct {
	Text string `json:"text"`
}

// DecisionSet is the raw union of verbs a single layer's aggregation
// entrypoint produced, tagged with the layer it came from so the
// Synthesizer can apply global-before-project ordering (spec.md §4.7).
type DecisionSet struct {
	Layer          Layer
	Halts          []Halt
	Denials        []Deny
	Blocks         []Block
	Asks           []Ask
	Modifications  []Modify
	AllowOverrides []AllowOverride
	Contexts       []AddContext
}

// Empty reports whether the set produced no verbs at all.
func (d DecisionSet) Empty() bool {
	return len(d.Halts) == 0 && len(d.Denials) == 0 && len(d.Blocks) == 0 &&
		len(d.Asks) == 0 && len(d.Modifications) == 0 &&
		len(d.AllowOverrides) == 0 && len(d.Contexts) == 0
}
