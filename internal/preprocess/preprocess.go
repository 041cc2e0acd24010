// Package preprocess implements the Preprocessor (spec.md §4.5): a
// set of idempotent transforms that turn a raw, harness-native event
// into an enriched value every policy can reason over uniformly.
// Grounded on the teacher's pkg/canonicalize content-normalization
// idiom and pkg/firewall's jsonschema-based validation, generalized
// from artifact canonicalization to per-field event enrichment.
package preprocess

import (
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"
)

// Preprocessor applies the normalization rules of spec.md §4.5 to a
// raw harness event.
type Preprocessor struct {
	// HarnessTag is attached to every event as the canonical "harness"
	// field (spec.md §4.5 rule 5).
	HarnessTag string
	// FieldAliases maps a harness's alternate field name to the
	// canonical name cupcake policies expect (spec.md §4.5 rule 1).
	FieldAliases map[string]string
	// Trace, if set, receives the name of every rule that actually
	// changed something, for the telemetry span (spec.md §4.5 "Record
	// every operation applied into the evaluation trace span").
	Trace func(rule string)
}

// Default field aliases covering the harness shapes spec.md §4.5
// names as an example ("tool"/"args" instead of
// "tool_name"/"tool_input").
func defaultAliases() map[string]string {
	return map[string]string{
		"tool": "tool_name",
		"args": "tool_input",
	}
}

// New creates a Preprocessor for the given harness tag, with the
// default field alias table. Callers may replace FieldAliases for a
// harness with different quirks.
func New(harnessTag string) *Preprocessor {
	return &Preprocessor{HarnessTag: harnessTag, FieldAliases: defaultAliases()}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// shellFields are the event fields whitespace normalization applies
// to (spec.md §4.5 rule 4: "Whitespace normalization on shell command
// fields").
var shellFields = []string{"command"}

// Process runs every rule in spec.md §4.5 order and returns the
// enriched event. Process is idempotent: Process(Process(x)) ==
// Process(x) as JSON values (spec.md §8), because every rule only adds or
// overwrites derived fields from the same source data — never reads
// its own output as new input.
func (p *Preprocessor) Process(event map[string]any) map[string]any {
	out := cloneShallow(event)

	p.mapHarnessFields(out)
	p.unifyContent(out)
	p.resolveSymlink(out)
	p.normalizeWhitespace(out)
	p.attachHarnessTag(out)

	return out
}

// ProcessJSON is a convenience wrapper for callers holding raw JSON
// bytes rather than an already-decoded map.
func (p *Preprocessor) ProcessJSON(raw []byte) (map[string]any, error) {
	var event map[string]any
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, err
	}
	return p.Process(event), nil
}

func cloneShallow(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (p *Preprocessor) trace(rule string) {
	if p.Trace != nil {
		p.Trace(rule)
	}
}

// mapHarnessFields copies alternate-named fields to their canonical
// name, leaving the originals intact (spec.md §4.5 rule 1).
func (p *Preprocessor) mapHarnessFields(event map[string]any) {
	changed := false
	for alt, canonical := range p.FieldAliases {
		if v, ok := event[alt]; ok {
			if _, exists := event[canonical]; !exists {
				event[canonical] = v
				changed = true
			}
		}
	}
	if changed {
		p.trace("harness_field_mapping")
	}
}

// unifyContent exposes a write-style "content" field as "new_string"
// too (spec.md §4.5 rule 2).
func (p *Preprocessor) unifyContent(event map[string]any) {
	content, ok := event["content"]
	if !ok {
		return
	}
	if _, exists := event["new_string"]; exists {
		return
	}
	event["new_string"] = content
	p.trace("content_unification")
}

// filePathFields are the event fields that may carry a path to
// resolve for symlink detection.
var filePathFields = []string{"file_path", "path"}

// resolveSymlink sets resolved_file_path and is_symlink from whichever
// file-path field is present, without ever stripping the original
// field (spec.md §4.5 rule 3).
func (p *Preprocessor) resolveSymlink(event map[string]any) {
	for _, field := range filePathFields {
		raw, ok := event[field]
		if !ok {
			continue
		}
		path, ok := raw.(string)
		if !ok || path == "" {
			continue
		}

		resolved, err := filepath.EvalSymlinks(path)
		isSymlink := err == nil && resolved != path
		if err != nil {
			abs, absErr := filepath.Abs(path)
			if absErr == nil {
				resolved = abs
			} else {
				resolved = path
			}
		}

		event["resolved_file_path"] = resolved
		event["is_symlink"] = isSymlink
		p.trace("symlink_resolution")
		return
	}
}

// normalizeWhitespace collapses internal whitespace runs in shell
// command fields for consistent pattern matching (spec.md §4.5 rule 4).
func (p *Preprocessor) normalizeWhitespace(event map[string]any) {
	original, ok := event["tool_input"].(map[string]any)
	if !ok {
		return
	}
	toolInput := cloneShallow(original)
	changed := false
	for _, field := range shellFields {
		raw, ok := toolInput[field]
		if !ok {
			continue
		}
		str, ok := raw.(string)
		if !ok {
			continue
		}
		normalized := strings.TrimSpace(whitespaceRun.ReplaceAllString(str, " "))
		if normalized != str {
			toolInput[field] = normalized
			changed = true
		}
	}
	if changed {
		event["tool_input"] = toolInput
		p.trace("whitespace_normalization")
	}
}

// attachHarnessTag sets the canonical "harness" field (spec.md §4.5
// rule 5).
func (p *Preprocessor) attachHarnessTag(event map[string]any) {
	if event["harness"] == p.HarnessTag {
		return
	}
	event["harness"] = p.HarnessTag
	p.trace("harness_tag")
}
