package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eqtylab/cupcake/internal/policy"
)

// metadataBlockPattern matches a leading YAML-in-comment metadata
// block, the convention the out-of-scope rule-language compiler uses
// to annotate routing requirements directly in policy source (spec.md
// §2 "Policy Compiler Driver... Extracts each policy's metadata
// block"). Real deployments mine this from compiler-emitted
// annotations rather than regexing comments; this lightweight
// extraction keeps the engine's tests self-contained without a real
// `opa` binary on PATH.
var metadataBlockPattern = regexp.MustCompile(`# METADATA\n((?:#.*\n?)+)`)

type rawMetadata struct {
	Custom struct {
		PolicyID string   `yaml:"policy_id"`
		Events   []string `yaml:"required_events"`
		Tools    []string `yaml:"required_tools"`
		Signals  []string `yaml:"required_signals"`
		Severity string   `yaml:"severity"`
	} `yaml:"custom"`
	Title string `yaml:"title"`
}

// extractMetadata reads each source file's leading METADATA comment
// block and parses the routing fields out of it. Files without a
// recognizable block produce a warning and are compiled without
// routing metadata (spec.md §4.2 edge case).
func extractMetadata(sources []string) ([]policy.Metadata, []string, error) {
	var metas []policy.Metadata
	var warnings []string

	for _, src := range sources {
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, nil, fmt.Errorf("compiler: read %s: %w", src, err)
		}

		meta, ok, err := parseMetadataBlock(src, data)
		if err != nil {
			return nil, nil, &CompileError{Failures: []SourceFailure{{File: src, Message: err.Error()}}}
		}
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s: no METADATA block found; policy will be compiled but never routed", src))
			continue
		}
		metas = append(metas, meta)
	}

	return metas, warnings, nil
}

func parseMetadataBlock(src string, data []byte) (policy.Metadata, bool, error) {
	match := metadataBlockPattern.FindSubmatch(data)
	if match == nil {
		return policy.Metadata{}, false, nil
	}

	// Strip the leading "# " comment marker from every line so the
	// block parses as plain YAML.
	var lines []string
	for _, line := range strings.Split(string(match[1]), "\n") {
		lines = append(lines, strings.TrimPrefix(strings.TrimPrefix(line, "#"), " "))
	}

	var raw rawMetadata
	if err := yaml.Unmarshal([]byte(strings.Join(lines, "\n")), &raw); err != nil {
		return policy.Metadata{}, false, fmt.Errorf("parse metadata block: %w", err)
	}

	policyID := raw.Custom.PolicyID
	if policyID == "" {
		policyID = derivePolicyID(src)
	}

	return policy.Metadata{
		PolicyID:        policyID,
		RequiredEvents:  raw.Custom.Events,
		RequiredTools:   raw.Custom.Tools,
		RequiredSignals: raw.Custom.Signals,
		Severity:        policy.Severity(strings.ToUpper(raw.Custom.Severity)),
		Description:     raw.Title,
	}, true, nil
}

// derivePolicyID turns a source file's path into the stable dotted
// path spec.md §3 describes ("derived from its source package") when
// the metadata block didn't name one explicitly.
func derivePolicyID(src string) string {
	rel := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	dir := filepath.Base(filepath.Dir(src))
	return dir + "." + rel
}
