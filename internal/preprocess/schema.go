package preprocess

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaValidator optionally checks a raw harness event against a
// per-harness JSON Schema before preprocessing. Grounded on the
// teacher's pkg/firewall.PolicyFirewall.AllowTool schema compilation
// idiom; unlike the firewall, a validation failure here is a
// diagnostic, never a block — spec.md treats the event shape as
// opaque and harness-specific, so schema checks only help surface a
// malformed event early in telemetry.
type SchemaValidator struct {
	schemas map[string]*jsonschema.Schema
}

// NewSchemaValidator compiles the given harness->schema-document map.
func NewSchemaValidator(schemaDocs map[string]string) (*SchemaValidator, error) {
	v := &SchemaValidator{schemas: make(map[string]*jsonschema.Schema, len(schemaDocs))}
	for harness, doc := range schemaDocs {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		url := fmt.Sprintf("https://cupcake.schemas.local/event/%s.schema.json", harness)
		if err := c.AddResource(url, strings.NewReader(doc)); err != nil {
			return nil, fmt.Errorf("preprocess: load schema for %s: %w", harness, err)
		}
		compiled, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("preprocess: compile schema for %s: %w", harness, err)
		}
		v.schemas[harness] = compiled
	}
	return v, nil
}

// Validate checks event against the schema registered for harness, if
// any. A missing schema is not an error — validation is opt-in per
// harness.
func (v *SchemaValidator) Validate(harness string, event map[string]any) error {
	schema, ok := v.schemas[harness]
	if !ok {
		return nil
	}
	if err := schema.ValidateInterface(event); err != nil {
		return fmt.Errorf("event failed schema validation: %w", err)
	}
	return nil
}
