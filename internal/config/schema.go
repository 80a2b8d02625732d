package config

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON string

var schemaLoader = gojsonschema.NewStringLoader(schemaJSON)

// validateSchema checks a decoded YAML document against the embedded
// JSON schema. It returns one message per violation.
func validateSchema(doc map[string]interface{}) ([]string, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	var messages []string
	for _, desc := range result.Errors() {
		// "if/then" wrappers add noise without naming a field.
		if desc.Type() == "condition_then" || desc.Type() == "number_all_of" {
			continue
		}
		messages = append(messages, desc.String())
	}
	return messages, nil
}

func formatViolations(messages []string) string {
	return strings.Join(messages, "\n  - ")
}
