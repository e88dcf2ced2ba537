package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const problemSchemaJSON = `{
	"type": "object",
	"required": ["title", "description"],
	"properties": {
		"title": {"type": "string", "minLength": 1},
		"description": {"type": "string", "minLength": 1},
		"example": {"type": "string"},
		"constraints": {"type": "string"},
		"difficulty": {"type": "string"},
		"code_templates": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["language", "code"],
				"properties": {
					"language": {"type": "string", "minLength": 1},
					"code": {"type": "string", "minLength": 1}
				}
			}
		},
		"tags": {"type": "array", "items": {"type": "string"}}
	}
}`

const testCasesSchemaJSON = `{
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "object",
		"required": ["input", "expected_output"],
		"properties": {
			"input": {"type": "string", "minLength": 1},
			"expected_output": {"type": "string", "minLength": 1}
		}
	}
}`

var (
	problemSchema   = jsonschema.MustCompileString("problem.json", problemSchemaJSON)
	testCasesSchema = jsonschema.MustCompileString("test_cases.json", testCasesSchemaJSON)
)

func validateAgainst(schema *jsonschema.Schema, raw string) error {
	var value interface{}
	decoder := json.NewDecoder(bytes.NewReader([]byte(raw)))
	decoder.UseNumber()
	if err := decoder.Decode(&value); err != nil {
		return fmt.Errorf("decode generated json: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("generated json rejected by schema: %w", err)
	}
	return nil
}

// extractJSONObject pulls the first balanced JSON object out of model text
// that may wrap it in prose or a markdown fence.
func extractJSONObject(text string) string {
	return extractBalanced(text, '{', '}')
}

// extractJSONArray pulls the first balanced JSON array out of model text.
func extractJSONArray(text string) string {
	return extractBalanced(text, '[', ']')
}

func extractBalanced(text string, opener, closer byte) string {
	start := strings.IndexByte(text, opener)
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == opener:
			depth++
		case c == closer:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
