package curriculum

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const courseSchema = `{
  "type": "object",
  "required": ["id", "sections"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "name": {"type": "string"},
    "sections": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "topics"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "topics": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "key": {"type": "string"},
                "title": {"type": "string"},
                "body": {"type": "string"},
                "quiz": {
                  "type": "object",
                  "properties": {
                    "pass_score": {"type": "number", "minimum": 0, "maximum": 100}
                  }
                },
                "coding": {
                  "type": "object",
                  "required": ["language_id"],
                  "properties": {
                    "language_id": {"type": "integer", "minimum": 1},
                    "stdin": {"type": "string"},
                    "expected_output": {"type": "string"}
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

var courseSchemaLoader = gojsonschema.NewStringLoader(courseSchema)

// ValidateDocument checks a decoded course document against the course schema.
func ValidateDocument(doc any) error {
	result, err := gojsonschema.Validate(courseSchemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate course document: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid course document: %s", strings.Join(msgs, "; "))
}
