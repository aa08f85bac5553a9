package sudo

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const modelsSchemaJSON = `{
  "type": "object",
  "required": ["data"],
  "properties": {
    "data": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["model_name"],
        "properties": {
          "model_name": {"type": "string", "minLength": 1},
          "model_provider": {"type": "string"},
          "sudo_model_id": {"type": "integer"}
        }
      }
    }
  }
}`

const completionSchemaJSON = `{
  "type": "object",
  "required": ["choices"],
  "properties": {
    "choices": {"type": "array"},
    "usage": {
      "type": ["object", "null"],
      "properties": {
        "completion_tokens": {"type": ["integer", "null"]}
      }
    }
  }
}`

var (
	modelsSchema     = mustCompile(modelsSchemaJSON)
	completionSchema = mustCompile(completionSchemaJSON)
)

func mustCompile(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile response schema: %v", err))
	}
	return schema
}

// validateBody checks body against schema and wraps every failure in ErrMalformedResponse.
func validateBody(schema *gojsonschema.Schema, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrMalformedResponse, strings.Join(msgs, "; "))
}
