package llm

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

var schemaReflector = jsonschema.Reflector{
	AllowAdditionalProperties: false,
	DoNotReference:            true,
}

// SchemaFor derives a FunctionSchema from a Go struct type using JSON
// schema reflection. Field names and descriptions come from the struct's
// json and jsonschema tags.
func SchemaFor[T any](name, description string) (FunctionSchema, error) {
	var v T
	schema := schemaReflector.Reflect(&v)
	raw, err := json.Marshal(schema)
	if err != nil {
		return FunctionSchema{}, fmt.Errorf("marshal schema for %s: %w", name, err)
	}
	return FunctionSchema{
		Name:        name,
		Description: description,
		Parameters:  raw,
	}, nil
}

// MustSchemaFor is SchemaFor for schemas built at package init time,
// where a reflection failure is a programming error.
func MustSchemaFor[T any](name, description string) FunctionSchema {
	schema, err := SchemaFor[T](name, description)
	if err != nil {
		panic(err)
	}
	return schema
}
