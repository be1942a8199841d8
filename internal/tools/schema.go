package tools

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// ObjectSchema builds the {type:"object", properties, required} input schema.
func ObjectSchema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	if props == nil {
		props = map[string]*jsonschema.Schema{}
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

// Param describes a single scalar parameter.
func Param(typ, description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: typ, Description: description}
}

func stringArg(args map[string]any, key string) (string, bool, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", true, fmt.Errorf("argument %q must be a string, got %T", key, v)
	}
	return s, true, nil
}

func numberArg(args map[string]any, key string) (float64, bool, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		return n, true, nil
	case int:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	default:
		return 0, true, fmt.Errorf("argument %q must be a number, got %T", key, v)
	}
}
