package schema

import (
	"fmt"

	"github.com/raaihank/jsonnymous/internal/document"
	"github.com/xeipuuv/gojsonschema"
)

// FieldError is a single validation failure
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validate checks doc against root. Local references are resolved against
// the document's definitions under both the OpenAPI 3 and Swagger 2 paths.
// Unsupported type names and unresolved references are dropped first, as
// the resolver does, so the rest of the schema still applies.
func (d *Document) Validate(doc *document.Node, root map[string]any) ([]FieldError, error) {
	if root == nil {
		return nil, nil
	}

	composed := d.supported(root).(map[string]any)
	if len(d.Definitions) > 0 {
		defs := d.supported(d.Definitions)
		composed["definitions"] = defs
		composed["components"] = map[string]any{"schemas": defs}
	}

	data, err := document.Marshal(doc, "")
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(composed), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to validate document: %w", err)
	}

	errs := make([]FieldError, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, FieldError{Field: e.Field(), Message: e.Description()})
	}
	return errs, nil
}

// supported returns a copy of a schema tree that gojsonschema accepts:
// "type" values outside the JSON Schema set are removed and local
// references point at #/definitions or are removed when unresolved
func (d *Document) supported(raw any) any {
	switch v := raw.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			switch s, isString := child.(string); {
			case k == "$ref" && isString:
				name := refName(s)
				if _, ok := d.Definitions[name]; ok {
					out[k] = "#/definitions/" + name
				}
				continue
			case k == "type":
				if t, ok := knownType(child); ok {
					out[k] = t
					continue
				}
				if _, isSchema := child.(map[string]any); !isSchema {
					continue
				}
			}
			out[k] = d.supported(child)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = d.supported(child)
		}
		return out
	default:
		return raw
	}
}

// knownType filters a "type" keyword value down to known type names
func knownType(t any) (any, bool) {
	switch v := t.(type) {
	case string:
		return v, knownTypes[v]
	case []any:
		kept := make([]any, 0, len(v))
		for _, name := range v {
			if s, ok := name.(string); ok && knownTypes[s] {
				kept = append(kept, s)
			}
		}
		return kept, len(kept) > 0
	}
	return nil, false
}
