package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/raaihank/jsonnymous/internal/document"
	"gopkg.in/yaml.v3"
)

// ErrMalformed is wrapped when a schema document cannot be parsed
var ErrMalformed = errors.New("malformed schema")

// ErrUnknownSchema is returned when a named schema does not exist
var ErrUnknownSchema = errors.New("unknown schema")

// Document is a loaded OpenAPI 3, Swagger 2 or bare JSON-Schema document
type Document struct {
	Root        map[string]any
	Definitions map[string]any
}

// Load parses a schema document from JSON or YAML
func Load(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformed)
	}

	var raw any
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	} else if err := yaml.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	root, ok := normalize(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrMalformed)
	}

	doc := &Document{Root: root, Definitions: map[string]any{}}
	if components, ok := root["components"].(map[string]any); ok {
		if schemas, ok := components["schemas"].(map[string]any); ok {
			doc.Definitions = schemas
		}
	} else if defs, ok := root["definitions"].(map[string]any); ok {
		doc.Definitions = defs
	}
	return doc, nil
}

// normalize converts YAML's map[any]any into map[string]any recursively
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	default:
		return v
	}
}

// IsSchema reports whether the document root is itself a schema rather
// than an API description
func (d *Document) IsSchema() bool {
	for _, key := range []string{"type", "properties", "items", "$ref", "allOf", "oneOf", "anyOf"} {
		if _, ok := d.Root[key]; ok {
			return true
		}
	}
	return false
}

// Names returns the definition names in sorted order
func (d *Document) Names() []string {
	names := make([]string, 0, len(d.Definitions))
	for name := range d.Definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MatchThreshold is the minimum score for an automatic root match
const MatchThreshold = 0.5

// SelectRoot picks the schema describing the skeleton: the named
// definition, the document itself when it is a bare schema, or the
// definition that best matches the skeleton's keys and value types.
// It returns nil when nothing applies.
func (d *Document) SelectRoot(skeleton *document.Node, name string) (map[string]any, string, error) {
	if name != "" {
		if _, ok := d.Definitions[name].(map[string]any); !ok {
			return nil, "", fmt.Errorf("%w: %s", ErrUnknownSchema, name)
		}
		return wrapForSkeleton(skeleton, name), name, nil
	}

	if d.IsSchema() {
		return d.Root, "", nil
	}

	target := skeleton
	if skeleton != nil && skeleton.Kind == document.KindArray && len(skeleton.Items) > 0 {
		target = skeleton.Items[0]
	}
	if target == nil || target.Kind != document.KindObject {
		return nil, "", nil
	}

	best, bestScore := "", 0.0
	for _, candidate := range d.Names() {
		def, ok := d.Definitions[candidate].(map[string]any)
		if !ok {
			continue
		}
		if score := matchScore(target, def); score > bestScore {
			best, bestScore = candidate, score
		}
	}
	if bestScore <= MatchThreshold {
		return nil, "", nil
	}
	return wrapForSkeleton(skeleton, best), best, nil
}

// wrapForSkeleton references a definition by name, as an array of it when
// the skeleton root is an array
func wrapForSkeleton(skeleton *document.Node, name string) map[string]any {
	ref := map[string]any{"$ref": "#/definitions/" + name}
	if skeleton != nil && skeleton.Kind == document.KindArray {
		return map[string]any{"type": TypeArray, "items": ref}
	}
	return ref
}

func matchScore(obj *document.Node, def map[string]any) float64 {
	props, ok := def["properties"].(map[string]any)
	if !ok || len(props) == 0 || len(obj.Fields) == 0 {
		return 0
	}

	common, typeMatches := 0, 0
	for _, f := range obj.Fields {
		prop, ok := props[f.Key]
		if !ok {
			continue
		}
		common++
		if typesMatch(f.Value, prop) {
			typeMatches++
		}
	}
	union := len(props) + len(obj.Fields) - common
	keyScore := float64(common) / float64(union)

	typeScore := 0.0
	if common > 0 {
		typeScore = float64(typeMatches) / float64(common)
	}
	return keyScore*0.6 + typeScore*0.4
}

func typesMatch(n *document.Node, prop any) bool {
	p, ok := prop.(map[string]any)
	if !ok {
		return true
	}
	t, ok := p["type"].(string)
	if !ok {
		return true
	}
	switch n.Kind {
	case document.KindNull:
		return true
	case document.KindString:
		return t == TypeString
	case document.KindBool:
		return t == TypeBoolean
	case document.KindNumber:
		return t == TypeNumber || t == TypeInteger
	case document.KindObject:
		return t == TypeObject
	case document.KindArray:
		return t == TypeArray
	}
	return false
}

// refName extracts the definition name from a local reference
func refName(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return strings.TrimPrefix(ref, "#")
}
