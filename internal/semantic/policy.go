package semantic

import (
	"strings"
)

// Source records which signal decided a category
type Source int

const (
	SourceDefault Source = iota
	SourceSchema
	SourceKey
	SourceValue
	SourcePath
)

func (s Source) String() string {
	switch s {
	case SourceSchema:
		return "schema"
	case SourceKey:
		return "key"
	case SourceValue:
		return "value"
	case SourcePath:
		return "path"
	default:
		return "default"
	}
}

// MarshalText renders the source name in JSON output
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Signals are the inputs available for a single scalar leaf
type Signals struct {
	// Key is the nearest object key; attribute prefixes are stripped by the caller
	Key string
	// Value is the example scalar: string, int64, float64, bool or nil
	Value any
	// SchemaType and SchemaFormat come from the resolved constraint, if any
	SchemaType   string
	SchemaFormat string
}

// Decision is the outcome of Infer
type Decision struct {
	Category Category
	Source   Source
}

// Policy holds the ordered key-name and value-shape tables
type Policy struct {
	keyRules   []KeyRule
	shapeRules []ShapeRule
}

// NewPolicy creates a policy from explicit tables
func NewPolicy(keyRules []KeyRule, shapeRules []ShapeRule) *Policy {
	return &Policy{keyRules: keyRules, shapeRules: shapeRules}
}

// DefaultPolicy uses the built-in tables
func DefaultPolicy() *Policy {
	return NewPolicy(DefaultKeyRules(), DefaultShapeRules())
}

// WithKeyRules returns a copy of the policy with extra rules evaluated first
func (p *Policy) WithKeyRules(rules ...KeyRule) *Policy {
	keyRules := make([]KeyRule, 0, len(rules)+len(p.keyRules))
	keyRules = append(keyRules, rules...)
	keyRules = append(keyRules, p.keyRules...)
	return &Policy{keyRules: keyRules, shapeRules: p.shapeRules}
}

// KeyCategory applies the key-name table
func (p *Policy) KeyCategory(key string) (Category, bool) {
	key = strings.TrimPrefix(key, "@")
	if key == "" {
		return Unknown, false
	}
	for _, rule := range p.keyRules {
		if rule.Pattern.MatchString(key) {
			return rule.Category, true
		}
	}
	return Unknown, false
}

// ShapeCategory applies the value-shape table to a string
func (p *Policy) ShapeCategory(value string) (Category, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Unknown, false
	}
	for _, rule := range p.shapeRules {
		if c, ok := rule.Classify(value); ok {
			return c, true
		}
	}
	return Unknown, false
}

// Infer picks a category using, in order of precedence: the schema format,
// the key name, the value shape, and finally the value's type. Key and
// value decisions are only taken when they agree with the schema type and
// with the example's JSON type.
func (p *Policy) Infer(s Signals) Decision {
	if c, ok := FromFormat(s.SchemaFormat); ok {
		return Decision{Category: c, Source: SourceSchema}
	}

	accept := func(c Category) bool {
		return c.Compatible(s.SchemaType) && exampleCompatible(c, s.Value)
	}

	if c, ok := p.KeyCategory(s.Key); ok && accept(c) {
		return Decision{Category: c, Source: SourceKey}
	}

	if str, ok := s.Value.(string); ok {
		if c, ok := PlaceholderCategory(str); ok && c.Compatible(s.SchemaType) {
			return Decision{Category: c, Source: SourceValue}
		}
		if c, ok := p.ShapeCategory(str); ok && accept(c) {
			return Decision{Category: c, Source: SourceValue}
		}
	}

	if c, ok := typeCategory(s.Value); ok && accept(c) {
		return Decision{Category: c, Source: SourceValue}
	}

	switch s.SchemaType {
	case "integer":
		return Decision{Category: Integer, Source: SourceSchema}
	case "number":
		return Decision{Category: Number, Source: SourceSchema}
	case "boolean":
		return Decision{Category: Boolean, Source: SourceSchema}
	case "string":
		return Decision{Category: Word, Source: SourceSchema}
	}
	return Decision{Category: Unknown, Source: SourceDefault}
}

// exampleCompatible rejects categories whose JSON type contradicts a
// non-empty example value. Integers and floats are interchangeable.
func exampleCompatible(c Category, v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		if t == "" {
			return true
		}
		_, isPlaceholder := PlaceholderCategory(t)
		return isPlaceholder || c.JSONType() == "string"
	case int64, float64:
		return c.JSONType() == "integer" || c.JSONType() == "number"
	case bool:
		return c.JSONType() == "boolean"
	default:
		return true
	}
}

func typeCategory(v any) (Category, bool) {
	switch t := v.(type) {
	case bool:
		return Boolean, true
	case int64:
		return Integer, true
	case float64:
		return Number, true
	case string:
		s := strings.TrimSpace(t)
		switch {
		case s == "":
			return Unknown, false
		case !strings.ContainsAny(s, " \t\n"):
			return Word, true
		case len(s) > 50:
			return FreeText, true
		default:
			return Title, true
		}
	}
	return Unknown, false
}
