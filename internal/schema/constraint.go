package schema

import (
	"math"
	"reflect"
	"regexp"
	"unicode/utf8"
)

// Constraint is the resolved, reference-free view of a schema node
type Constraint struct {
	Type             string   `json:"type,omitempty"`
	Format           string   `json:"format,omitempty"`
	Enum             []any    `json:"enum,omitempty"`
	Minimum          *float64 `json:"minimum,omitempty"`
	Maximum          *float64 `json:"maximum,omitempty"`
	ExclusiveMinimum bool     `json:"exclusiveMinimum,omitempty"`
	ExclusiveMaximum bool     `json:"exclusiveMaximum,omitempty"`
	MultipleOf       *float64 `json:"multipleOf,omitempty"`
	MinLength        *int     `json:"minLength,omitempty"`
	MaxLength        *int     `json:"maxLength,omitempty"`
	Pattern          string   `json:"pattern,omitempty"`
	MinItems         *int     `json:"minItems,omitempty"`
	MaxItems         *int     `json:"maxItems,omitempty"`
	Required         bool     `json:"required,omitempty"`
	Nullable         bool     `json:"nullable,omitempty"`
}

// Unknown is the constraint used when a schema node cannot be resolved
func Unknown() *Constraint {
	return &Constraint{Type: TypeUnknown}
}

// Schema type names
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
	TypeUnknown = "unknown"
)

var knownTypes = map[string]bool{
	TypeString: true, TypeInteger: true, TypeNumber: true, TypeBoolean: true,
	TypeObject: true, TypeArray: true, "null": true,
}

// AdmitsNumber reports whether f satisfies the numeric bounds
func (c *Constraint) AdmitsNumber(f float64) bool {
	if c == nil {
		return true
	}
	if c.Minimum != nil && (f < *c.Minimum || (c.ExclusiveMinimum && f == *c.Minimum)) {
		return false
	}
	if c.Maximum != nil && (f > *c.Maximum || (c.ExclusiveMaximum && f == *c.Maximum)) {
		return false
	}
	if c.MultipleOf != nil && *c.MultipleOf > 0 {
		q := f / *c.MultipleOf
		if math.Abs(q-math.Round(q)) > 1e-9 {
			return false
		}
	}
	return true
}

// AdmitsString reports whether s satisfies length and pattern constraints.
// An uncompilable pattern is ignored.
func (c *Constraint) AdmitsString(s string) bool {
	if c == nil {
		return true
	}
	n := utf8.RuneCountInString(s)
	if c.MinLength != nil && n < *c.MinLength {
		return false
	}
	if c.MaxLength != nil && n > *c.MaxLength {
		return false
	}
	if c.Pattern != "" {
		if re, err := regexp.Compile(c.Pattern); err == nil && !re.MatchString(s) {
			return false
		}
	}
	return true
}

// Admits checks a synthesized scalar against the constraint
func (c *Constraint) Admits(v any) bool {
	if c == nil {
		return true
	}
	if len(c.Enum) > 0 {
		for _, e := range c.Enum {
			if equalScalar(e, v) {
				return true
			}
		}
		return false
	}
	switch t := v.(type) {
	case string:
		return c.AdmitsString(t)
	case int64:
		return c.AdmitsNumber(float64(t))
	case int:
		return c.AdmitsNumber(float64(t))
	case float64:
		return c.AdmitsNumber(t)
	}
	return true
}

func equalScalar(a, b any) bool {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}
