package schema

import (
	"fmt"
	"slices"
	"sort"

	"github.com/raaihank/jsonnymous/internal/document"
	"go.uber.org/zap"
)

// DefaultMaxRefDepth bounds nested $ref expansion
const DefaultMaxRefDepth = 8

// IssueKind classifies a recovered resolution problem
type IssueKind string

const (
	IssueCircularRef     IssueKind = "circular_ref"
	IssueRefDepth        IssueKind = "ref_depth_exceeded"
	IssueUnknownRef      IssueKind = "unknown_ref"
	IssueUnsupportedType IssueKind = "unsupported_type"
	IssueInvalidNode     IssueKind = "invalid_node"
)

// Issue records an unsupported or unresolvable schema construct. The
// affected path falls back to an unknown constraint.
type Issue struct {
	Path    string    `json:"path"`
	Kind    IssueKind `json:"kind"`
	Message string    `json:"message"`
}

// Index maps wildcard paths to resolved constraints
type Index struct {
	entries map[string]*Constraint
	issues  []Issue
}

// Lookup returns the constraint for a concrete or wildcard path
func (ix *Index) Lookup(p document.Path) (*Constraint, bool) {
	if ix == nil {
		return nil, false
	}
	c, ok := ix.entries[p.Pattern().String()]
	return c, ok
}

// Issues returns problems recovered during resolution
func (ix *Index) Issues() []Issue {
	if ix == nil {
		return nil
	}
	return ix.issues
}

// Len returns the number of indexed paths
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.entries)
}

func (ix *Index) add(p document.Path, c *Constraint) {
	ix.entries[p.String()] = c
}

// Resolver flattens a schema into an Index
type Resolver struct {
	defs        map[string]any
	maxRefDepth int
	logger      *zap.Logger
}

// NewResolver creates a resolver over a set of named definitions
func NewResolver(defs map[string]any, maxRefDepth int, log *zap.Logger) *Resolver {
	if maxRefDepth <= 0 {
		maxRefDepth = DefaultMaxRefDepth
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{defs: defs, maxRefDepth: maxRefDepth, logger: log}
}

// Resolve walks root and indexes every reachable node by path
func (r *Resolver) Resolve(root map[string]any) *Index {
	ix := &Index{entries: make(map[string]*Constraint)}
	if root != nil {
		r.walk(root, document.Path{}, nil, false, ix)
	}

	for _, issue := range ix.issues {
		r.logger.Warn("Schema construct not supported, using unknown constraint",
			zap.String("path", issue.Path),
			zap.String("kind", string(issue.Kind)),
			zap.String("message", issue.Message),
		)
	}
	return ix
}

func (r *Resolver) issue(ix *Index, p document.Path, kind IssueKind, format string, args ...any) {
	ix.issues = append(ix.issues, Issue{Path: p.String(), Kind: kind, Message: fmt.Sprintf(format, args...)})
}

func (r *Resolver) walk(raw any, p document.Path, refs []string, required bool, ix *Index) {
	node, refs, ok := r.deref(raw, p, refs, ix)
	if !ok {
		c := Unknown()
		c.Required = required
		ix.add(p, c)
		return
	}

	if all, ok := node["allOf"].([]any); ok {
		node = r.mergeAllOf(node, all, p, refs, ix)
	}
	for _, key := range []string{"oneOf", "anyOf"} {
		if options, ok := node[key].([]any); ok && len(options) > 0 && node["type"] == nil && node["properties"] == nil {
			r.walk(options[0], p, refs, required, ix)
			return
		}
	}

	c := r.constraint(node, p, ix)
	c.Required = required
	ix.add(p, c)

	switch c.Type {
	case TypeObject:
		props, _ := node["properties"].(map[string]any)
		req := requiredSet(node)
		names := make([]string, 0, len(props))
		for name := range props {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			r.walk(props[name], p.Key(name), refs, req[name], ix)
		}
	case TypeArray:
		if items, ok := node["items"]; ok {
			r.walk(items, p.Wildcard(), refs, false, ix)
		}
	}
}

// deref follows a chain of $ref nodes, refusing cycles and chains deeper
// than the configured cap
func (r *Resolver) deref(raw any, p document.Path, refs []string, ix *Index) (map[string]any, []string, bool) {
	for {
		node, ok := raw.(map[string]any)
		if !ok {
			r.issue(ix, p, IssueInvalidNode, "schema node is %T, not a mapping", raw)
			return nil, refs, false
		}
		ref, isRef := node["$ref"].(string)
		if !isRef {
			return node, refs, true
		}

		name := refName(ref)
		if slices.Contains(refs, name) {
			r.issue(ix, p, IssueCircularRef, "circular reference to %s", ref)
			return nil, refs, false
		}
		if len(refs) >= r.maxRefDepth {
			r.issue(ix, p, IssueRefDepth, "reference depth exceeds %d at %s", r.maxRefDepth, ref)
			return nil, refs, false
		}
		target, ok := r.defs[name]
		if !ok {
			r.issue(ix, p, IssueUnknownRef, "unresolved reference %s", ref)
			return nil, refs, false
		}
		refs = append(slices.Clip(refs), name)
		raw = target
	}
}

func (r *Resolver) mergeAllOf(node map[string]any, all []any, p document.Path, refs []string, ix *Index) map[string]any {
	merged := make(map[string]any, len(node))
	for k, v := range node {
		if k != "allOf" {
			merged[k] = v
		}
	}
	props := map[string]any{}
	if own, ok := node["properties"].(map[string]any); ok {
		for k, v := range own {
			props[k] = v
		}
	}
	var required []any
	if own, ok := node["required"].([]any); ok {
		required = append(required, own...)
	}

	for _, part := range all {
		sub, _, ok := r.deref(part, p, refs, ix)
		if !ok {
			continue
		}
		if nested, ok := sub["allOf"].([]any); ok {
			sub = r.mergeAllOf(sub, nested, p, refs, ix)
		}
		for k, v := range sub {
			switch k {
			case "properties":
				if sp, ok := v.(map[string]any); ok {
					for name, prop := range sp {
						if _, exists := props[name]; !exists {
							props[name] = prop
						}
					}
				}
			case "required":
				if sr, ok := v.([]any); ok {
					required = append(required, sr...)
				}
			default:
				if _, exists := merged[k]; !exists {
					merged[k] = v
				}
			}
		}
	}

	if len(props) > 0 {
		merged["properties"] = props
		if merged["type"] == nil {
			merged["type"] = TypeObject
		}
	}
	if len(required) > 0 {
		merged["required"] = required
	}
	return merged
}

func requiredSet(node map[string]any) map[string]bool {
	set := make(map[string]bool)
	if list, ok := node["required"].([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok {
				set[s] = true
			}
		}
	}
	return set
}

func (r *Resolver) constraint(node map[string]any, p document.Path, ix *Index) *Constraint {
	c := &Constraint{}

	switch t := node["type"].(type) {
	case string:
		c.Type = t
	case []any:
		for _, v := range t {
			s, _ := v.(string)
			if s == "null" {
				c.Nullable = true
			} else if c.Type == "" {
				c.Type = s
			}
		}
	}
	if c.Type != "" && !knownTypes[c.Type] {
		r.issue(ix, p, IssueUnsupportedType, "unsupported type %q", c.Type)
		c.Type = TypeUnknown
	}
	if c.Type == "" || c.Type == "null" {
		switch {
		case node["properties"] != nil:
			c.Type = TypeObject
		case node["items"] != nil:
			c.Type = TypeArray
		default:
			c.Type = TypeUnknown
		}
	}

	c.Format, _ = node["format"].(string)
	c.Pattern, _ = node["pattern"].(string)
	if enum, ok := node["enum"].([]any); ok {
		c.Enum = enum
	}
	if nullable, ok := node["nullable"].(bool); ok {
		c.Nullable = c.Nullable || nullable
	}

	c.Minimum = number(node["minimum"])
	c.Maximum = number(node["maximum"])
	c.MultipleOf = number(node["multipleOf"])
	switch v := node["exclusiveMinimum"].(type) {
	case bool:
		c.ExclusiveMinimum = v
	default:
		if f := number(v); f != nil {
			c.Minimum, c.ExclusiveMinimum = f, true
		}
	}
	switch v := node["exclusiveMaximum"].(type) {
	case bool:
		c.ExclusiveMaximum = v
	default:
		if f := number(v); f != nil {
			c.Maximum, c.ExclusiveMaximum = f, true
		}
	}

	c.MinLength = integer(node["minLength"])
	c.MaxLength = integer(node["maxLength"])
	c.MinItems = integer(node["minItems"])
	c.MaxItems = integer(node["maxItems"])
	return c
}

func number(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint64:
		f = float64(t)
	case float64:
		f = t
	default:
		return nil
	}
	return &f
}

func integer(v any) *int {
	f := number(v)
	if f == nil {
		return nil
	}
	i := int(*f)
	return &i
}
