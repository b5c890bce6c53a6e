package document

import (
	"errors"
	"fmt"
)

// ErrMalformed is wrapped by every parse failure in this package
var ErrMalformed = errors.New("malformed document")

// Kind identifies the shape of a Node
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// IsScalar reports whether the kind is a leaf kind
func (k Kind) IsScalar() bool {
	return k != KindObject && k != KindArray
}

// Field is a single key/value pair of an object node
type Field struct {
	Key   string
	Value *Node
}

// Node is an ordered, format-agnostic document tree.
// Scalars hold string, int64, float64, bool or nil in Value.
type Node struct {
	Kind   Kind
	Value  any
	Fields []Field
	Items  []*Node
}

// NewObject creates an empty object node
func NewObject() *Node {
	return &Node{Kind: KindObject, Fields: []Field{}}
}

// NewArray creates an array node holding items
func NewArray(items ...*Node) *Node {
	if items == nil {
		items = []*Node{}
	}
	return &Node{Kind: KindArray, Items: items}
}

// Null creates a null scalar
func Null() *Node {
	return &Node{Kind: KindNull}
}

// Scalar wraps a Go value as a leaf node. Integers of any width become
// int64, float32 becomes float64; unsupported types are rendered with %v.
func Scalar(v any) *Node {
	switch t := v.(type) {
	case nil:
		return Null()
	case string:
		return &Node{Kind: KindString, Value: t}
	case bool:
		return &Node{Kind: KindBool, Value: t}
	case int:
		return &Node{Kind: KindNumber, Value: int64(t)}
	case int32:
		return &Node{Kind: KindNumber, Value: int64(t)}
	case int64:
		return &Node{Kind: KindNumber, Value: t}
	case uint:
		return &Node{Kind: KindNumber, Value: int64(t)}
	case float32:
		return &Node{Kind: KindNumber, Value: float64(t)}
	case float64:
		return &Node{Kind: KindNumber, Value: t}
	default:
		return &Node{Kind: KindString, Value: fmt.Sprintf("%v", t)}
	}
}

// Set adds or replaces a field, keeping the original position on replace
func (n *Node) Set(key string, value *Node) {
	for i := range n.Fields {
		if n.Fields[i].Key == key {
			n.Fields[i].Value = value
			return
		}
	}
	n.Fields = append(n.Fields, Field{Key: key, Value: value})
}

// Get returns the value stored under key
func (n *Node) Get(key string) (*Node, bool) {
	if n == nil || n.Kind != KindObject {
		return nil, false
	}
	for _, f := range n.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Append adds items to an array node
func (n *Node) Append(items ...*Node) {
	n.Items = append(n.Items, items...)
}

// Len returns the number of fields or items; scalars have length 0
func (n *Node) Len() int {
	switch n.Kind {
	case KindObject:
		return len(n.Fields)
	case KindArray:
		return len(n.Items)
	default:
		return 0
	}
}

// Keys returns object keys in order
func (n *Node) Keys() []string {
	keys := make([]string, 0, len(n.Fields))
	for _, f := range n.Fields {
		keys = append(keys, f.Key)
	}
	return keys
}

// String returns the scalar as a string, empty for non-string nodes
func (n *Node) String() string {
	if s, ok := n.Value.(string); ok {
		return s
	}
	return ""
}

// Clone returns a deep copy
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Kind: n.Kind, Value: n.Value}
	if n.Fields != nil {
		c.Fields = make([]Field, len(n.Fields))
		for i, f := range n.Fields {
			c.Fields[i] = Field{Key: f.Key, Value: f.Value.Clone()}
		}
	}
	if n.Items != nil {
		c.Items = make([]*Node, len(n.Items))
		for i, item := range n.Items {
			c.Items[i] = item.Clone()
		}
	}
	return c
}

// At resolves a concrete path (no wildcards)
func (n *Node) At(path Path) (*Node, bool) {
	cur := n
	for _, seg := range path {
		switch seg.Kind {
		case SegmentKey:
			next, ok := cur.Get(seg.Key)
			if !ok {
				return nil, false
			}
			cur = next
		case SegmentIndex:
			if cur.Kind != KindArray || seg.Index < 0 || seg.Index >= len(cur.Items) {
				return nil, false
			}
			cur = cur.Items[seg.Index]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Replace overwrites the node at a concrete path in place
func (n *Node) Replace(path Path, value *Node) bool {
	target, ok := n.At(path)
	if !ok {
		return false
	}
	*target = *value
	return true
}

// Walk visits every node depth-first in document order. Returning false
// from fn skips the node's children.
func (n *Node) Walk(fn func(path Path, key string, node *Node) bool) {
	walk(n, nil, "", fn)
}

func walk(n *Node, path Path, key string, fn func(Path, string, *Node) bool) {
	if !fn(path, key, n) {
		return
	}
	switch n.Kind {
	case KindObject:
		for _, f := range n.Fields {
			walk(f.Value, path.Key(f.Key), f.Key, fn)
		}
	case KindArray:
		for i, item := range n.Items {
			walk(item, path.Index(i), key, fn)
		}
	}
}

// SameShape reports whether a and b share topology: identical object key
// sequences and container kinds. Array lengths are compared only when
// strictArrays is set; otherwise a single-item array in a may match any
// number of items in b, each compared against that template.
func SameShape(a, b *Node, strictArrays bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind.IsScalar() && b.Kind.IsScalar() {
		return true
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindObject:
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if a.Fields[i].Key != b.Fields[i].Key || !SameShape(a.Fields[i].Value, b.Fields[i].Value, strictArrays) {
				return false
			}
		}
	case KindArray:
		if len(a.Items) == len(b.Items) {
			for i := range a.Items {
				if !SameShape(a.Items[i], b.Items[i], strictArrays) {
					return false
				}
			}
			return true
		}
		if strictArrays || len(a.Items) != 1 {
			return false
		}
		for _, item := range b.Items {
			if !SameShape(a.Items[0], item, false) {
				return false
			}
		}
	}
	return true
}
