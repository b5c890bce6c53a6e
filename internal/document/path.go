package document

import (
	"strconv"
	"strings"
)

// SegmentKind distinguishes path segments
type SegmentKind int

const (
	SegmentKey SegmentKind = iota
	SegmentIndex
	SegmentWildcard
)

// Segment is one step of a Path
type Segment struct {
	Kind  SegmentKind
	Key   string
	Index int
}

// Path addresses a node from the document root
type Path []Segment

// Key returns a new path extended by an object key
func (p Path) Key(key string) Path {
	return p.extend(Segment{Kind: SegmentKey, Key: key})
}

// Index returns a new path extended by an array index
func (p Path) Index(i int) Path {
	return p.extend(Segment{Kind: SegmentIndex, Index: i})
}

// Wildcard returns a new path extended by an any-item segment
func (p Path) Wildcard() Path {
	return p.extend(Segment{Kind: SegmentWildcard})
}

func (p Path) extend(s Segment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, s)
}

// Pattern replaces every index with a wildcard
func (p Path) Pattern() Path {
	out := make(Path, len(p))
	for i, s := range p {
		if s.Kind == SegmentIndex {
			s = Segment{Kind: SegmentWildcard}
		}
		out[i] = s
	}
	return out
}

// LastKey returns the nearest object key on the path
func (p Path) LastKey() string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].Kind == SegmentKey {
			return p[i].Key
		}
	}
	return ""
}

// String renders dot/bracket notation, e.g. users[0].phone or users[*].phone
func (p Path) String() string {
	var b strings.Builder
	for _, s := range p {
		switch s.Kind {
		case SegmentKey:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(s.Key)
		case SegmentIndex:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(s.Index))
			b.WriteByte(']')
		case SegmentWildcard:
			b.WriteString("[*]")
		}
	}
	return b.String()
}

// Glob renders the path with slash separators for glob matching, e.g. users/0/phone
func (p Path) Glob() string {
	parts := make([]string, len(p))
	for i, s := range p {
		switch s.Kind {
		case SegmentKey:
			parts[i] = s.Key
		case SegmentIndex:
			parts[i] = strconv.Itoa(s.Index)
		case SegmentWildcard:
			parts[i] = "*"
		}
	}
	return strings.Join(parts, "/")
}
