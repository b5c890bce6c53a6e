package document

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedExpression is returned for path expressions outside the supported subset
var ErrUnsupportedExpression = errors.New("unsupported path expression")

// Structure summarizes the root element of an XML document
type Structure struct {
	RootTag    string            `json:"rootTag"`
	Attributes map[string]string `json:"attributes"`
	ChildCount int               `json:"childCount"`
	HasText    bool              `json:"hasText"`
	ChildTags  []string          `json:"childTags"`
}

// InspectXML parses data and describes its root element
func InspectXML(data []byte) (*Structure, error) {
	root, err := parseElements(data)
	if err != nil {
		return nil, err
	}

	s := &Structure{
		RootTag:    root.name,
		Attributes: make(map[string]string, len(root.attrs)),
		ChildCount: len(root.children),
		HasText:    strings.TrimSpace(root.text.String()) != "",
		ChildTags:  []string{},
	}
	for _, a := range root.attrs {
		s.Attributes[qualifiedName(a.Name)] = a.Value
	}
	seen := make(map[string]bool)
	for _, c := range root.children {
		if !seen[c.name] {
			seen[c.name] = true
			s.ChildTags = append(s.ChildTags, c.name)
		}
	}
	return s, nil
}

// Match is one result of SelectXML
type Match struct {
	Name string
	Node *Node
}

// SelectXML evaluates a small path language over an XML document:
// child steps (a/b), descendant steps (//a, a//b), "." , "*", a trailing
// @attr and a trailing text(). Relative expressions start at the root
// element; absolute ones at the document.
func SelectXML(data []byte, expr string) ([]Match, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrUnsupportedExpression)
	}
	if strings.ContainsAny(strings.TrimSuffix(expr, "text()"), "[]()=") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExpression, expr)
	}

	root, err := parseElements(data)
	if err != nil {
		return nil, err
	}

	ctx := []*xmlElement{root}
	if strings.HasPrefix(expr, "/") {
		ctx = []*xmlElement{{children: []*xmlElement{root}}}
		expr = strings.TrimPrefix(expr, "/")
	}

	parts := strings.Split(expr, "/")
	descendant := false
	for i, part := range parts {
		last := i == len(parts)-1
		switch {
		case part == "":
			descendant = true
			continue
		case part == ".":
			continue
		case strings.HasPrefix(part, AttrPrefix):
			if !last {
				return nil, fmt.Errorf("%w: attribute step must be last", ErrUnsupportedExpression)
			}
			return selectAttrs(ctx, strings.TrimPrefix(part, AttrPrefix), descendant), nil
		case part == "text()":
			if !last {
				return nil, fmt.Errorf("%w: text() must be last", ErrUnsupportedExpression)
			}
			return selectText(ctx, descendant), nil
		}

		var next []*xmlElement
		seen := make(map[*xmlElement]bool)
		for _, el := range ctx {
			candidates := el.children
			if descendant {
				candidates = descendants(el)
			}
			for _, c := range candidates {
				if (part == "*" || c.name == part) && !seen[c] {
					seen[c] = true
					next = append(next, c)
				}
			}
		}
		ctx = next
		descendant = false
	}

	matches := make([]Match, 0, len(ctx))
	for _, el := range ctx {
		if el.name == "" {
			continue
		}
		matches = append(matches, Match{Name: el.name, Node: elementNode(el)})
	}
	return matches, nil
}

func descendants(el *xmlElement) []*xmlElement {
	var out []*xmlElement
	for _, c := range el.children {
		out = append(out, c)
		out = append(out, descendants(c)...)
	}
	return out
}

func selectAttrs(ctx []*xmlElement, name string, descendant bool) []Match {
	var matches []Match
	visit := func(el *xmlElement) {
		for _, a := range el.attrs {
			if name == "*" || qualifiedName(a.Name) == name {
				matches = append(matches, Match{Name: AttrPrefix + qualifiedName(a.Name), Node: typedText(a.Value)})
			}
		}
	}
	for _, el := range ctx {
		if descendant {
			for _, d := range descendants(el) {
				visit(d)
			}
			continue
		}
		visit(el)
	}
	return matches
}

func selectText(ctx []*xmlElement, descendant bool) []Match {
	var matches []Match
	visit := func(el *xmlElement) {
		if text := strings.TrimSpace(el.text.String()); text != "" {
			matches = append(matches, Match{Name: el.name, Node: Scalar(text)})
		}
	}
	for _, el := range ctx {
		if descendant {
			for _, d := range descendants(el) {
				visit(d)
			}
			continue
		}
		visit(el)
	}
	return matches
}
