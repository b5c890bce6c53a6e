package document

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// AttrPrefix marks object fields that map to XML attributes
	AttrPrefix = "@"
	// TextKey holds an element's character data when it also has attributes or children
	TextKey = "#text"
)

// XMLDeclaration is prepended to serialized documents on request
const XMLDeclaration = `<?xml version="1.0" encoding="UTF-8"?>`

type xmlElement struct {
	name     string
	attrs    []xml.Attr
	children []*xmlElement
	text     strings.Builder
}

// ParseXML decodes an XML document into a Node. The result is an object
// with a single field named after the root element.
func ParseXML(data []byte) (*Node, error) {
	root, err := parseElements(data)
	if err != nil {
		return nil, err
	}
	doc := NewObject()
	doc.Set(root.name, elementNode(root))
	return doc, nil
}

func parseElements(data []byte) (*xmlElement, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		stack []*xmlElement
		root  *xmlElement
	)

	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, fmt.Errorf("%w: multiple root elements", ErrMalformed)
			}
			el := &xmlElement{name: qualifiedName(t.Name), attrs: t.Attr}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			} else {
				root = el
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: unexpected closing tag %s", ErrMalformed, qualifiedName(t.Name))
			}
			top := stack[len(stack)-1]
			if top.name != qualifiedName(t.Name) {
				return nil, fmt.Errorf("%w: element <%s> closed by </%s>", ErrMalformed, top.name, qualifiedName(t.Name))
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			} else if len(bytes.TrimSpace(t)) > 0 {
				return nil, fmt.Errorf("%w: text outside root element", ErrMalformed)
			}
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("%w: unclosed element <%s>", ErrMalformed, stack[len(stack)-1].name)
	}
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformed)
	}
	return root, nil
}

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func elementNode(el *xmlElement) *Node {
	text := strings.TrimSpace(el.text.String())
	if len(el.attrs) == 0 && len(el.children) == 0 {
		if text == "" {
			return Null()
		}
		return typedText(text)
	}

	obj := NewObject()
	for _, a := range el.attrs {
		obj.Set(AttrPrefix+qualifiedName(a.Name), typedText(a.Value))
	}

	var order []string
	groups := make(map[string][]*Node)
	for _, child := range el.children {
		if _, seen := groups[child.name]; !seen {
			order = append(order, child.name)
		}
		groups[child.name] = append(groups[child.name], elementNode(child))
	}
	for _, name := range order {
		nodes := groups[name]
		if len(nodes) == 1 {
			obj.Set(name, nodes[0])
		} else {
			obj.Set(name, NewArray(nodes...))
		}
	}

	if text != "" {
		obj.Set(TextKey, typedText(text))
	}
	return obj
}

// typedText recovers numbers and booleans whose canonical form matches the text
func typedText(s string) *Node {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(i, 10) == s {
		return Scalar(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && FormatFloat(f) == s {
		return Scalar(f)
	}
	if s == "true" || s == "false" {
		return Scalar(s == "true")
	}
	return Scalar(s)
}

// MarshalXML renders a Node produced by ParseXML (or shaped like one).
// A root array emits one root element per item, separated by newlines.
func MarshalXML(n *Node, indent string, declaration bool) ([]byte, error) {
	var buf bytes.Buffer
	if declaration {
		buf.WriteString(XMLDeclaration)
		buf.WriteByte('\n')
	}

	roots, err := rootFields(n)
	if err != nil {
		return nil, err
	}
	for i, f := range roots {
		if i > 0 {
			buf.WriteByte('\n')
		}
		if err := writeElement(&buf, f.Key, f.Value, indent, 0); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func rootFields(n *Node) ([]Field, error) {
	switch n.Kind {
	case KindObject:
		if len(n.Fields) == 0 {
			return nil, errors.New("xml document has no root element")
		}
		return n.Fields, nil
	case KindArray:
		var fields []Field
		for _, item := range n.Items {
			sub, err := rootFields(item)
			if err != nil {
				return nil, err
			}
			fields = append(fields, sub...)
		}
		return fields, nil
	default:
		return nil, errors.New("xml document root must be an element")
	}
}

func writeElement(buf *bytes.Buffer, name string, n *Node, indent string, depth int) error {
	if strings.HasPrefix(name, AttrPrefix) || name == TextKey || name == "" {
		return fmt.Errorf("invalid element name %q", name)
	}

	if n.Kind == KindArray {
		for i, item := range n.Items {
			if i > 0 {
				xmlNewline(buf, indent, depth)
			}
			if err := writeElement(buf, name, item, indent, depth); err != nil {
				return err
			}
		}
		return nil
	}

	buf.WriteByte('<')
	buf.WriteString(name)

	if n.Kind != KindObject {
		if n.Kind == KindNull {
			buf.WriteString("/>")
			return nil
		}
		buf.WriteByte('>')
		escapeText(buf, ScalarText(n.Value))
		writeEndTag(buf, name)
		return nil
	}

	var (
		text     string
		hasText  bool
		children []Field
	)
	for _, f := range n.Fields {
		switch {
		case strings.HasPrefix(f.Key, AttrPrefix):
			buf.WriteByte(' ')
			buf.WriteString(strings.TrimPrefix(f.Key, AttrPrefix))
			buf.WriteString(`="`)
			escapeText(buf, ScalarText(f.Value.Value))
			buf.WriteByte('"')
		case f.Key == TextKey:
			text, hasText = ScalarText(f.Value.Value), true
		default:
			children = append(children, f)
		}
	}

	if len(children) == 0 && (!hasText || text == "") {
		buf.WriteString("/>")
		return nil
	}
	buf.WriteByte('>')
	if hasText {
		escapeText(buf, text)
	}
	for _, child := range children {
		if child.Value.Kind == KindArray && len(child.Value.Items) == 0 {
			continue
		}
		xmlNewline(buf, indent, depth+1)
		if err := writeElement(buf, child.Key, child.Value, indent, depth+1); err != nil {
			return err
		}
	}
	if len(children) > 0 {
		xmlNewline(buf, indent, depth)
	}
	writeEndTag(buf, name)
	return nil
}

func writeEndTag(buf *bytes.Buffer, name string) {
	buf.WriteString("</")
	buf.WriteString(name)
	buf.WriteByte('>')
}

func xmlNewline(buf *bytes.Buffer, indent string, depth int) {
	if indent == "" {
		return
	}
	buf.WriteByte('\n')
	buf.WriteString(strings.Repeat(indent, depth))
}

func escapeText(buf *bytes.Buffer, s string) {
	_ = xml.EscapeText(buf, []byte(s))
}

// ScalarText renders a scalar value as XML text
func ScalarText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return FormatFloat(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
