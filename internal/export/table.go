package export

import "github.com/raaihank/jsonnymous/internal/document"

// table is a flattened record set. Nested object keys are joined with
// dots; arrays are kept whole and rendered as JSON text.
type table struct {
	columns []string
	types   map[string]columnType
	rows    []map[string]*document.Node
}

func flatten(records []*document.Node) *table {
	t := &table{types: make(map[string]columnType)}
	for _, rec := range records {
		row := make(map[string]*document.Node)
		if rec.Kind == document.KindObject {
			t.collect(row, "", rec)
		} else {
			t.add(row, "value", rec)
		}
		t.rows = append(t.rows, row)
	}
	return t
}

func (t *table) collect(row map[string]*document.Node, prefix string, obj *document.Node) {
	for _, f := range obj.Fields {
		name := f.Key
		if prefix != "" {
			name = prefix + "." + f.Key
		}
		if f.Value.Kind == document.KindObject && len(f.Value.Fields) > 0 {
			t.collect(row, name, f.Value)
			continue
		}
		t.add(row, name, f.Value)
	}
}

func (t *table) add(row map[string]*document.Node, name string, n *document.Node) {
	current, seen := t.types[name]
	if !seen {
		t.columns = append(t.columns, name)
	}
	t.types[name] = widen(current, valueType(n))
	row[name] = n
}

func valueType(n *document.Node) columnType {
	switch n.Kind {
	case document.KindNull:
		return columnNull
	case document.KindBool:
		return columnBool
	case document.KindNumber:
		if _, ok := n.Value.(int64); ok {
			return columnInt
		}
		return columnFloat
	default:
		return columnString
	}
}

func widen(a, b columnType) columnType {
	switch {
	case a == columnNull:
		return b
	case b == columnNull, a == b:
		return a
	case (a == columnInt && b == columnFloat) || (a == columnFloat && b == columnInt):
		return columnFloat
	default:
		return columnString
	}
}

func cellText(n *document.Node) string {
	if n == nil {
		return ""
	}
	if n.Kind.IsScalar() {
		return document.ScalarText(n.Value)
	}
	data, err := document.Marshal(n, "")
	if err != nil {
		return ""
	}
	return string(data)
}
