package schema

import (
	"errors"
	"testing"

	"github.com/raaihank/jsonnymous/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const petstore = `
openapi: 3.0.0
info:
  title: test
  version: "1"
paths:
  /users:
    get:
      responses:
        200:
          description: ok
components:
  schemas:
    User:
      type: object
      required: [email, status]
      properties:
        email:
          type: string
          format: email
        age:
          type: integer
          minimum: 18
          maximum: 30
        status:
          type: string
          enum: [active, inactive]
        address:
          $ref: '#/components/schemas/Address'
        tags:
          type: array
          minItems: 2
          items:
            type: string
            maxLength: 5
    Address:
      type: object
      properties:
        city:
          type: string
    Node:
      type: object
      properties:
        name:
          type: string
        children:
          type: array
          items:
            $ref: '#/components/schemas/Node'
    Weird:
      type: object
      properties:
        blob:
          type: binaryish
        missing:
          $ref: '#/components/schemas/Nope'
`

func mustParse(t *testing.T, s string) *document.Node {
	t.Helper()
	n, err := document.ParseJSON([]byte(s))
	require.NoError(t, err)
	return n
}

func path(keys ...string) document.Path {
	p := document.Path{}
	for _, k := range keys {
		if k == "*" {
			p = p.Wildcard()
		} else {
			p = p.Key(k)
		}
	}
	return p
}

func TestLoad(t *testing.T) {
	doc, err := Load([]byte(petstore))
	require.NoError(t, err)
	assert.False(t, doc.IsSchema())
	assert.Equal(t, []string{"Address", "Node", "User", "Weird"}, doc.Names())

	t.Run("swagger 2 definitions from json", func(t *testing.T) {
		doc, err := Load([]byte(`{"swagger":"2.0","definitions":{"Pet":{"type":"object","properties":{"name":{"type":"string"}}}}}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"Pet"}, doc.Names())
	})

	t.Run("malformed", func(t *testing.T) {
		for _, input := range []string{"", "{not json", "- a\n- b", "key: [unclosed"} {
			_, err := Load([]byte(input))
			assert.Truef(t, errors.Is(err, ErrMalformed), "input %q: %v", input, err)
		}
	})
}

func TestResolve(t *testing.T) {
	doc, err := Load([]byte(petstore))
	require.NoError(t, err)
	r := NewResolver(doc.Definitions, 0, zap.NewNop())

	ix := r.Resolve(map[string]any{"$ref": "#/components/schemas/User"})

	root, ok := ix.Lookup(document.Path{})
	require.True(t, ok)
	assert.Equal(t, TypeObject, root.Type)

	email, ok := ix.Lookup(path("email"))
	require.True(t, ok)
	assert.Equal(t, "email", email.Format)
	assert.True(t, email.Required)

	age, ok := ix.Lookup(path("age"))
	require.True(t, ok)
	assert.Equal(t, 18.0, *age.Minimum)
	assert.Equal(t, 30.0, *age.Maximum)
	assert.False(t, age.Required)

	status, _ := ix.Lookup(path("status"))
	assert.Equal(t, []any{"active", "inactive"}, status.Enum)

	city, ok := ix.Lookup(path("address", "city"))
	require.True(t, ok)
	assert.Equal(t, TypeString, city.Type)

	tags, _ := ix.Lookup(path("tags"))
	assert.Equal(t, 2, *tags.MinItems)

	tag, ok := ix.Lookup(document.Path{}.Key("tags").Index(4))
	require.True(t, ok, "concrete indices resolve through the wildcard entry")
	assert.Equal(t, 5, *tag.MaxLength)

	assert.Empty(t, ix.Issues())
}

func TestResolveDegradesGracefully(t *testing.T) {
	doc, err := Load([]byte(petstore))
	require.NoError(t, err)

	t.Run("circular reference", func(t *testing.T) {
		ix := NewResolver(doc.Definitions, 0, zap.NewNop()).Resolve(map[string]any{"$ref": "#/components/schemas/Node"})

		name, ok := ix.Lookup(path("name"))
		require.True(t, ok)
		assert.Equal(t, TypeString, name.Type)

		children, ok := ix.Lookup(path("children"))
		require.True(t, ok)
		assert.Equal(t, TypeArray, children.Type)

		loop, ok := ix.Lookup(path("children", "*"))
		require.True(t, ok)
		assert.Equal(t, TypeUnknown, loop.Type)

		require.Len(t, ix.Issues(), 1)
		assert.Equal(t, IssueCircularRef, ix.Issues()[0].Kind)
		assert.Equal(t, "children[*]", ix.Issues()[0].Path)
	})

	t.Run("unknown type and ref", func(t *testing.T) {
		ix := NewResolver(doc.Definitions, 0, zap.NewNop()).Resolve(map[string]any{"$ref": "#/components/schemas/Weird"})

		blob, _ := ix.Lookup(path("blob"))
		assert.Equal(t, TypeUnknown, blob.Type)
		missing, _ := ix.Lookup(path("missing"))
		assert.Equal(t, TypeUnknown, missing.Type)

		kinds := map[IssueKind]bool{}
		for _, issue := range ix.Issues() {
			kinds[issue.Kind] = true
		}
		assert.True(t, kinds[IssueUnsupportedType])
		assert.True(t, kinds[IssueUnknownRef])
	})

	t.Run("depth cap", func(t *testing.T) {
		defs := map[string]any{
			"A": map[string]any{"type": "object", "properties": map[string]any{"b": map[string]any{"$ref": "#/definitions/B"}}},
			"B": map[string]any{"type": "object", "properties": map[string]any{"c": map[string]any{"$ref": "#/definitions/C"}}},
			"C": map[string]any{"type": "string"},
		}
		ix := NewResolver(defs, 2, zap.NewNop()).Resolve(map[string]any{"$ref": "#/definitions/A"})

		b, _ := ix.Lookup(path("b"))
		assert.Equal(t, TypeObject, b.Type)
		c, _ := ix.Lookup(path("b", "c"))
		assert.Equal(t, TypeUnknown, c.Type)
		require.Len(t, ix.Issues(), 1)
		assert.Equal(t, IssueRefDepth, ix.Issues()[0].Kind)
	})
}

func TestResolveAllOf(t *testing.T) {
	defs := map[string]any{
		"Base": map[string]any{
			"type":       "object",
			"required":   []any{"id"},
			"properties": map[string]any{"id": map[string]any{"type": "integer"}},
		},
	}
	root := map[string]any{
		"allOf": []any{
			map[string]any{"$ref": "#/definitions/Base"},
			map[string]any{"properties": map[string]any{"name": map[string]any{"type": "string", "maxLength": 4}}},
		},
	}

	ix := NewResolver(defs, 0, zap.NewNop()).Resolve(root)

	id, ok := ix.Lookup(path("id"))
	require.True(t, ok)
	assert.True(t, id.Required)
	name, ok := ix.Lookup(path("name"))
	require.True(t, ok)
	assert.Equal(t, 4, *name.MaxLength)
}

func TestSelectRoot(t *testing.T) {
	doc, err := Load([]byte(petstore))
	require.NoError(t, err)

	t.Run("best structural match", func(t *testing.T) {
		skeleton := mustParse(t, `{"email":"","age":0,"status":"","address":{},"tags":[]}`)
		root, name, err := doc.SelectRoot(skeleton, "")
		require.NoError(t, err)
		assert.Equal(t, "User", name)
		assert.Equal(t, map[string]any{"$ref": "#/definitions/User"}, root)
	})

	t.Run("array skeleton matches items", func(t *testing.T) {
		skeleton := mustParse(t, `[{"name":"","children":[]}]`)
		root, name, err := doc.SelectRoot(skeleton, "")
		require.NoError(t, err)
		assert.Equal(t, "Node", name)
		assert.Equal(t, TypeArray, root["type"])
	})

	t.Run("no match below threshold", func(t *testing.T) {
		root, name, err := doc.SelectRoot(mustParse(t, `{"foo":1,"bar":2}`), "")
		require.NoError(t, err)
		assert.Nil(t, root)
		assert.Empty(t, name)
	})

	t.Run("explicit name", func(t *testing.T) {
		_, name, err := doc.SelectRoot(mustParse(t, `{}`), "Address")
		require.NoError(t, err)
		assert.Equal(t, "Address", name)

		_, _, err = doc.SelectRoot(mustParse(t, `{}`), "Missing")
		assert.True(t, errors.Is(err, ErrUnknownSchema))
	})

	t.Run("bare schema", func(t *testing.T) {
		bare, err := Load([]byte(`{"type":"object","properties":{"a":{"type":"string"}}}`))
		require.NoError(t, err)
		root, _, err := bare.SelectRoot(mustParse(t, `{"zzz":1}`), "")
		require.NoError(t, err)
		assert.Equal(t, bare.Root, root)
	})
}

func TestValidate(t *testing.T) {
	doc, err := Load([]byte(petstore))
	require.NoError(t, err)
	root := map[string]any{"$ref": "#/definitions/User"}

	valid := mustParse(t, `{"email":"a@b.io","age":20,"status":"active","tags":["x","y"]}`)
	errs, err := doc.Validate(valid, root)
	require.NoError(t, err)
	assert.Empty(t, errs)

	invalid := mustParse(t, `{"email":"a@b.io","age":99,"status":"gone"}`)
	errs, err = doc.Validate(invalid, root)
	require.NoError(t, err)
	fields := map[string]bool{}
	for _, e := range errs {
		fields[e.Field] = true
	}
	assert.True(t, fields["age"])
	assert.True(t, fields["status"])
}

func TestValidateSkipsUnsupportedConstructs(t *testing.T) {
	doc, err := Load([]byte(petstore))
	require.NoError(t, err)

	errs, err := doc.Validate(mustParse(t, `{"blob":"x","missing":1}`), map[string]any{"$ref": "#/components/schemas/Weird"})
	require.NoError(t, err)
	assert.Empty(t, errs)

	root := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a":    map[string]any{"type": "tensor"},
			"b":    map[string]any{"type": []any{"integer", "quantum"}, "maximum": 3},
			"c":    map[string]any{"$ref": "#/definitions/Missing"},
			"type": map[string]any{"type": "string"},
		},
	}
	errs, err = doc.Validate(mustParse(t, `{"a":1,"b":9,"c":"x","type":"t"}`), root)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "b", errs[0].Field)
}

func TestConstraintAdmits(t *testing.T) {
	min, max := 1.0, 3.0
	c := &Constraint{Minimum: &min, Maximum: &max, ExclusiveMaximum: true}
	assert.True(t, c.Admits(int64(1)))
	assert.False(t, c.Admits(3.0))
	assert.False(t, c.Admits(int64(0)))

	enum := &Constraint{Enum: []any{1, "a"}}
	assert.True(t, enum.Admits(int64(1)))
	assert.True(t, enum.Admits("a"))
	assert.False(t, enum.Admits("b"))

	var none *Constraint
	assert.True(t, none.Admits("anything"))
}
