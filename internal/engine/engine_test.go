package engine

import (
	"errors"
	"math"
	"net/http"
	"strings"
	"testing"

	"github.com/raaihank/jsonnymous/internal/config"
	"github.com/raaihank/jsonnymous/internal/document"
	"github.com/raaihank/jsonnymous/internal/logger"
	"github.com/raaihank/jsonnymous/internal/schema"
	"github.com/raaihank/jsonnymous/internal/semantic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(config.GetDefaults(), logger.NewNop())
	require.NoError(t, err)
	return e
}

func seed(v int64) *int64 { return &v }

func intp(v int) *int { return &v }

func render(t *testing.T, doc *document.Node, format Format) string {
	t.Helper()
	out, err := Render(doc, format, false)
	require.NoError(t, err)
	return string(out)
}

func TestGenerateUserScenario(t *testing.T) {
	e := newEngine(t)
	req := GenerateRequest{
		Format:   FormatJSON,
		Skeleton: []byte(`{"user": {"email": "x@example.com", "age": 0}}`),
		Options:  GenerateOptions{Seed: seed(42)},
	}

	first, err := e.Generate(req)
	require.NoError(t, err)
	second, err := e.Generate(req)
	require.NoError(t, err)

	assert.Equal(t, render(t, first.Document, FormatJSON), render(t, second.Document, FormatJSON))
	assert.Equal(t, int64(42), first.Metadata.Seed)
	assert.Equal(t, 1, first.Metadata.ItemCount)

	user, ok := first.Document.Get("user")
	require.True(t, ok)
	assert.Equal(t, []string{"email", "age"}, user.Keys())
	email, _ := user.Get("email")
	cat, _ := semantic.DefaultPolicy().ShapeCategory(email.String())
	assert.Equal(t, semantic.Email, cat)
	age, _ := user.Get("age")
	assert.IsType(t, int64(0), age.Value)
}

func TestGenerateWithSwagger(t *testing.T) {
	e := newEngine(t)
	swagger := `
openapi: 3.0.0
components:
  schemas:
    Order:
      type: object
      properties:
        status:
          type: string
          enum: [new, shipped]
        quantity:
          type: integer
          minimum: 1
          maximum: 3
        customer:
          type: string
`
	resp, err := e.Generate(GenerateRequest{
		Format:   FormatJSON,
		Skeleton: []byte(`[{"status":"","quantity":0,"customer":""}]`),
		Schema:   []byte(swagger),
		Options:  GenerateOptions{Seed: seed(7), Count: intp(25), Validate: true},
	})
	require.NoError(t, err)

	assert.Equal(t, "Order", resp.Metadata.SchemaName)
	assert.Equal(t, 25, resp.Metadata.ItemCount)
	assert.Empty(t, resp.Metadata.ValidationErrors)
	for _, item := range resp.Document.Items {
		status, _ := item.Get("status")
		assert.Contains(t, []string{"new", "shipped"}, status.String())
		qty, _ := item.Get("quantity")
		assert.True(t, qty.Value.(int64) >= 1 && qty.Value.(int64) <= 3)
	}
}

func TestGenerateXML(t *testing.T) {
	e := newEngine(t)
	skeleton := []byte(`<?xml version="1.0"?><person id="1"><name>Jane</name><email>j@x.org</email></person>`)

	resp, err := e.Generate(GenerateRequest{Format: FormatXML, Skeleton: skeleton, Options: GenerateOptions{Seed: seed(1), Count: intp(3)}})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Metadata.ItemCount)

	out := render(t, resp.Document, FormatXML)
	assert.Equal(t, 3, strings.Count(out, "<person "))

	single, err := e.Generate(GenerateRequest{Format: FormatXML, Skeleton: skeleton, Options: GenerateOptions{Seed: seed(1)}})
	require.NoError(t, err)
	assert.Equal(t, 2, single.Metadata.ItemCount, "child elements of the root")
	_, err = document.ParseXML([]byte(render(t, single.Document, FormatXML)))
	assert.NoError(t, err)
}

func TestGenerateSchemaIssuesAreReported(t *testing.T) {
	e := newEngine(t)
	resp, err := e.Generate(GenerateRequest{
		Format:   FormatJSON,
		Skeleton: []byte(`{"a":"","b":""}`),
		Schema:   []byte(`{"type":"object","properties":{"a":{"type":"tensor"},"b":{"$ref":"#/definitions/Missing"}}}`),
		Options:  GenerateOptions{Seed: seed(1)},
	})
	require.NoError(t, err)
	assert.Len(t, resp.Metadata.Issues, 2)

	skeleton, err := document.ParseJSON([]byte(`{"a":"","b":""}`))
	require.NoError(t, err)
	assert.True(t, document.SameShape(skeleton, resp.Document, true))
}

func TestGenerateWideIntegerBounds(t *testing.T) {
	e := newEngine(t)
	tests := []struct {
		name   string
		schema string
		check  func(t *testing.T, n int64)
	}{
		{
			name:   "span wider than int63",
			schema: `{"type":"object","properties":{"n":{"type":"integer","format":"int64","minimum":-5e18,"maximum":5e18}}}`,
			check: func(t *testing.T, n int64) {
				assert.True(t, n >= -5e18 && n <= 5e18, n)
			},
		},
		{
			name:   "minimum above int64",
			schema: `{"type":"object","properties":{"n":{"type":"integer","minimum":1e19}}}`,
			check: func(t *testing.T, n int64) {
				assert.Equal(t, int64(math.MaxInt64), n)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := e.Generate(GenerateRequest{
				Format:   FormatJSON,
				Skeleton: []byte(`{"n":0}`),
				Schema:   []byte(tt.schema),
				Options:  GenerateOptions{Seed: seed(1)},
			})
			require.NoError(t, err)
			n, ok := resp.Document.Get("n")
			require.True(t, ok)
			require.IsType(t, int64(0), n.Value)
			tt.check(t, n.Value.(int64))
		})
	}
}

func TestUpdatePrivacyReachesGeneration(t *testing.T) {
	e := newEngine(t)
	req := GenerateRequest{Format: FormatJSON, Skeleton: []byte(`{"matricule":"A12345"}`), Options: GenerateOptions{Seed: seed(4)}}
	ssn := `^\d{3}-\d{2}-\d{4}$`

	before, err := e.Generate(req)
	require.NoError(t, err)
	v, _ := before.Document.Get("matricule")
	assert.NotRegexp(t, ssn, v.String())

	cfg := config.GetDefaults().Privacy
	cfg.ExtraRules = []config.KeyRuleConfig{{Pattern: "^matricule$", Category: "nationalId"}}
	require.NoError(t, e.UpdatePrivacy(cfg))

	after, err := e.Generate(req)
	require.NoError(t, err)
	v, _ = after.Document.Get("matricule")
	assert.Regexp(t, ssn, v.String())

	analyzed, err := e.Analyze(AnalyzeRequest{Format: FormatJSON, Document: []byte(`{"matricule":"A12345"}`)})
	require.NoError(t, err)
	assert.Equal(t, []string{"matricule"}, analyzed.SensitiveFields)
}

func TestAnalyzeScenario(t *testing.T) {
	e := newEngine(t)
	resp, err := e.Analyze(AnalyzeRequest{Format: FormatJSON, Document: []byte(`{"name": "John Doe", "id": 7}`)})
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, resp.SensitiveFields)
	assert.Equal(t, 2, resp.TotalFields)

	resp, err = e.Analyze(AnalyzeRequest{Format: FormatJSON, Document: []byte(`{"users":[{"email":"a@b.co"},{"email":"c@d.co"}],"ok":true}`)})
	require.NoError(t, err)
	assert.Equal(t, []string{"users[*].email"}, resp.SensitiveFields)
	assert.Len(t, resp.Fields, 2)
	assert.Equal(t, 3, resp.TotalFields)
}

func TestAnonymizeScenario(t *testing.T) {
	e := newEngine(t)
	resp, err := e.Anonymize(AnonymizeRequest{Format: FormatJSON, Document: []byte(`{"email": "a@b.com", "count": 3}`), Seed: seed(5)})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Metadata.AnonymizedFields)
	count, _ := resp.Document.Get("count")
	assert.Equal(t, int64(3), count.Value)
	email, _ := resp.Document.Get("email")
	assert.NotEqual(t, "a@b.com", email.String())

	// the anonymized document still exposes the same sensitive slots
	again, err := e.Analyze(AnalyzeRequest{Format: FormatJSON, Document: []byte(render(t, resp.Document, FormatJSON))})
	require.NoError(t, err)
	assert.Equal(t, []string{"email"}, again.SensitiveFields)
}

func TestRandom(t *testing.T) {
	e := newEngine(t)

	resp, err := e.GenerateRandom(RandomRequest{Depth: intp(2), Seed: seed(3)})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Metadata.Depth)
	assert.Equal(t, 5, resp.Metadata.MaxKeys)
	assert.Equal(t, int64(3), resp.Metadata.Seed)

	xmlResp, err := e.GenerateRandomXML(RandomXMLRequest{Seed: seed(3), RootTag: "catalog"})
	require.NoError(t, err)
	assert.Equal(t, []string{"catalog"}, xmlResp.Document.Keys())
}

func TestInvalidOptions(t *testing.T) {
	e := newEngine(t)
	tests := []struct {
		name  string
		call  func() error
		field string
	}{
		{"negative count", func() error {
			_, err := e.Generate(GenerateRequest{Format: FormatJSON, Skeleton: []byte(`{}`), Options: GenerateOptions{Count: intp(-1)}})
			return err
		}, "count"},
		{"count above cap", func() error {
			_, err := e.Generate(GenerateRequest{Format: FormatJSON, Skeleton: []byte(`{}`), Options: GenerateOptions{Count: intp(1 << 30)}})
			return err
		}, "count"},
		{"unknown format", func() error {
			_, err := e.Generate(GenerateRequest{Format: "yaml", Skeleton: []byte(`{}`)})
			return err
		}, "format"},
		{"unknown schema name", func() error {
			_, err := e.Generate(GenerateRequest{Format: FormatJSON, Skeleton: []byte(`{}`), Schema: []byte(`{"definitions":{"A":{"type":"object"}}}`), Options: GenerateOptions{SchemaName: "B"}})
			return err
		}, "schemaName"},
		{"negative depth", func() error {
			_, err := e.GenerateRandom(RandomRequest{Depth: intp(-1)})
			return err
		}, "depth"},
		{"depth above cap", func() error {
			_, err := e.GenerateRandom(RandomRequest{Depth: intp(1000)})
			return err
		}, "depth"},
		{"zero children", func() error {
			_, err := e.GenerateRandomXML(RandomXMLRequest{MaxChildren: intp(0)})
			return err
		}, "maxChildren"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var invalid *ErrInvalidOptions
			require.True(t, errors.As(err, &invalid), "got %v", err)
			assert.Equal(t, tt.field, invalid.Field)
			assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
		})
	}
}

func TestMalformedInput(t *testing.T) {
	e := newEngine(t)

	_, err := e.Generate(GenerateRequest{Format: FormatJSON, Skeleton: []byte(`{"a":`)})
	var malformed *ErrMalformedInput
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "skeleton", malformed.What)
	assert.ErrorIs(t, err, document.ErrMalformed)

	_, err = e.Generate(GenerateRequest{Format: FormatJSON, Skeleton: []byte(`{}`), Schema: []byte("- just\n- a list")})
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "schema", malformed.What)
	assert.ErrorIs(t, err, schema.ErrMalformed)

	_, err = e.Anonymize(AnonymizeRequest{Format: FormatXML, Document: []byte(`<a><b></a>`)})
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))

	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestValidateXML(t *testing.T) {
	e := newEngine(t)

	resp := e.ValidateXML([]byte(`<root a="1"><x/><x/><y>t</y></root>`), true)
	require.True(t, resp.IsValid)
	assert.Equal(t, "root", resp.Structure.RootTag)
	assert.Equal(t, 3, resp.Structure.ChildCount)
	assert.Equal(t, []string{"x", "y"}, resp.Structure.ChildTags)
	assert.Contains(t, resp.Formatted, "\n  <y>t</y>")

	bad := e.ValidateXML([]byte(`<root>`), false)
	assert.False(t, bad.IsValid)
	assert.NotEmpty(t, bad.Error)
}

func TestXPath(t *testing.T) {
	e := newEngine(t)
	xml := []byte(`<shop id="s1"><item id="1"><name>Pen</name></item><item id="2"><name>Ink</name></item></shop>`)

	resp, err := e.XPath(XPathRequest{XML: xml, XPath: "name"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)

	resp, err = e.XPath(XPathRequest{XML: xml, XPath: "@id", Format: FormatXML})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, []any{`id="s1"`, `id="1"`, `id="2"`}, resp.Results, "root attribute is reported once")

	resp, err = e.XPath(XPathRequest{XML: []byte(`<only id="x"/>`), XPath: "@id"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)

	resp, err = e.XPath(XPathRequest{XML: xml, XPath: "/shop/item/name", Format: FormatXML})
	require.NoError(t, err)
	assert.Equal(t, []any{"<name>Pen</name>", "<name>Ink</name>"}, resp.Results)

	_, err = e.XPath(XPathRequest{XML: xml, XPath: "item[1]"})
	var invalid *ErrInvalidOptions
	assert.True(t, errors.As(err, &invalid))
}
