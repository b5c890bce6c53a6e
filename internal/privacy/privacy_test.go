package privacy

import (
	"testing"

	"github.com/raaihank/jsonnymous/internal/config"
	"github.com/raaihank/jsonnymous/internal/document"
	"github.com/raaihank/jsonnymous/internal/logger"
	"github.com/raaihank/jsonnymous/internal/semantic"
	"github.com/raaihank/jsonnymous/internal/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seed(v int64) *int64 { return &v }

func parse(t *testing.T, s string) *document.Node {
	t.Helper()
	n, err := document.ParseJSON([]byte(s))
	require.NoError(t, err)
	return n
}

func newClassifier(t *testing.T, cfg config.PrivacyConfig) *Classifier {
	t.Helper()
	if cfg.Detectors == nil {
		cfg.Detectors = []string{"all"}
	}
	c, err := New(cfg, logger.NewNop())
	require.NoError(t, err)
	return c
}

type finding struct {
	Path     string
	Category semantic.Category
	Source   semantic.Source
}

func findings(paths []SensitivePath) []finding {
	out := make([]finding, len(paths))
	for i, p := range paths {
		out[i] = finding{p.Path, p.Category, p.Source}
	}
	return out
}

func TestClassify(t *testing.T) {
	c := newClassifier(t, config.PrivacyConfig{})

	tests := []struct {
		name string
		doc  string
		want []finding
	}{
		{
			name: "key signal only where sensitive",
			doc:  `{"email":"a@b.com","count":3}`,
			want: []finding{{"email", semantic.Email, semantic.SourceKey}},
		},
		{
			name: "value shape under neutral keys",
			doc:  `{"x":"john@doe.com","y":"4111 1111 1111 1111","z":"123-45-6789","w":"hello"}`,
			want: []finding{
				{"x", semantic.Email, semantic.SourceValue},
				{"y", semantic.CreditCard, semantic.SourceValue},
				{"z", semantic.NationalID, semantic.SourceValue},
			},
		},
		{
			name: "arrays in traversal order",
			doc:  `{"users":[{"phone":"+1 555 010 9999","id":1},{"phone":"+1 555 010 8888","id":2}],"notes":"call me"}`,
			want: []finding{
				{"users[0].phone", semantic.Phone, semantic.SourceKey},
				{"users[1].phone", semantic.Phone, semantic.SourceKey},
				{"notes", semantic.FreeText, semantic.SourceKey},
			},
		},
		{
			name: "numbers only for digit categories",
			doc:  `{"phone":612345678,"name":5,"zip":75001}`,
			want: []finding{
				{"phone", semantic.Phone, semantic.SourceKey},
				{"zip", semantic.PostalCode, semantic.SourceKey},
			},
		},
		{
			name: "booleans, nulls and blanks are never sensitive",
			doc:  `{"email":true,"phone":null,"name":"   "}`,
			want: []finding{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, findings(c.Classify(parse(t, tt.doc))))
		})
	}
}

func TestClassifyPatterns(t *testing.T) {
	c := newClassifier(t, config.PrivacyConfig{})
	paths := c.Classify(parse(t, `[{"email":"a@b.co"},{"email":"c@d.co"}]`))
	require.Len(t, paths, 2)
	assert.Equal(t, "[0].email", paths[0].Path)
	assert.Equal(t, "[*].email", paths[0].Pattern)
	assert.Equal(t, "[*].email", paths[1].Pattern)
}

func TestClassifyXML(t *testing.T) {
	c := newClassifier(t, config.PrivacyConfig{})
	doc, err := document.ParseXML([]byte(`<person id="7"><name>John Doe</name><contact type="email">x@y.org</contact></person>`))
	require.NoError(t, err)

	assert.Equal(t, []finding{
		{"person.name", semantic.Name, semantic.SourceKey},
		{"person.contact.#text", semantic.Email, semantic.SourceValue},
	}, findings(c.Classify(doc)))
}

func TestClassifyIdempotent(t *testing.T) {
	c := newClassifier(t, config.PrivacyConfig{})
	doc := parse(t, `{"user":{"name":"Ann","mail":"ann@x.io","tags":["a","b"]}}`)
	before := doc.Clone()

	assert.Equal(t, c.Classify(doc), c.Classify(doc))
	assert.Equal(t, before, doc)
}

func TestClassifierConfig(t *testing.T) {
	t.Run("detector subset", func(t *testing.T) {
		c := newClassifier(t, config.PrivacyConfig{Detectors: []string{"email"}})
		got := findings(c.Classify(parse(t, `{"email":"a@b.co","phone":"0612345678"}`)))
		assert.Equal(t, []finding{{"email", semantic.Email, semantic.SourceKey}}, got)
	})

	t.Run("path overrides", func(t *testing.T) {
		c := newClassifier(t, config.PrivacyConfig{
			AlwaysSensitive: []string{"**/internal_ref"},
			NeverSensitive:  []string{"support/*"},
		})
		got := findings(c.Classify(parse(t, `{"support":{"email":"help@corp.io"},"order":{"internal_ref":"ABC-1"}}`)))
		require.Len(t, got, 1)
		assert.Equal(t, "order.internal_ref", got[0].Path)
		assert.Equal(t, semantic.SourcePath, got[0].Source)
	})

	t.Run("extra key rules take precedence", func(t *testing.T) {
		c := newClassifier(t, config.PrivacyConfig{
			ExtraRules: []config.KeyRuleConfig{{Pattern: "^matricule$", Category: "nationalId"}},
		})
		got := findings(c.Classify(parse(t, `{"matricule":"A12345"}`)))
		assert.Equal(t, []finding{{"matricule", semantic.NationalID, semantic.SourceKey}}, got)
	})

	t.Run("invalid configuration", func(t *testing.T) {
		invalid := []config.PrivacyConfig{
			{Detectors: []string{"telepathy"}},
			{Detectors: []string{"integer"}},
			{Detectors: []string{"all"}, ExtraRules: []config.KeyRuleConfig{{Pattern: "x", Category: "nope"}}},
			{Detectors: []string{"all"}, ExtraRules: []config.KeyRuleConfig{{Pattern: "(", Category: "email"}}},
			{Detectors: []string{"all"}, NeverSensitive: []string{"a/["}},
		}
		for _, cfg := range invalid {
			_, err := New(cfg, logger.NewNop())
			assert.Error(t, err, "%+v", cfg)
		}
	})
}

func newAnonymizer(t *testing.T, consistent bool) *Anonymizer {
	return NewAnonymizer(newClassifier(t, config.PrivacyConfig{}), synth.New(zap.NewNop(), 0), consistent, logger.NewNop())
}

func TestAnonymize(t *testing.T) {
	a := newAnonymizer(t, true)
	policy := semantic.DefaultPolicy()

	t.Run("replaces only classified leaves", func(t *testing.T) {
		doc := parse(t, `{"email":"a@b.com","count":3}`)
		out, report, err := a.Anonymize(doc, Options{Seed: seed(1)})
		require.NoError(t, err)

		assert.Equal(t, 1, report.AnonymizedFields)
		assert.Equal(t, map[string]int{"email": 1}, report.ByCategory)

		count, _ := out.Get("count")
		assert.Equal(t, int64(3), count.Value)
		email, _ := out.Get("email")
		assert.NotEqual(t, "a@b.com", email.String())
		cat, ok := policy.ShapeCategory(email.String())
		require.True(t, ok)
		assert.Equal(t, semantic.Email, cat)

		original, _ := doc.Get("email")
		assert.Equal(t, "a@b.com", original.String(), "input must not be modified")
	})

	t.Run("structure and untouched leaves survive", func(t *testing.T) {
		doc := parse(t, `{"users":[{"id":1,"name":"Ann Lee","phone":"+33 6 12 34 56 78","active":true},{"id":2,"name":"Bo","phone":"0612345678","active":false}],"total":2}`)
		out, _, err := a.Anonymize(doc, Options{Seed: seed(2)})
		require.NoError(t, err)
		require.True(t, document.SameShape(doc, out, true))

		classified := map[string]bool{}
		for _, sp := range a.Classifier().Classify(doc) {
			classified[sp.Path] = true
		}
		doc.Walk(func(path document.Path, _ string, n *document.Node) bool {
			if n.Kind.IsScalar() && !classified[path.String()] {
				got, ok := out.At(path)
				require.True(t, ok)
				assert.Equal(t, n.Value, got.Value, path.String())
			}
			return true
		})
		assert.Len(t, classified, 4)
	})

	t.Run("consistent mapping", func(t *testing.T) {
		doc := parse(t, `{"from":{"email":"x@y.com"},"to":{"email":"x@y.com"},"cc":{"email":"z@y.com"}}`)
		out, _, err := a.Anonymize(doc, Options{Seed: seed(3)})
		require.NoError(t, err)

		from, _ := out.At(document.Path{}.Key("from").Key("email"))
		to, _ := out.At(document.Path{}.Key("to").Key("email"))
		cc, _ := out.At(document.Path{}.Key("cc").Key("email"))
		assert.Equal(t, from.Value, to.Value)
		assert.NotEqual(t, from.Value, cc.Value)
	})

	t.Run("deterministic under seed", func(t *testing.T) {
		doc := parse(t, `{"name":"Ann","email":"ann@x.io","bio":"Reach me at ann@x.io or +1 555 123 4567 after six"}`)
		render := func() string {
			out, _, err := a.Anonymize(doc, Options{Seed: seed(9)})
			require.NoError(t, err)
			data, err := document.Marshal(out, "")
			require.NoError(t, err)
			return string(data)
		}
		assert.Equal(t, render(), render())
	})

	t.Run("nil document", func(t *testing.T) {
		_, _, err := a.Anonymize(nil, Options{})
		assert.ErrorIs(t, err, document.ErrMalformed)
	})
}
