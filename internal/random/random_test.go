package random

import (
	"strings"
	"testing"

	"github.com/raaihank/jsonnymous/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seed(v int64) *int64 { return &v }

func newGenerator() *Generator {
	return New(nil, nil, zap.NewNop())
}

// depth is 0 for scalars and 1 + the deepest child for containers
func depth(n *document.Node) int {
	best := -1
	switch n.Kind {
	case document.KindObject:
		for _, f := range n.Fields {
			best = max(best, depth(f.Value))
		}
	case document.KindArray:
		for _, item := range n.Items {
			best = max(best, depth(item))
		}
	default:
		return 0
	}
	return best + 1
}

// nesting counts element levels below an element node
func nesting(n *document.Node) int {
	if n.Kind != document.KindObject {
		return 0
	}
	best := 0
	for _, f := range n.Fields {
		if strings.HasPrefix(f.Key, document.AttrPrefix) || f.Key == document.TextKey {
			continue
		}
		children := []*document.Node{f.Value}
		if f.Value.Kind == document.KindArray {
			children = f.Value.Items
		}
		for _, c := range children {
			best = max(best, 1+nesting(c))
		}
	}
	return best
}

func TestGenerateBounds(t *testing.T) {
	g := newGenerator()

	for d := 0; d <= 4; d++ {
		for s := int64(0); s < 25; s++ {
			opts := Options{Depth: d, MaxKeys: 4, MaxItems: 3, Seed: seed(s)}
			doc, used, err := g.Generate(opts)
			require.NoError(t, err)
			assert.Equal(t, s, used)
			assert.LessOrEqual(t, depth(doc), d)

			doc.Walk(func(_ document.Path, _ string, n *document.Node) bool {
				switch n.Kind {
				case document.KindObject:
					assert.GreaterOrEqual(t, len(n.Fields), 1)
					assert.LessOrEqual(t, len(n.Fields), 4)
				case document.KindArray:
					assert.GreaterOrEqual(t, len(n.Items), 1)
					assert.LessOrEqual(t, len(n.Items), 3)
				}
				return true
			})
		}
	}
}

func TestGenerateZeroDepthIsScalar(t *testing.T) {
	doc, _, err := newGenerator().Generate(Options{Depth: 0, MaxKeys: 5, MaxItems: 5, Seed: seed(1)})
	require.NoError(t, err)
	assert.True(t, doc.Kind.IsScalar())
}

func TestGenerateDeterministic(t *testing.T) {
	g := newGenerator()
	render := func() string {
		doc, _, err := g.Generate(Options{Depth: 3, MaxKeys: 5, MaxItems: 5, Seed: seed(99)})
		require.NoError(t, err)
		data, err := document.Marshal(doc, "")
		require.NoError(t, err)
		return string(data)
	}
	assert.Equal(t, render(), render())
}

func TestGenerateXML(t *testing.T) {
	g := newGenerator()

	for d := 0; d <= 3; d++ {
		for s := int64(0); s < 25; s++ {
			opts := XMLOptions{Depth: d, MaxChildren: 4, MaxItems: 2, Seed: seed(s), RootTag: "catalog"}
			doc, _, err := g.GenerateXML(opts)
			require.NoError(t, err)
			require.Equal(t, []string{"catalog"}, doc.Keys())

			root, _ := doc.Get("catalog")
			assert.LessOrEqual(t, nesting(root), d)

			data, err := document.MarshalXML(doc, "  ", true)
			require.NoError(t, err)
			_, err = document.ParseXML(data)
			assert.NoError(t, err, string(data))
		}
	}
}

func TestOptionsValidate(t *testing.T) {
	g := newGenerator()

	_, _, err := g.Generate(Options{Depth: -1, MaxKeys: 1, MaxItems: 1})
	assert.Error(t, err)
	_, _, err = g.Generate(Options{Depth: 1, MaxKeys: 0, MaxItems: 1})
	assert.Error(t, err)
	_, _, err = g.GenerateXML(XMLOptions{Depth: 1, MaxChildren: 1, MaxItems: 1})
	assert.Error(t, err, "empty root tag")
	_, _, err = g.GenerateXML(XMLOptions{Depth: 1, MaxChildren: 0, MaxItems: 1, RootTag: "r"})
	assert.Error(t, err)
}
