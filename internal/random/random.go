package random

import (
	"fmt"
	"strconv"

	"github.com/raaihank/jsonnymous/internal/document"
	"github.com/raaihank/jsonnymous/internal/semantic"
	"github.com/raaihank/jsonnymous/internal/synth"
	"go.uber.org/zap"
)

// Defaults used when an option is left at zero
const (
	DefaultDepth       = 3
	DefaultMaxKeys     = 5
	DefaultMaxChildren = 5
	DefaultMaxItems    = 5
	DefaultRootTag     = "root"
)

// Options bounds a random JSON document
type Options struct {
	Depth    int
	MaxKeys  int
	MaxItems int
	Seed     *int64
}

// XMLOptions bounds a random XML document
type XMLOptions struct {
	Depth       int
	MaxChildren int
	MaxItems    int
	Seed        *int64
	RootTag     string
}

var (
	semanticKeys = []string{"id", "name", "email", "phone", "address", "city", "country",
		"date", "time", "status", "type", "value", "count", "price", "amount"}
	keyPrefixes = []string{"user", "item", "product", "order", "customer", "category"}

	semanticTags = []string{"item", "element", "node", "entry", "record", "data", "field",
		"property", "attribute", "value", "name", "id", "type", "status", "user", "product",
		"order", "category"}
	tagPrefixes = []string{"item", "element", "node"}

	attrNames   = []string{"id", "name", "type", "status", "value", "count", "date"}
	attrTypes   = []string{"string", "number", "boolean", "date", "object", "array"}
	attrStatus  = []string{"active", "inactive", "pending", "completed", "failed"}
	leafKinds   = []semantic.Category{semantic.Word, semantic.Integer, semantic.Number, semantic.Boolean, semantic.Email, semantic.Phone, semantic.Date, semantic.DateTime}
	letterRunes = "abcdefghijklmnopqrstuvwxyz"
)

// Generator builds documents without a skeleton
type Generator struct {
	synth  *synth.Synthesizer
	policy *semantic.Policy
	logger *zap.Logger
}

// New creates a random document generator
func New(s *synth.Synthesizer, policy *semantic.Policy, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	if s == nil {
		s = synth.New(log, 0)
	}
	if policy == nil {
		policy = semantic.DefaultPolicy()
	}
	return &Generator{synth: s, policy: policy, logger: log}
}

// Validate rejects negative or zero-width bounds
func (o Options) Validate() error {
	if o.Depth < 0 {
		return fmt.Errorf("depth must be non-negative, got %d", o.Depth)
	}
	if o.MaxKeys < 1 || o.MaxItems < 1 {
		return fmt.Errorf("maxKeys and maxItems must be at least 1")
	}
	return nil
}

// Validate rejects negative or zero-width bounds
func (o XMLOptions) Validate() error {
	if o.Depth < 0 {
		return fmt.Errorf("depth must be non-negative, got %d", o.Depth)
	}
	if o.MaxChildren < 1 || o.MaxItems < 1 {
		return fmt.Errorf("maxChildren and maxItems must be at least 1")
	}
	if o.RootTag == "" {
		return fmt.Errorf("rootTag must not be empty")
	}
	return nil
}

// Generate builds a JSON-shaped document whose nesting depth never exceeds
// opts.Depth. A depth of zero yields a single scalar.
func (g *Generator) Generate(opts Options) (*document.Node, int64, error) {
	if err := opts.Validate(); err != nil {
		return nil, 0, err
	}
	src := synth.NewSource(opts.Seed)

	var doc *document.Node
	if opts.Depth == 0 {
		doc = g.leaf("", src)
	} else {
		doc = g.object(opts, opts.Depth, src)
	}

	g.logger.Debug("Random document generated",
		zap.Int64("seed", src.Seed()),
		zap.Int("depth", opts.Depth),
	)
	return doc, src.Seed(), nil
}

// object builds an object of depth at most r (r >= 1). A child nests
// further with probability (r-1)/(r+1), so deep trees thin out.
func (g *Generator) object(opts Options, r int, src *synth.Source) *document.Node {
	obj := document.NewObject()
	n := 1 + src.Intn(opts.MaxKeys)
	for len(obj.Fields) < n {
		key := randomKey(src)
		if _, exists := obj.Get(key); exists {
			continue
		}

		var child *document.Node
		switch {
		case r > 1 && src.Chance(float64(r-1)/float64(r+1)):
			child = g.object(opts, r-1, src)
		case r > 1 && src.Chance(0.3):
			items := make([]*document.Node, 1+src.Intn(opts.MaxItems))
			for i := range items {
				items[i] = g.leaf(key, src)
			}
			child = document.NewArray(items...)
		default:
			child = g.leaf(key, src)
		}
		obj.Fields = append(obj.Fields, document.Field{Key: key, Value: child})
	}
	return obj
}

// leaf draws a scalar whose category follows the key when it names one
func (g *Generator) leaf(key string, src *synth.Source) *document.Node {
	cat, ok := g.policy.KeyCategory(key)
	if !ok {
		cat = leafKinds[src.Intn(len(leafKinds))]
	}
	v, _ := g.synth.Synthesize(cat, nil, src)
	return document.Scalar(v)
}

// GenerateXML builds a single-root XML-shaped document. Element nesting
// below the root never exceeds opts.Depth.
func (g *Generator) GenerateXML(opts XMLOptions) (*document.Node, int64, error) {
	if err := opts.Validate(); err != nil {
		return nil, 0, err
	}
	src := synth.NewSource(opts.Seed)

	doc := document.NewObject()
	doc.Set(opts.RootTag, g.element(opts, opts.Depth, src))

	g.logger.Debug("Random XML document generated",
		zap.Int64("seed", src.Seed()),
		zap.Int("depth", opts.Depth),
		zap.String("root_tag", opts.RootTag),
	)
	return doc, src.Seed(), nil
}

func (g *Generator) element(opts XMLOptions, r int, src *synth.Source) *document.Node {
	el := document.NewObject()

	if src.Chance(0.5) {
		for i, n := 0, src.Intn(4); i < n; i++ {
			name := attrNames[src.Intn(len(attrNames))]
			if _, exists := el.Get(document.AttrPrefix + name); !exists {
				el.Set(document.AttrPrefix+name, attrValue(name, src))
			}
		}
	}

	if r <= 0 || !src.Chance(0.7) {
		text := g.text(src)
		if len(el.Fields) == 0 {
			return text
		}
		el.Set(document.TextKey, text)
		return el
	}

	n := 1 + src.Intn(opts.MaxChildren)
	if n > 1 && src.Chance(0.4) {
		tag := randomTag(src)
		items := make([]*document.Node, min(n, opts.MaxItems))
		for i := range items {
			items[i] = g.element(opts, r-1, src)
		}
		if len(items) == 1 {
			el.Set(tag, items[0])
		} else {
			el.Set(tag, document.NewArray(items...))
		}
		return el
	}

	for added := 0; added < n; {
		tag := randomTag(src)
		if _, exists := el.Get(tag); exists {
			continue
		}
		el.Set(tag, g.element(opts, r-1, src))
		added++
	}
	return el
}

func (g *Generator) text(src *synth.Source) *document.Node {
	v, _ := g.synth.Synthesize(leafKinds[src.Intn(len(leafKinds))], nil, src)
	return document.Scalar(v)
}

func attrValue(name string, src *synth.Source) *document.Node {
	switch name {
	case "id":
		return document.Scalar(int64(1 + src.Intn(10000)))
	case "type":
		return document.Scalar(attrTypes[src.Intn(len(attrTypes))])
	case "status":
		return document.Scalar(attrStatus[src.Intn(len(attrStatus))])
	case "date":
		return document.Scalar(fmt.Sprintf("%d-%02d-%02d", 2020+src.Intn(5), 1+src.Intn(12), 1+src.Intn(28)))
	default:
		return document.Scalar(src.Alphanumeric(3 + src.Intn(13)))
	}
}

func randomKey(src *synth.Source) string {
	switch src.Intn(3) {
	case 0:
		return letters(3+src.Intn(8), src)
	case 1:
		return semanticKeys[src.Intn(len(semanticKeys))]
	default:
		return keyPrefixes[src.Intn(len(keyPrefixes))] + strconv.Itoa(1+src.Intn(100))
	}
}

func randomTag(src *synth.Source) string {
	switch src.Intn(3) {
	case 0:
		return letters(3+src.Intn(8), src)
	case 1:
		return semanticTags[src.Intn(len(semanticTags))]
	default:
		return tagPrefixes[src.Intn(len(tagPrefixes))] + strconv.Itoa(1+src.Intn(100))
	}
}

func letters(n int, src *synth.Source) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letterRunes[src.Intn(len(letterRunes))]
	}
	return string(b)
}
