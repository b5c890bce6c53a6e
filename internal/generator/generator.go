package generator

import (
	"fmt"
	"strings"

	"github.com/raaihank/jsonnymous/internal/document"
	"github.com/raaihank/jsonnymous/internal/schema"
	"github.com/raaihank/jsonnymous/internal/semantic"
	"github.com/raaihank/jsonnymous/internal/synth"
	"go.uber.org/zap"
)

// DefaultCount is the repetition count for single-item array templates
// when neither the request nor the configuration sets one
const DefaultCount = 1

// Options controls a single generation run
type Options struct {
	Seed  *int64
	Count *int
}

// Stats summarises a generation run
type Stats struct {
	Seed           int64 `json:"seed"`
	Leaves         int   `json:"leaves"`
	ArraysExpanded int   `json:"arraysExpanded"`
	Clamped        int   `json:"clamped"`
}

// Generator fills a skeleton document with synthesized values
type Generator struct {
	synth        *synth.Synthesizer
	policy       *semantic.Policy
	defaultCount int
	logger       *zap.Logger
}

// New creates a generator. A non-positive defaultCount falls back to DefaultCount.
func New(s *synth.Synthesizer, policy *semantic.Policy, defaultCount int, log *zap.Logger) *Generator {
	if policy == nil {
		policy = semantic.DefaultPolicy()
	}
	if defaultCount <= 0 {
		defaultCount = DefaultCount
	}
	if log == nil {
		log = zap.NewNop()
	}
	if s == nil {
		s = synth.New(log, 0)
	}
	return &Generator{synth: s, policy: policy, defaultCount: defaultCount, logger: log}
}

// run holds the state of one Generate call
type run struct {
	g     *Generator
	src   *synth.Source
	index *schema.Index
	count *int
	stats Stats
}

// Generate walks the skeleton in document order and returns a new document
// of the same shape. Single-item arrays are treated as templates and
// repeated; longer arrays are generated slot by slot.
func (g *Generator) Generate(skeleton *document.Node, index *schema.Index, opts Options) (*document.Node, Stats, error) {
	if skeleton == nil {
		return nil, Stats{}, fmt.Errorf("%w: skeleton is empty", document.ErrMalformed)
	}
	if opts.Count != nil && *opts.Count < 0 {
		return nil, Stats{}, fmt.Errorf("count must be non-negative, got %d", *opts.Count)
	}

	r := &run{g: g, src: synth.NewSource(opts.Seed), index: index, count: opts.Count}
	r.stats.Seed = r.src.Seed()

	out := r.node(skeleton, document.Path{}, "")

	g.logger.Debug("Document generated",
		zap.Int64("seed", r.stats.Seed),
		zap.Int("leaves", r.stats.Leaves),
		zap.Int("arrays_expanded", r.stats.ArraysExpanded),
		zap.Int("clamped", r.stats.Clamped),
	)
	return out, r.stats, nil
}

func (r *run) node(n *document.Node, path document.Path, key string) *document.Node {
	switch n.Kind {
	case document.KindObject:
		out := &document.Node{Kind: document.KindObject, Fields: make([]document.Field, 0, len(n.Fields))}
		for _, f := range n.Fields {
			childKey := f.Key
			if childKey == document.TextKey {
				childKey = key
			}
			out.Fields = append(out.Fields, document.Field{
				Key:   f.Key,
				Value: r.node(f.Value, path.Key(f.Key), childKey),
			})
		}
		return out
	case document.KindArray:
		return r.array(n, path, key)
	default:
		return r.leaf(n, path, key)
	}
}

func (r *run) array(n *document.Node, path document.Path, key string) *document.Node {
	switch len(n.Items) {
	case 0:
		return document.NewArray()
	case 1:
		count := r.repeat(path)
		items := make([]*document.Node, 0, count)
		for i := 0; i < count; i++ {
			items = append(items, r.node(n.Items[0], path.Index(i), key))
		}
		r.stats.ArraysExpanded++
		return document.NewArray(items...)
	default:
		items := make([]*document.Node, len(n.Items))
		for i, item := range n.Items {
			items[i] = r.node(item, path.Index(i), key)
		}
		return document.NewArray(items...)
	}
}

// repeat returns the number of instances for a template array. An explicit
// count wins; otherwise the default is kept within minItems/maxItems.
func (r *run) repeat(path document.Path) int {
	if r.count != nil {
		return *r.count
	}
	n := r.g.defaultCount
	if c, ok := r.index.Lookup(path); ok {
		if c.MinItems != nil && n < *c.MinItems {
			n = *c.MinItems
		}
		if c.MaxItems != nil && n > *c.MaxItems {
			n = *c.MaxItems
		}
	}
	if n < 0 {
		n = 0
	}
	return n
}

func (r *run) leaf(n *document.Node, path document.Path, key string) *document.Node {
	c, _ := r.index.Lookup(path)

	signals := semantic.Signals{Key: strings.TrimPrefix(key, document.AttrPrefix), Value: n.Value}
	if c != nil {
		signals.SchemaType = scalarType(c.Type)
		signals.SchemaFormat = c.Format
	}
	decision := r.g.policy.Infer(signals)

	if n.Kind == document.KindNull && decision.Source == semantic.SourceDefault && (c == nil || len(c.Enum) == 0) {
		return document.Null()
	}

	v, clamped := r.g.synth.Synthesize(decision.Category, c, r.src)
	r.stats.Leaves++
	if clamped {
		r.stats.Clamped++
		r.g.logger.Debug("Constraint clamped",
			zap.String("path", path.String()),
			zap.String("category", decision.Category.String()),
		)
	}
	return document.Scalar(v)
}

// scalarType drops container and unknown schema types, which carry no
// signal for a leaf
func scalarType(t string) string {
	switch t {
	case schema.TypeString, schema.TypeInteger, schema.TypeNumber, schema.TypeBoolean:
		return t
	default:
		return ""
	}
}
