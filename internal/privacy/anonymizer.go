package privacy

import (
	"fmt"
	"reflect"

	"github.com/raaihank/jsonnymous/internal/document"
	"github.com/raaihank/jsonnymous/internal/logger"
	"github.com/raaihank/jsonnymous/internal/semantic"
	"github.com/raaihank/jsonnymous/internal/synth"
	"go.uber.org/zap"
)

// maxRedraws bounds attempts to draw a replacement that differs from the original
const maxRedraws = 3

// Anonymizer replaces classified leaves while keeping the document's shape
type Anonymizer struct {
	classifier *Classifier
	synth      *synth.Synthesizer
	consistent bool
	logger     *logger.Logger
}

// NewAnonymizer creates an anonymizer. With consistent set, equal original
// values of the same category receive the same replacement within one call.
func NewAnonymizer(c *Classifier, s *synth.Synthesizer, consistent bool, log *logger.Logger) *Anonymizer {
	return &Anonymizer{classifier: c, synth: s, consistent: consistent, logger: log}
}

// Classifier returns the classifier deciding which leaves are replaced
func (a *Anonymizer) Classifier() *Classifier {
	return a.classifier
}

type mappingKey struct {
	category semantic.Category
	value    string
}

// Anonymize returns a copy of doc in which every sensitive leaf holds a
// synthetic value of the same category and JSON type. All other leaves and
// the document structure are untouched.
func (a *Anonymizer) Anonymize(doc *document.Node, opts Options) (*document.Node, Report, error) {
	if doc == nil {
		return nil, Report{}, fmt.Errorf("%w: document is empty", document.ErrMalformed)
	}

	out := doc.Clone()
	src := synth.NewSource(opts.Seed)
	report := Report{Seed: src.Seed(), ByCategory: map[string]int{}}
	seen := make(map[mappingKey]any)

	for _, sp := range a.classifier.Classify(doc) {
		leaf, ok := out.At(sp.at)
		if !ok {
			continue
		}
		original := leaf.Value

		key := mappingKey{category: sp.Category, value: fmt.Sprintf("%T:%v", original, original)}
		replacement, reused := seen[key]
		if !reused || !a.consistent {
			replacement = a.draw(sp.Category, original, src)
			seen[key] = replacement
		}

		*leaf = *document.Scalar(replacement)
		report.AnonymizedFields++
		report.ByCategory[sp.Category.String()]++
	}

	a.logger.Debug("Document anonymized",
		zap.Int64("seed", report.Seed),
		zap.Int("anonymized_fields", report.AnonymizedFields),
	)
	return out, report, nil
}

func (a *Anonymizer) draw(cat semantic.Category, original any, src *synth.Source) any {
	var v any
	for i := 0; i < maxRedraws; i++ {
		v = a.synth.SynthesizeLike(cat, original, src)
		if !reflect.DeepEqual(v, original) {
			break
		}
	}
	return v
}
