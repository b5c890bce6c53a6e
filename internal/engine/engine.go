package engine

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/raaihank/jsonnymous/internal/config"
	"github.com/raaihank/jsonnymous/internal/document"
	"github.com/raaihank/jsonnymous/internal/generator"
	"github.com/raaihank/jsonnymous/internal/logger"
	"github.com/raaihank/jsonnymous/internal/privacy"
	"github.com/raaihank/jsonnymous/internal/random"
	"github.com/raaihank/jsonnymous/internal/schema"
	"github.com/raaihank/jsonnymous/internal/synth"
	"go.uber.org/zap"
)

// Engine runs the public operations. It holds no per-call state and is
// safe for concurrent use.
type Engine struct {
	generation config.GenerationConfig
	randomCaps config.RandomConfig

	synth   *synth.Synthesizer
	current atomic.Pointer[pipeline]

	validate *validator.Validate
	base     *logger.Logger
	logger   *logger.Logger
	now      func() time.Time
}

// pipeline is the set of components sharing one privacy policy. It is
// replaced as a whole on reload.
type pipeline struct {
	anonymizer *privacy.Anonymizer
	generator  *generator.Generator
	random     *random.Generator
}

// New wires the generator, classifier and anonymizer from configuration
func New(cfg *config.Config, log *logger.Logger) (*Engine, error) {
	e := &Engine{
		generation: cfg.Generation,
		randomCaps: cfg.Random,
		synth:      synth.New(log.WithComponent("synth").Logger, cfg.Generation.MaxRetries),
		validate:   validator.New(),
		base:       log,
		logger:     log.WithComponent("engine"),
		now:        time.Now,
	}
	e.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	if err := e.UpdatePrivacy(cfg.Privacy); err != nil {
		return nil, err
	}
	return e, nil
}

// UpdatePrivacy swaps the classifier, anonymizer and both generators for a
// new policy, so extra key rules drive generation and classification alike.
// Calls in flight keep the policy they started with.
func (e *Engine) UpdatePrivacy(cfg config.PrivacyConfig) error {
	classifier, err := privacy.New(cfg, e.base.WithComponent("classifier"))
	if err != nil {
		return fmt.Errorf("failed to create classifier: %w", err)
	}
	policy := classifier.Policy()
	e.current.Store(&pipeline{
		anonymizer: privacy.NewAnonymizer(classifier, e.synth, cfg.Consistent, e.base.WithComponent("anonymizer")),
		generator:  generator.New(e.synth, policy, e.generation.DefaultCount, e.base.WithComponent("generator").Logger),
		random:     random.New(e.synth, policy, e.base.WithComponent("random").Logger),
	})
	return nil
}

// Parse reads a document in the given format
func Parse(data []byte, format Format) (*document.Node, error) {
	if format == FormatXML {
		return document.ParseXML(data)
	}
	return document.ParseJSON(data)
}

// Render serializes a document in the given format. XML output carries a
// declaration; pretty output is indented by two spaces.
func Render(doc *document.Node, format Format, pretty bool) ([]byte, error) {
	indent := ""
	if pretty {
		indent = "  "
	}
	if format == FormatXML {
		return document.MarshalXML(doc, indent, true)
	}
	return document.Marshal(doc, indent)
}

// Generate fills a skeleton with synthesized values, constrained by the
// optional schema
func (e *Engine) Generate(req GenerateRequest) (*GenerateResponse, error) {
	if err := e.validate.Struct(req); err != nil {
		return nil, invalidOptions(err)
	}
	opts := req.Options
	if opts.Count != nil && *opts.Count > e.generation.MaxCount {
		return nil, &ErrInvalidOptions{Field: "count", Message: fmt.Sprintf("must not exceed %d", e.generation.MaxCount)}
	}
	if req.Format == FormatXML && opts.Count != nil && *opts.Count < 1 {
		return nil, &ErrInvalidOptions{Field: "count", Message: "xml output needs at least one root element"}
	}

	skeleton, err := Parse(req.Skeleton, req.Format)
	if err != nil {
		return nil, &ErrMalformedInput{What: "skeleton", Cause: err}
	}

	// XML repetition applies to the root element
	if req.Format == FormatXML && opts.Count != nil {
		skeleton = document.NewArray(skeleton)
	}

	meta := GenerateMetadata{}
	var (
		schemaDoc  *schema.Document
		schemaRoot map[string]any
		index      *schema.Index
	)
	if len(req.Schema) > 0 {
		schemaDoc, err = schema.Load(req.Schema)
		if err != nil {
			return nil, &ErrMalformedInput{What: "schema", Cause: err}
		}
		schemaRoot, meta.SchemaName, err = selectRoot(schemaDoc, skeleton, req.Format, opts.SchemaName)
		if err != nil {
			if errors.Is(err, schema.ErrUnknownSchema) {
				return nil, &ErrInvalidOptions{Field: "schemaName", Message: err.Error()}
			}
			return nil, err
		}
		index = schema.NewResolver(schemaDoc.Definitions, e.generation.MaxRefDepth, e.logger.Logger).Resolve(schemaRoot)
		meta.Issues = index.Issues()
	}

	doc, stats, err := e.current.Load().generator.Generate(skeleton, index, generator.Options{Seed: opts.Seed, Count: opts.Count})
	if err != nil {
		return nil, fmt.Errorf("failed to generate document: %w", err)
	}

	if schemaRoot != nil && (opts.Validate || e.generation.Validate) {
		meta.ValidationErrors, err = schemaDoc.Validate(doc, schemaRoot)
		if err != nil {
			e.logger.Warn("Generated document could not be validated", zap.Error(err))
		}
	}

	meta.Stats = stats
	meta.Seed = stats.Seed
	meta.GeneratedAt = e.now()
	meta.ItemCount = itemCount(doc, req.Format)

	e.logger.Info("Document generated",
		zap.String("format", string(req.Format)),
		zap.Int("item_count", meta.ItemCount),
		zap.Int("leaves", stats.Leaves),
		zap.Int("schema_issues", len(meta.Issues)),
		zap.Int("validation_errors", len(meta.ValidationErrors)),
	)
	return &GenerateResponse{Document: doc, Metadata: meta}, nil
}

// selectRoot picks the schema for the skeleton. XML skeletons are matched
// on their root element, and the schema is wrapped to follow the
// document's root tag and any repetition of it.
func selectRoot(doc *schema.Document, skeleton *document.Node, format Format, name string) (map[string]any, string, error) {
	if format != FormatXML {
		return doc.SelectRoot(skeleton, name)
	}

	single := skeleton
	repeated := skeleton.Kind == document.KindArray
	if repeated {
		single = skeleton.Items[0]
	}
	if len(single.Fields) != 1 {
		return nil, "", nil
	}
	tag, element := single.Fields[0].Key, single.Fields[0].Value

	root, matched, err := doc.SelectRoot(element, name)
	if err != nil || root == nil {
		return nil, "", err
	}
	wrapped := map[string]any{
		"type":       schema.TypeObject,
		"properties": map[string]any{tag: root},
	}
	if repeated {
		wrapped = map[string]any{"type": schema.TypeArray, "items": wrapped}
	}
	return wrapped, matched, nil
}

// Anonymize replaces sensitive values while keeping the document's shape
func (e *Engine) Anonymize(req AnonymizeRequest) (*AnonymizeResponse, error) {
	if err := e.validate.Struct(req); err != nil {
		return nil, invalidOptions(err)
	}
	doc, err := Parse(req.Document, req.Format)
	if err != nil {
		return nil, &ErrMalformedInput{What: "document", Cause: err}
	}

	out, report, err := e.current.Load().anonymizer.Anonymize(doc, privacy.Options{Seed: req.Seed})
	if err != nil {
		return nil, fmt.Errorf("failed to anonymize document: %w", err)
	}

	e.logger.Info("Document anonymized",
		zap.String("format", string(req.Format)),
		zap.Int("anonymized_fields", report.AnonymizedFields),
	)
	return &AnonymizeResponse{
		Document: out,
		Metadata: AnonymizeMetadata{
			AnonymizedFields: report.AnonymizedFields,
			ByCategory:       report.ByCategory,
			ProcessedAt:      e.now(),
			Seed:             report.Seed,
		},
	}, nil
}

// Analyze reports the sensitive field patterns of a document and the
// number of scalar leaves it holds
func (e *Engine) Analyze(req AnalyzeRequest) (*AnalyzeResponse, error) {
	if err := e.validate.Struct(req); err != nil {
		return nil, invalidOptions(err)
	}
	doc, err := Parse(req.Document, req.Format)
	if err != nil {
		return nil, &ErrMalformedInput{What: "document", Cause: err}
	}

	fields := e.current.Load().anonymizer.Classifier().Classify(doc)
	resp := &AnalyzeResponse{SensitiveFields: []string{}, Fields: fields}
	if resp.Fields == nil {
		resp.Fields = []privacy.SensitivePath{}
	}

	seen := make(map[string]bool)
	for _, f := range fields {
		if !seen[f.Pattern] {
			seen[f.Pattern] = true
			resp.SensitiveFields = append(resp.SensitiveFields, f.Pattern)
		}
	}
	doc.Walk(func(_ document.Path, _ string, n *document.Node) bool {
		if n.Kind.IsScalar() {
			resp.TotalFields++
		}
		return true
	})

	e.logger.Info("Document analyzed",
		zap.Int("sensitive_fields", len(fields)),
		zap.Int("total_fields", resp.TotalFields),
	)
	return resp, nil
}

// GenerateRandom builds a random JSON document
func (e *Engine) GenerateRandom(req RandomRequest) (*RandomResponse, error) {
	if err := e.validate.Struct(req); err != nil {
		return nil, invalidOptions(err)
	}
	opts := random.Options{
		Depth:    orDefault(req.Depth, random.DefaultDepth),
		MaxKeys:  orDefault(req.MaxKeys, random.DefaultMaxKeys),
		MaxItems: orDefault(req.MaxItems, random.DefaultMaxItems),
		Seed:     req.Seed,
	}
	if err := e.checkCaps(opts.Depth, opts.MaxKeys, e.randomCaps.MaxKeys, "maxKeys", opts.MaxItems); err != nil {
		return nil, err
	}

	doc, seed, err := e.current.Load().random.Generate(opts)
	if err != nil {
		return nil, &ErrInvalidOptions{Field: "options", Message: err.Error()}
	}
	return &RandomResponse{
		Document: doc,
		Metadata: RandomMetadata{
			ItemCount:   itemCount(doc, FormatJSON),
			GeneratedAt: e.now(),
			Seed:        seed,
			Depth:       opts.Depth,
			MaxKeys:     opts.MaxKeys,
			MaxItems:    opts.MaxItems,
		},
	}, nil
}

// GenerateRandomXML builds a random XML document
func (e *Engine) GenerateRandomXML(req RandomXMLRequest) (*RandomResponse, error) {
	if err := e.validate.Struct(req); err != nil {
		return nil, invalidOptions(err)
	}
	opts := random.XMLOptions{
		Depth:       orDefault(req.Depth, random.DefaultDepth),
		MaxChildren: orDefault(req.MaxChildren, random.DefaultMaxChildren),
		MaxItems:    orDefault(req.MaxItems, random.DefaultMaxItems),
		Seed:        req.Seed,
		RootTag:     req.RootTag,
	}
	if opts.RootTag == "" {
		opts.RootTag = random.DefaultRootTag
	}
	if err := e.checkCaps(opts.Depth, opts.MaxChildren, e.randomCaps.MaxChildren, "maxChildren", opts.MaxItems); err != nil {
		return nil, err
	}

	doc, seed, err := e.current.Load().random.GenerateXML(opts)
	if err != nil {
		return nil, &ErrInvalidOptions{Field: "options", Message: err.Error()}
	}
	return &RandomResponse{
		Document: doc,
		Metadata: RandomMetadata{
			ItemCount:   itemCount(doc, FormatXML),
			GeneratedAt: e.now(),
			Seed:        seed,
			Depth:       opts.Depth,
			MaxChildren: opts.MaxChildren,
			MaxItems:    opts.MaxItems,
		},
	}, nil
}

func (e *Engine) checkCaps(depth, fanout, fanoutCap int, fanoutName string, items int) error {
	switch {
	case depth > e.randomCaps.MaxDepth:
		return &ErrInvalidOptions{Field: "depth", Message: fmt.Sprintf("must not exceed %d", e.randomCaps.MaxDepth)}
	case fanout > fanoutCap:
		return &ErrInvalidOptions{Field: fanoutName, Message: fmt.Sprintf("must not exceed %d", fanoutCap)}
	case items > e.randomCaps.MaxItems:
		return &ErrInvalidOptions{Field: "maxItems", Message: fmt.Sprintf("must not exceed %d", e.randomCaps.MaxItems)}
	}
	return nil
}

// ValidateXML checks that data is well-formed XML and describes its root.
// Malformed input is reported in the response, not as an error.
func (e *Engine) ValidateXML(data []byte, format bool) *ValidateXMLResponse {
	structure, err := document.InspectXML(data)
	if err != nil {
		return &ValidateXMLResponse{IsValid: false, Error: err.Error()}
	}

	resp := &ValidateXMLResponse{IsValid: true, Structure: structure}
	if format {
		if doc, err := document.ParseXML(data); err == nil {
			if out, err := document.MarshalXML(doc, "  ", true); err == nil {
				resp.Formatted = string(out)
			}
		}
	}
	return resp
}

// XPath evaluates a path expression. A bare name searches all descendants
// and a bare @attr searches every element.
func (e *Engine) XPath(req XPathRequest) (*XPathResponse, error) {
	if err := e.validate.Struct(req); err != nil {
		return nil, invalidOptions(err)
	}

	expr := strings.TrimSpace(req.XPath)
	if !strings.ContainsRune(expr, '/') && !strings.HasPrefix(expr, ".") {
		expr = "//" + expr
	}

	matches, err := document.SelectXML(req.XML, expr)
	if err != nil {
		if errors.Is(err, document.ErrUnsupportedExpression) {
			return nil, &ErrInvalidOptions{Field: "xpath", Message: err.Error()}
		}
		return nil, &ErrMalformedInput{What: "xml", Cause: err}
	}

	resp := &XPathResponse{Results: make([]any, 0, len(matches)), Count: len(matches)}
	for _, m := range matches {
		if req.Format == FormatXML {
			resp.Results = append(resp.Results, matchXML(m))
			continue
		}
		node := document.NewObject()
		node.Set(m.Name, m.Node)
		resp.Results = append(resp.Results, node)
	}
	return resp, nil
}

func matchXML(m document.Match) string {
	if strings.HasPrefix(m.Name, document.AttrPrefix) {
		return fmt.Sprintf("%s=%q", strings.TrimPrefix(m.Name, document.AttrPrefix), document.ScalarText(m.Node.Value))
	}
	node := document.NewObject()
	node.Set(m.Name, m.Node)
	out, err := document.MarshalXML(node, "", false)
	if err != nil {
		return ""
	}
	return string(out)
}

// itemCount is the length of the root array, else of the first array-valued
// top-level field, else 1. For XML it is the number of root elements when
// repeated, else the number of child elements of the root.
func itemCount(doc *document.Node, format Format) int {
	if format == FormatXML {
		if doc.Kind == document.KindArray {
			return len(doc.Items)
		}
		if len(doc.Fields) != 1 || doc.Fields[0].Value.Kind != document.KindObject {
			return 0
		}
		n := 0
		for _, f := range doc.Fields[0].Value.Fields {
			switch {
			case strings.HasPrefix(f.Key, document.AttrPrefix), f.Key == document.TextKey:
			case f.Value.Kind == document.KindArray:
				n += len(f.Value.Items)
			default:
				n++
			}
		}
		return n
	}

	switch doc.Kind {
	case document.KindArray:
		return len(doc.Items)
	case document.KindObject:
		for _, f := range doc.Fields {
			if f.Value.Kind == document.KindArray {
				return len(f.Value.Items)
			}
		}
	}
	return 1
}

func orDefault(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
