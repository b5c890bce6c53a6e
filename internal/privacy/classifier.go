package privacy

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/raaihank/jsonnymous/internal/config"
	"github.com/raaihank/jsonnymous/internal/document"
	"github.com/raaihank/jsonnymous/internal/logger"
	"github.com/raaihank/jsonnymous/internal/semantic"
	"go.uber.org/zap"
)

// Classifier finds sensitive leaves by key name and value shape
type Classifier struct {
	policy  *semantic.Policy
	enabled map[semantic.Category]bool
	always  []string
	never   []string
	logger  *logger.Logger
}

// digitCategories may be stored as JSON numbers and still identify someone
var digitCategories = map[semantic.Category]bool{
	semantic.Phone:      true,
	semantic.NationalID: true,
	semantic.CreditCard: true,
	semantic.PostalCode: true,
}

// New creates a classifier from the privacy configuration
func New(cfg config.PrivacyConfig, log *logger.Logger) (*Classifier, error) {
	c := &Classifier{
		policy:  semantic.DefaultPolicy(),
		enabled: make(map[semantic.Category]bool),
		logger:  log,
	}

	if err := c.configureDetectors(cfg.Detectors); err != nil {
		return nil, fmt.Errorf("failed to configure detectors: %w", err)
	}

	if len(cfg.ExtraRules) > 0 {
		rules := make([]semantic.KeyRule, 0, len(cfg.ExtraRules))
		for _, r := range cfg.ExtraRules {
			cat, err := semantic.ParseCategory(r.Category)
			if err != nil {
				return nil, fmt.Errorf("failed to configure extra rule %q: %w", r.Pattern, err)
			}
			rule, err := semantic.NewKeyRule(r.Pattern, cat)
			if err != nil {
				return nil, fmt.Errorf("failed to compile extra rule %q: %w", r.Pattern, err)
			}
			rules = append(rules, rule)
		}
		c.policy = c.policy.WithKeyRules(rules...)
	}

	for _, glob := range append(append([]string{}, cfg.AlwaysSensitive...), cfg.NeverSensitive...) {
		if !doublestar.ValidatePattern(glob) {
			return nil, fmt.Errorf("invalid path glob: %s", glob)
		}
	}
	c.always = cfg.AlwaysSensitive
	c.never = cfg.NeverSensitive

	log.Info("Sensitive-field classifier initialized",
		zap.Int("enabled_categories", len(c.enabled)),
		zap.Int("extra_rules", len(cfg.ExtraRules)),
		zap.Int("path_overrides", len(c.always)+len(c.never)),
	)

	return c, nil
}

// configureDetectors enables categories by name; "all" enables every
// sensitive category
func (c *Classifier) configureDetectors(detectors []string) error {
	for _, name := range detectors {
		if name == "all" {
			for _, cat := range semantic.All() {
				if cat.Sensitive() {
					c.enabled[cat] = true
				}
			}
			continue
		}

		cat, err := semantic.ParseCategory(name)
		if err != nil {
			return fmt.Errorf("unknown detector: %s", name)
		}
		if !cat.Sensitive() {
			return fmt.Errorf("detector %s is not a sensitive category", name)
		}
		c.enabled[cat] = true
	}
	return nil
}

// Policy returns the decision table the classifier uses
func (c *Classifier) Policy() *semantic.Policy {
	return c.policy
}

// Classify returns the sensitive leaves of doc in traversal order. The
// document is not modified.
func (c *Classifier) Classify(doc *document.Node) []SensitivePath {
	var found []SensitivePath
	if doc == nil {
		return found
	}

	doc.Walk(func(path document.Path, _ string, n *document.Node) bool {
		if !n.Kind.IsScalar() {
			return true
		}
		if sp, ok := c.classifyLeaf(path, n); ok {
			found = append(found, sp)
		}
		return true
	})

	c.logger.Debug("Document classified", zap.Int("sensitive_fields", len(found)))
	return found
}

func (c *Classifier) classifyLeaf(path document.Path, n *document.Node) (SensitivePath, bool) {
	switch n.Kind {
	case document.KindString:
		if strings.TrimSpace(n.String()) == "" {
			return SensitivePath{}, false
		}
	case document.KindNumber:
	default:
		return SensitivePath{}, false
	}

	glob := path.Glob()
	if matchAny(c.never, glob) {
		return SensitivePath{}, false
	}

	key := leafKey(path)
	sp := SensitivePath{Path: path.String(), Pattern: path.Pattern().String(), at: path}

	if cat, ok := c.policy.KeyCategory(key); ok && c.enabled[cat] {
		if n.Kind == document.KindString || digitCategories[cat] {
			sp.Category, sp.Source = cat, semantic.SourceKey
			return sp, true
		}
	}

	if s, ok := n.Value.(string); ok {
		if cat, ok := c.policy.ShapeCategory(s); ok && c.enabled[cat] {
			sp.Category, sp.Source = cat, semantic.SourceValue
			return sp, true
		}
	}

	if matchAny(c.always, glob) {
		sp.Category = c.policy.Infer(semantic.Signals{Key: key, Value: n.Value}).Category
		sp.Source = semantic.SourcePath
		return sp, true
	}

	return SensitivePath{}, false
}

// leafKey is the nearest key naming the leaf; XML text takes its element's name
func leafKey(path document.Path) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i].Kind == document.SegmentKey && path[i].Key != document.TextKey {
			return strings.TrimPrefix(path[i].Key, document.AttrPrefix)
		}
	}
	return ""
}

func matchAny(globs []string, path string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, path); ok {
			return true
		}
	}
	return false
}
