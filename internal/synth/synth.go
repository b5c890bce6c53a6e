package synth

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/raaihank/jsonnymous/internal/schema"
	"github.com/raaihank/jsonnymous/internal/semantic"
	"go.uber.org/zap"
)

// DefaultMaxRetries bounds reject-and-retry before a value is clamped
const DefaultMaxRetries = 16

var (
	dateFloor  = time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	dateCeil   = time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)
	birthFloor = time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC)
	birthCeil  = time.Date(2006, 12, 31, 0, 0, 0, 0, time.UTC)

	cardOptions = gofakeit.CreditCardOptions{Types: []string{"visa", "mastercard"}}
)

// Synthesizer produces scalar values for a category under optional constraints
type Synthesizer struct {
	maxRetries int
	logger     *zap.Logger
}

// New creates a synthesizer; maxRetries <= 0 uses DefaultMaxRetries
func New(log *zap.Logger, maxRetries int) *Synthesizer {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Synthesizer{maxRetries: maxRetries, logger: log}
}

// Synthesize draws one value. The second result is true when the
// constraint could not be met by sampling and the value was clamped.
func (s *Synthesizer) Synthesize(cat semantic.Category, c *schema.Constraint, src *Source) (any, bool) {
	if c != nil && len(c.Enum) > 0 {
		return c.Enum[src.Intn(len(c.Enum))], false
	}

	if c != nil {
		if fc, ok := semantic.FromFormat(c.Format); ok {
			cat = fc
		}
		if !cat.Compatible(c.Type) {
			cat = categoryForType(c.Type)
		}
	}

	switch cat.JSONType() {
	case "integer":
		return s.integer(cat, c, src)
	case "number":
		return s.number(c, src)
	case "boolean":
		return src.Bool(), false
	default:
		return s.text(cat, c, src)
	}
}

func categoryForType(t string) semantic.Category {
	switch t {
	case schema.TypeInteger:
		return semantic.Integer
	case schema.TypeNumber:
		return semantic.Number
	case schema.TypeBoolean:
		return semantic.Boolean
	default:
		return semantic.Word
	}
}

func (s *Synthesizer) integer(cat semantic.Category, c *schema.Constraint, src *Source) (any, bool) {
	lo, hi := 0.0, 1000.0
	if cat == semantic.Age {
		lo, hi = 18, 90
	}
	lo, hi = bounds(c, lo, hi)

	ilo, ihi := toInt64(math.Ceil(lo)), toInt64(math.Floor(hi))
	if c != nil && c.ExclusiveMinimum && c.Minimum != nil && float64(ilo) == *c.Minimum && ilo < math.MaxInt64 {
		ilo++
	}
	if c != nil && c.ExclusiveMaximum && c.Maximum != nil && float64(ihi) == *c.Maximum && ihi > math.MinInt64 {
		ihi--
	}

	// bounds beyond int64 cannot be met, the nearest representable value is used
	if lo > math.MaxInt64 || hi < math.MinInt64 {
		s.exhausted("integer", cat)
		return ilo, true
	}

	if c != nil && c.MultipleOf != nil && *c.MultipleOf >= 1 && *c.MultipleOf == math.Trunc(*c.MultipleOf) {
		m := toInt64(*c.MultipleOf)
		klo, khi := ceilDiv(ilo, m), floorDiv(ihi, m)
		if klo > khi {
			s.exhausted("integer", cat)
			if klo > math.MaxInt64/m {
				return ilo, true
			}
			return klo * m, true
		}
		return between(klo, khi, src) * m, false
	}

	if ilo > ihi {
		s.exhausted("integer", cat)
		return ilo, true
	}
	return between(ilo, ihi, src), false
}

func (s *Synthesizer) number(c *schema.Constraint, src *Source) (any, bool) {
	lo, hi := bounds(c, 0, 1000)
	if lo > hi {
		s.exhausted("number", semantic.Number)
		return lo, true
	}

	var v float64
	for i := 0; i < s.maxRetries; i++ {
		v = math.Round(src.Float64Range(lo, hi)*100) / 100
		if c != nil && c.MultipleOf != nil && *c.MultipleOf > 0 {
			v = math.Round(v / *c.MultipleOf) * *c.MultipleOf
		}
		if c.AdmitsNumber(v) {
			return v, false
		}
	}

	s.exhausted("number", semantic.Number)
	return math.Min(math.Max(v, lo), hi), true
}

// bounds narrows the default range to the constraint. When the two do
// not overlap the constraint wins.
func bounds(c *schema.Constraint, lo, hi float64) (float64, float64) {
	if c == nil {
		return lo, hi
	}
	switch {
	case c.Minimum != nil && c.Maximum != nil:
		return *c.Minimum, *c.Maximum
	case c.Minimum != nil:
		lo = math.Max(lo, *c.Minimum)
		if lo >= hi {
			hi = lo + 1000
		}
	case c.Maximum != nil:
		hi = math.Min(hi, *c.Maximum)
		if hi <= lo {
			lo = hi - 1000
		}
	}
	return lo, hi
}

// toInt64 converts f, saturating at the int64 range
func toInt64(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// between returns a uniform int64 in [lo, hi]. Spans wider than int63 are
// drawn as uint64 offsets.
func between(lo, hi int64, src *Source) int64 {
	span := uint64(hi) - uint64(lo)
	switch {
	case span < math.MaxInt64:
		return lo + src.Rand.Int63n(int64(span)+1)
	case span == math.MaxUint64:
		return int64(src.Rand.Uint64())
	}
	return int64(uint64(lo) + src.Rand.Uint64()%(span+1))
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a > 0) == (b > 0) {
		q++
	}
	return q
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func (s *Synthesizer) text(cat semantic.Category, c *schema.Constraint, src *Source) (any, bool) {
	gen := func() string { return s.Text(cat, src) }
	if c != nil && c.Pattern != "" {
		pattern := c.Pattern
		gen = func() string { return src.Regex(pattern) }
	}

	var v string
	for i := 0; i < s.maxRetries; i++ {
		v = gen()
		if c.AdmitsString(v) {
			return v, false
		}
	}

	s.exhausted("string", cat)
	return fitLength(v, c, src), true
}

func fitLength(v string, c *schema.Constraint, src *Source) string {
	if c == nil {
		return v
	}
	if c.MaxLength != nil && utf8.RuneCountInString(v) > *c.MaxLength {
		v = string([]rune(v)[:max(*c.MaxLength, 0)])
	}
	if c.MinLength != nil {
		if short := *c.MinLength - utf8.RuneCountInString(v); short > 0 {
			v += src.Alphanumeric(short)
		}
	}
	return v
}

func (s *Synthesizer) exhausted(kind string, cat semantic.Category) {
	s.logger.Debug("Synthesis exhausted, clamping value",
		zap.String("kind", kind),
		zap.String("category", cat.String()),
		zap.Int("max_retries", s.maxRetries),
	)
}

// Text produces an unconstrained string for a category
func (s *Synthesizer) Text(cat semantic.Category, src *Source) string {
	switch cat {
	case semantic.Email:
		return strings.Map(emailRune, src.Email())
	case semantic.Phone:
		return src.PhoneFormatted()
	case semantic.Name:
		return src.Name()
	case semantic.FirstName:
		return src.FirstName()
	case semantic.LastName:
		return src.LastName()
	case semantic.Username:
		return src.Username()
	case semantic.Address:
		return fmt.Sprintf("%s, %s %s", src.Street(), src.Zip(), src.City())
	case semantic.Street:
		return src.Street()
	case semantic.City:
		return src.City()
	case semantic.PostalCode:
		return src.Zip()
	case semantic.Country:
		return src.Country()
	case semantic.Company:
		return src.Company()
	case semantic.URL:
		return src.URL()
	case semantic.IPAddress:
		return src.IPv4Address()
	case semantic.Date:
		return src.DateRange(dateFloor, dateCeil).Format("2006-01-02")
	case semantic.DateTime:
		return src.DateRange(dateFloor, dateCeil).UTC().Format(time.RFC3339)
	case semantic.DateOfBirth:
		return src.DateRange(birthFloor, birthCeil).Format("2006-01-02")
	case semantic.UUID:
		return src.UUID()
	case semantic.NationalID:
		return src.Numerify("###-##-####")
	case semantic.CreditCard:
		return src.CreditCardNumber(&cardOptions)
	case semantic.Secret:
		return src.Password(true, true, true, false, false, 16)
	case semantic.FreeText:
		return src.Paragraph(1, 2, 10, " ")
	case semantic.Title:
		return strings.TrimSuffix(src.Sentence(3+src.Intn(4)), ".")
	case semantic.Word:
		return src.Word()
	case semantic.Integer, semantic.Age, semantic.Number, semantic.Boolean:
		v, _ := s.Synthesize(cat, nil, src)
		return fmt.Sprint(v)
	default:
		return src.Alphanumeric(8)
	}
}

func emailRune(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return r
	case strings.ContainsRune("@.-_+", r):
		return r
	default:
		return -1
	}
}
