package synth

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/raaihank/jsonnymous/internal/semantic"
)

var (
	embeddedEmail = regexp.MustCompile(`[A-Za-z0-9._%+'\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	embeddedPhone = regexp.MustCompile(`\+?\d[\d .\-]{8,}\d`)
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"02/01/2006",
}

// SynthesizeLike replaces example with a fresh value of the same category
// that keeps its JSON type and visible layout: digit grouping for phone
// and identifier numbers, the date layout, the length class of free text.
func (s *Synthesizer) SynthesizeLike(cat semantic.Category, example any, src *Source) any {
	switch ex := example.(type) {
	case bool:
		return src.Bool()
	case int64:
		return sameDigits(ex, src)
	case float64:
		return math.Round(src.Float64Range(math.Abs(ex)*0.5, math.Abs(ex)*1.5+1)*100) / 100
	case string:
		return s.stringLike(cat, ex, src)
	default:
		v, _ := s.Synthesize(cat, nil, src)
		return v
	}
}

func (s *Synthesizer) stringLike(cat semantic.Category, ex string, src *Source) string {
	switch cat {
	case semantic.Phone, semantic.NationalID, semantic.PostalCode:
		if hasDigit(ex) {
			return reshapeDigits(ex, src)
		}
	case semantic.CreditCard:
		if hasDigit(ex) {
			return fixLuhn(reshapeDigits(ex, src))
		}
	case semantic.Date, semantic.DateTime, semantic.DateOfBirth:
		if layout, ok := detectLayout(ex); ok {
			floor, ceil := dateFloor, dateCeil
			if cat == semantic.DateOfBirth {
				floor, ceil = birthFloor, birthCeil
			}
			return src.DateRange(floor, ceil).Format(layout)
		}
	case semantic.FreeText, semantic.Title, semantic.Word:
		return s.textLike(ex, src)
	}
	return s.Text(cat, src)
}

// textLike keeps the length class of the original and, when the original
// carried embedded contact details, carries fake ones in the same shape
func (s *Synthesizer) textLike(ex string, src *Source) string {
	var out string
	switch n := utf8.RuneCountInString(ex); {
	case n <= 10:
		out = src.Word()
	case n <= 100:
		out = src.Sentence(8)
	default:
		out = src.Paragraph(1, 3, 12, " ")
	}

	for range embeddedEmail.FindAllString(ex, -1) {
		out += " " + src.Email()
	}
	for _, phone := range embeddedPhone.FindAllString(ex, -1) {
		out += " " + reshapeDigits(phone, src)
	}
	return out
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' }) >= 0
}

// reshapeDigits redraws every digit except the first, keeping separators
func reshapeDigits(s string, src *Source) string {
	b := []byte(s)
	first := true
	for i, c := range b {
		if c < '0' || c > '9' {
			continue
		}
		if first {
			first = false
			continue
		}
		b[i] = byte('0' + src.Intn(10))
	}
	return string(b)
}

// fixLuhn rewrites the last digit so the digit string passes the Luhn check
func fixLuhn(s string) string {
	b := []byte(s)
	last := -1
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] >= '0' && b[i] <= '9' {
			last = i
			break
		}
	}
	if last < 0 {
		return s
	}

	sum, double := 0, true
	for i := last - 1; i >= 0; i-- {
		if b[i] < '0' || b[i] > '9' {
			continue
		}
		d := int(b[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	b[last] = byte('0' + (10-sum%10)%10)
	return string(b)
}

func detectLayout(s string) (string, bool) {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return layout, true
		}
	}
	return "", false
}

func sameDigits(v int64, src *Source) int64 {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := len(strconv.FormatInt(v, 10))
	lo := int64(math.Pow10(digits - 1))
	if digits == 1 {
		lo = 0
	}
	hi := int64(math.Pow10(digits)) - 1
	if digits >= 19 {
		lo, hi = 1e17, 1e18-1
	}
	out := lo + src.Rand.Int63n(hi-lo+1)
	if neg {
		out = -out
	}
	return out
}
