package synth

import (
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// Source is the per-call pseudo-random source. Every draw made while
// serving one operation goes through the same Source, in traversal order,
// so a fixed seed reproduces the output exactly.
type Source struct {
	*gofakeit.Faker
	seed int64
}

// NewSource creates a source from an optional seed. A nil seed draws one
// from the clock; Seed reports it either way.
func NewSource(seed *int64) *Source {
	s := time.Now().UnixNano()
	if seed != nil {
		s = *seed
	}
	src := rand.NewSource(s).(rand.Source64)
	return &Source{Faker: gofakeit.NewCustom(src), seed: s}
}

// Seed returns the seed the source was built from
func (s *Source) Seed() int64 {
	return s.seed
}

// Intn returns a uniform int in [0, n)
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return s.Rand.Intn(n)
}

// Chance returns true with probability p
func (s *Source) Chance(p float64) bool {
	return s.Rand.Float64() < p
}

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Alphanumeric returns n random letters and digits
func (s *Source) Alphanumeric(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[s.Intn(len(alphanumeric))]
	}
	return string(b)
}
