package privacy

import (
	"github.com/raaihank/jsonnymous/internal/document"
	"github.com/raaihank/jsonnymous/internal/semantic"
)

// SensitivePath is a classified leaf
type SensitivePath struct {
	Path     string            `json:"path"`
	Pattern  string            `json:"pattern"`
	Category semantic.Category `json:"category"`
	Source   semantic.Source   `json:"source"`

	at document.Path
}

// Location returns the concrete path of the leaf
func (s SensitivePath) Location() document.Path {
	return s.at
}

// Report summarises an anonymization run
type Report struct {
	Seed             int64          `json:"seed"`
	AnonymizedFields int            `json:"anonymizedFields"`
	ByCategory       map[string]int `json:"byCategory"`
}

// Options controls a single anonymization run
type Options struct {
	Seed *int64
}
