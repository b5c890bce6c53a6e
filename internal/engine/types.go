package engine

import (
	"time"

	"github.com/raaihank/jsonnymous/internal/document"
	"github.com/raaihank/jsonnymous/internal/generator"
	"github.com/raaihank/jsonnymous/internal/privacy"
	"github.com/raaihank/jsonnymous/internal/schema"
)

// Format selects the document syntax of an input or output
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

// GenerateOptions tunes a generate call
type GenerateOptions struct {
	Seed       *int64 `json:"seed,omitempty"`
	Count      *int   `json:"count,omitempty" validate:"omitempty,gte=0"`
	SchemaName string `json:"schemaName,omitempty"`
	Validate   bool   `json:"validate,omitempty"`
}

// GenerateRequest asks for a document shaped like Skeleton
type GenerateRequest struct {
	Format   Format          `json:"format" validate:"required,oneof=json xml"`
	Skeleton []byte          `json:"-"`
	Schema   []byte          `json:"-"`
	Options  GenerateOptions `json:"options"`
}

// GenerateMetadata describes a generated document
type GenerateMetadata struct {
	ItemCount        int                `json:"itemCount"`
	GeneratedAt      time.Time          `json:"generatedAt"`
	Seed             int64              `json:"seed"`
	SchemaName       string             `json:"schemaName,omitempty"`
	Issues           []schema.Issue     `json:"issues,omitempty"`
	ValidationErrors []schema.FieldError `json:"validationErrors,omitempty"`
	Stats            generator.Stats    `json:"stats"`
}

// GenerateResponse carries the generated document
type GenerateResponse struct {
	Document *document.Node   `json:"data"`
	Metadata GenerateMetadata `json:"metadata"`
}

// AnonymizeRequest asks for a structure-preserving anonymized copy of Document
type AnonymizeRequest struct {
	Format   Format `json:"format" validate:"required,oneof=json xml"`
	Document []byte `json:"-"`
	Seed     *int64 `json:"seed,omitempty"`
}

// AnonymizeMetadata describes an anonymization run
type AnonymizeMetadata struct {
	AnonymizedFields int            `json:"anonymizedFields"`
	ByCategory       map[string]int `json:"byCategory"`
	ProcessedAt      time.Time      `json:"processedAt"`
	Seed             int64          `json:"seed"`
}

// AnonymizeResponse carries the anonymized document
type AnonymizeResponse struct {
	Document *document.Node    `json:"data"`
	Metadata AnonymizeMetadata `json:"metadata"`
}

// AnalyzeRequest asks which fields of Document are sensitive
type AnalyzeRequest struct {
	Format   Format `json:"format" validate:"required,oneof=json xml"`
	Document []byte `json:"-"`
}

// AnalyzeResponse lists sensitive field patterns and the leaf count
type AnalyzeResponse struct {
	SensitiveFields []string                `json:"sensitiveFields"`
	TotalFields     int                     `json:"totalFields"`
	Fields          []privacy.SensitivePath `json:"fields"`
}

// RandomRequest bounds a random JSON document. Nil fields take defaults.
type RandomRequest struct {
	Depth    *int   `json:"depth,omitempty" validate:"omitempty,gte=0"`
	MaxKeys  *int   `json:"maxKeys,omitempty" validate:"omitempty,gte=1"`
	MaxItems *int   `json:"maxItems,omitempty" validate:"omitempty,gte=1"`
	Seed     *int64 `json:"seed,omitempty"`
}

// RandomXMLRequest bounds a random XML document. Nil fields take defaults.
type RandomXMLRequest struct {
	Depth       *int   `json:"depth,omitempty" validate:"omitempty,gte=0"`
	MaxChildren *int   `json:"maxChildren,omitempty" validate:"omitempty,gte=1"`
	MaxItems    *int   `json:"maxItems,omitempty" validate:"omitempty,gte=1"`
	Seed        *int64 `json:"seed,omitempty"`
	RootTag     string `json:"rootTag,omitempty" validate:"omitempty,max=64"`
}

// RandomMetadata describes a random document
type RandomMetadata struct {
	ItemCount   int       `json:"itemCount"`
	GeneratedAt time.Time `json:"generatedAt"`
	Seed        int64     `json:"seed"`
	Depth       int       `json:"depth"`
	MaxKeys     int       `json:"maxKeys,omitempty"`
	MaxChildren int       `json:"maxChildren,omitempty"`
	MaxItems    int       `json:"maxItems"`
}

// RandomResponse carries a random document
type RandomResponse struct {
	Document *document.Node `json:"data"`
	Metadata RandomMetadata `json:"metadata"`
}

// ValidateXMLResponse describes a checked XML document
type ValidateXMLResponse struct {
	IsValid   bool                `json:"isValid"`
	Formatted string              `json:"formatted,omitempty"`
	Structure *document.Structure `json:"structure,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// XPathRequest evaluates an expression over an XML document
type XPathRequest struct {
	XML    []byte `json:"-"`
	XPath  string `json:"xpath" validate:"required"`
	Format Format `json:"format" validate:"omitempty,oneof=json xml"`
}

// XPathResponse holds the matches, as nodes or as XML fragments
type XPathResponse struct {
	Results []any `json:"results"`
	Count   int   `json:"count"`
}
