package export

import (
	"path/filepath"
	"strings"
	"time"
)

// FileFormat represents supported export formats
type FileFormat string

const (
	FormatJSON    FileFormat = "json"
	FormatNDJSON  FileFormat = "ndjson"
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
)

// ParseFormat validates a format name
func ParseFormat(name string) (FileFormat, bool) {
	switch f := FileFormat(strings.ToLower(name)); f {
	case FormatJSON, FormatNDJSON, FormatCSV, FormatParquet:
		return f, true
	}
	return "", false
}

// DetectFileFormat detects the export format from a file extension
func DetectFileFormat(filename string) FileFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV
	case ".parquet":
		return FormatParquet
	case ".ndjson", ".jsonl":
		return FormatNDJSON
	default:
		return FormatJSON
	}
}

// Config contains export configuration
type Config struct {
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"` // rows per parquet write
}

// Result describes a finished export
type Result struct {
	Format   FileFormat    `json:"format"`
	Records  int           `json:"records"`
	Columns  []string      `json:"columns,omitempty"`
	Duration time.Duration `json:"duration"`
}

// columnType is the narrowest type that holds every value of a column
type columnType int

const (
	columnNull columnType = iota
	columnInt
	columnFloat
	columnBool
	columnString
)
