package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/raaihank/jsonnymous/internal/document"
	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"
)

// Exporter writes the records of a generated document as a flat dataset
type Exporter struct {
	config Config
	logger *zap.Logger
}

// New creates a new exporter
func New(cfg Config, logger *zap.Logger) *Exporter {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	return &Exporter{config: cfg, logger: logger}
}

// ExportFile writes doc to path, choosing the format from the extension
func (e *Exporter) ExportFile(ctx context.Context, path string, doc *document.Node) (*Result, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}

	result, err := e.Export(ctx, file, doc, DetectFileFormat(path))
	if cerr := file.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close export file: %w", cerr)
	}
	return result, err
}

// Export writes the records of doc to w. The records are the items of a
// root array, else of the first array-valued top-level field, else the
// document itself.
func (e *Exporter) Export(ctx context.Context, w io.Writer, doc *document.Node, format FileFormat) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", document.ErrMalformed)
	}

	start := time.Now()
	records := Records(doc)
	table := flatten(records)
	result := &Result{Format: format, Records: len(records)}

	var err error
	switch format {
	case FormatJSON:
		err = writeJSON(w, records)
	case FormatNDJSON:
		err = writeNDJSON(ctx, w, records)
	case FormatCSV:
		result.Columns = table.columns
		err = writeCSV(ctx, w, table)
	case FormatParquet:
		result.Columns = table.columns
		err = e.writeParquet(ctx, w, table)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%s export failed: %w", format, err)
	}

	result.Duration = time.Since(start)
	e.logger.Info("Export completed",
		zap.String("format", string(format)),
		zap.Int("records", result.Records),
		zap.Int("columns", len(table.columns)),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// Records returns the record nodes of doc
func Records(doc *document.Node) []*document.Node {
	switch doc.Kind {
	case document.KindArray:
		return doc.Items
	case document.KindObject:
		for _, f := range doc.Fields {
			if f.Value.Kind == document.KindArray {
				return f.Value.Items
			}
		}
	}
	return []*document.Node{doc}
}

func writeJSON(w io.Writer, records []*document.Node) error {
	data, err := document.Marshal(document.NewArray(records...), "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func writeNDJSON(ctx context.Context, w io.Writer, records []*document.Node) error {
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := document.Marshal(rec, "")
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(ctx context.Context, w io.Writer, t *table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.columns); err != nil {
		return err
	}

	row := make([]string, len(t.columns))
	for _, rec := range t.rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i, col := range t.columns {
			row[i] = cellText(rec[col])
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func (e *Exporter) writeParquet(ctx context.Context, w io.Writer, t *table) error {
	if len(t.columns) == 0 {
		return fmt.Errorf("records have no fields")
	}
	group := make(parquet.Group, len(t.columns))
	for _, col := range t.columns {
		group[col] = parquet.Optional(parquetNode(t.types[col]))
	}
	schema := parquet.NewSchema("record", group)

	// leaf order follows the schema, not the table
	index := make(map[string]int, len(t.columns))
	for i, path := range schema.Columns() {
		index[path[0]] = i
	}

	writer := parquet.NewWriter(w, schema)
	batch := make([]parquet.Row, 0, e.config.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := writer.WriteRows(batch); err != nil {
			return err
		}
		e.logger.Debug("Wrote parquet batch", zap.Int("rows", len(batch)))
		batch = batch[:0]
		return nil
	}

	for _, rec := range t.rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := make(parquet.Row, len(t.columns))
		for _, col := range t.columns {
			i := index[col]
			if n := rec[col]; n != nil && n.Kind != document.KindNull {
				row[i] = parquetValue(n, t.types[col]).Level(0, 1, i)
			} else {
				row[i] = parquet.Value{}.Level(0, 0, i)
			}
		}
		batch = append(batch, row)
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	return writer.Close()
}

func parquetNode(t columnType) parquet.Node {
	switch t {
	case columnInt:
		return parquet.Int(64)
	case columnFloat:
		return parquet.Leaf(parquet.DoubleType)
	case columnBool:
		return parquet.Leaf(parquet.BooleanType)
	default:
		return parquet.String()
	}
}

func parquetValue(n *document.Node, t columnType) parquet.Value {
	switch t {
	case columnInt:
		if v, ok := n.Value.(int64); ok {
			return parquet.Int64Value(v)
		}
	case columnFloat:
		switch v := n.Value.(type) {
		case int64:
			return parquet.DoubleValue(float64(v))
		case float64:
			return parquet.DoubleValue(v)
		}
	case columnBool:
		if v, ok := n.Value.(bool); ok {
			return parquet.BooleanValue(v)
		}
	}
	return parquet.ByteArrayValue([]byte(cellText(n)))
}
