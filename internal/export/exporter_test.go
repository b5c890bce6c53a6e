package export

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/raaihank/jsonnymous/internal/document"
	"github.com/segmentio/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const users = `{"users":[
	{"id":1,"name":"Ann","address":{"city":"Lyon","zip":"69001"},"score":1.5,"tags":["a"]},
	{"id":2,"name":"Bo","address":{"city":"Oslo","zip":null},"score":2,"active":true}
]}`

func parse(t *testing.T, s string) *document.Node {
	t.Helper()
	n, err := document.ParseJSON([]byte(s))
	require.NoError(t, err)
	return n
}

func TestRecords(t *testing.T) {
	assert.Len(t, Records(parse(t, `[1,2,3]`)), 3)
	assert.Len(t, Records(parse(t, users)), 2)
	assert.Len(t, Records(parse(t, `{"a":1}`)), 1)
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	result, err := New(Config{}, zap.NewNop()).Export(context.Background(), &buf, parse(t, users), FormatCSV)
	require.NoError(t, err)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	want := [][]string{
		{"id", "name", "address.city", "address.zip", "score", "tags", "active"},
		{"1", "Ann", "Lyon", "69001", "1.5", `["a"]`, ""},
		{"2", "Bo", "Oslo", "", "2", "", "true"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, result.Records)
	assert.Equal(t, want[0], result.Columns)
}

func TestExportNDJSON(t *testing.T) {
	var buf bytes.Buffer
	_, err := New(Config{}, zap.NewNop()).Export(context.Background(), &buf, parse(t, `[{"a":1},{"a":2}]`), FormatNDJSON)
	require.NoError(t, err)

	var lines []string
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	assert.Equal(t, []string{`{"a":1}`, `{"a":2}`}, lines)
}

func TestExportParquet(t *testing.T) {
	var buf bytes.Buffer
	result, err := New(Config{BatchSize: 1}, zap.NewNop()).Export(context.Background(), &buf, parse(t, users), FormatParquet)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Records)

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, []byte("PAR1")))

	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, int64(2), file.NumRows())

	var columns []string
	for _, path := range file.Schema().Columns() {
		columns = append(columns, strings.Join(path, "."))
	}
	assert.ElementsMatch(t, result.Columns, columns)
}

func TestExportFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.ndjson")

	result, err := New(Config{}, zap.NewNop()).ExportFile(context.Background(), path, parse(t, users))
	require.NoError(t, err)
	assert.Equal(t, FormatNDJSON, result.Format)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}

func TestExportErrors(t *testing.T) {
	e := New(Config{}, zap.NewNop())
	var buf bytes.Buffer

	_, err := e.Export(context.Background(), &buf, nil, FormatJSON)
	assert.ErrorIs(t, err, document.ErrMalformed)

	_, err = e.Export(context.Background(), &buf, parse(t, `{}`), "xlsx")
	assert.Error(t, err)

	_, err = e.Export(context.Background(), &buf, parse(t, `[{}]`), FormatParquet)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Export(ctx, &buf, parse(t, `[{"a":1}]`), FormatCSV)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormats(t *testing.T) {
	assert.Equal(t, FormatCSV, DetectFileFormat("x.CSV"))
	assert.Equal(t, FormatParquet, DetectFileFormat("a/b.parquet"))
	assert.Equal(t, FormatNDJSON, DetectFileFormat("x.jsonl"))
	assert.Equal(t, FormatJSON, DetectFileFormat("x"))

	f, ok := ParseFormat("Parquet")
	assert.True(t, ok)
	assert.Equal(t, FormatParquet, f)
	_, ok = ParseFormat("xml")
	assert.False(t, ok)
}
