// Package tabular reads trial order tables from delimited text or Excel workbooks
// into rows of named string fields.
package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peyecoder/peyecoder/pkg/core"
	"github.com/xuri/excelize/v2"
)

// Row maps a header to the cell value in that column.
type Row map[string]string

// ErrNoHeader is returned when a table has no header row.
var ErrNoHeader = errors.New("table has no header row")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadFile reads a table, choosing the format from the file extension.
// .xlsx and .xlsm are read as workbooks; anything else as delimited text.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(f)
	default:
		return ReadDelimited(f)
	}
}

// LoadTrialOrder reads a trial order table from path.
func LoadTrialOrder(path string) (*core.TrialOrder, error) {
	rows, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	records := make([]map[string]string, len(rows))
	for i, r := range rows {
		records[i] = r
	}
	return core.TrialOrderFromRecords(records), nil
}

// ReadDelimited reads comma or tab separated text. The delimiter is whichever
// of the two occurs more often in the header line.
func ReadDelimited(r io.Reader) ([]Row, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	data, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse table: %w", err)
	}
	return toRows(records)
}

func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte{'\t'}) > bytes.Count(line, []byte{','}) {
		return '\t'
	}
	return ','
}

// ReadXLSX reads the first worksheet of a workbook.
func ReadXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	records, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read worksheet: %w", err)
	}
	return toRows(records)
}

// toRows turns a header record plus data records into Rows. Short records
// leave the trailing columns empty; blank records are skipped.
func toRows(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, ErrNoHeader
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		row := make(Row, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
