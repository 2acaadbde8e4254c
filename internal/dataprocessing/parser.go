package dataprocessing

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"sheetpulse/pkg/contracts/domain"
)

// Format is a supported workbook encoding
type Format string

const (
	FormatXLSX    Format = "xlsx"
	FormatCSV     Format = "csv"
	FormatUnknown Format = ""
)

// zip local file header, the container of every xlsx/xlsm workbook
var xlsxMagic = []byte("PK\x03\x04")

// DetectFormat picks a workbook format from the file name, falling back to
// sniffing the first bytes of the content.
func DetectFormat(name string, head []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".csv":
		return FormatCSV
	}
	if bytes.HasPrefix(head, xlsxMagic) {
		return FormatXLSX
	}
	if len(head) > 0 && !bytes.ContainsRune(head, 0) {
		return FormatCSV
	}
	return FormatUnknown
}

// ParseFile loads the first worksheet of a workbook on disk
func ParseFile(path string) (*domain.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return ParseWorkbook(filepath.Base(path), f)
}

// ParseWorkbook reads the first worksheet of an xlsx or csv stream into a
// raw table. The first row is the header.
func ParseWorkbook(name string, r io.Reader) (*domain.RawTable, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(512)

	switch DetectFormat(name, head) {
	case FormatXLSX:
		return parseXLSX(name, br)
	case FormatCSV:
		return parseCSV(name, br)
	default:
		return nil, fmt.Errorf("unsupported workbook format: %s", name)
	}
}

func parseXLSX(name string, r io.Reader) (*domain.RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	// Headers keep their display text so date-typed month headers read
	// "Jan-24" rather than a serial number.
	formatted, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	for i, row := range rows {
		if blankStrings(row) {
			continue
		}
		if i < len(formatted) {
			rows[i] = formatted[i]
		}
		break
	}
	return RowsToTable(name, rows)
}

func blankStrings(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseCSV(name string, r io.Reader) (*domain.RawTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return RowsToTable(name, rows)
}

// RowsToTable builds a raw table from string rows. Blank cells become nil,
// short rows are padded and fully blank rows are dropped.
func RowsToTable(name string, rows [][]string) (*domain.RawTable, error) {
	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = make([]any, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}
	return ValuesToTable(name, values)
}

// ValuesToTable builds a raw table from loosely typed rows, as returned by
// the Sheets API
func ValuesToTable(name string, values [][]any) (*domain.RawTable, error) {
	headerIdx := -1
	for i, row := range values {
		if !blankRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, ErrEmptyWorkbook
	}

	columns := headerColumns(values[headerIdx])
	table := &domain.RawTable{
		Name:    name,
		Columns: columns,
		Rows:    make([]domain.Row, 0, len(values)-headerIdx-1),
	}

	for _, raw := range values[headerIdx+1:] {
		if blankRow(raw) {
			continue
		}
		row := make(domain.Row, len(columns))
		for j, col := range columns {
			var v any
			if j < len(raw) {
				v = cellValue(raw[j])
			}
			row[col] = v
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// headerColumns trims header cells, names blank ones by position and
// suffixes repeats so that every column name is unique.
func headerColumns(row []any) []string {
	columns := make([]string, 0, len(row))
	seen := make(map[string]int, len(row))
	for i, cell := range row {
		base := textValue(cell)
		if base == "" {
			base = fmt.Sprintf("Column %d", i+1)
		}
		name := base
		for n := seen[base]; ; n++ {
			if n > 0 {
				name = fmt.Sprintf("%s.%d", base, n)
			}
			if _, taken := seen[name]; !taken {
				seen[base] = n + 1
				break
			}
		}
		if name != base {
			seen[name] = 1
		}
		columns = append(columns, name)
	}
	return columns
}

func cellValue(v any) any {
	if isMissing(v) {
		return nil
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return v
}

func blankRow(row []any) bool {
	for _, v := range row {
		if !isMissing(v) {
			return false
		}
	}
	return true
}
