package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"sheetpulse/pkg/contracts/domain"
)

// utf8BOM helps Excel recognize UTF-8 CSV files
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	BOMPrefix bool
}

// WriteCSV writes a normalized table as CSV. Source columns keep their
// order; the derived Total and Average columns of packet tables come last.
func WriteCSV(w io.Writer, table *domain.NormalizedTable, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	frame := table.Frame()
	writer := csv.NewWriter(w)
	if err := writer.Write(frame.Columns); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	record := make([]string, len(frame.Columns))
	for i, row := range frame.Rows {
		for j, col := range frame.Columns {
			record[j] = formatCell(row[col])
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
