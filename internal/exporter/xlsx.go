package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"sheetpulse/pkg/contracts/domain"
)

const defaultSheet = "Sheet1"

// sheetName names the worksheet after the record type
func sheetName(t domain.RecordType) string {
	switch t {
	case domain.RecordTypePacket:
		return "Packets"
	case domain.RecordTypeInvoice:
		return "Invoices"
	}
	return defaultSheet
}

// WriteXLSX writes a normalized table as a single-sheet workbook with the
// same column order as WriteCSV. Numbers stay numeric cells and missing
// values stay empty.
func WriteXLSX(w io.Writer, table *domain.NormalizedTable) error {
	f := excelize.NewFile()
	defer f.Close()

	name := sheetName(table.Type)
	if name != defaultSheet {
		if err := f.SetSheetName(defaultSheet, name); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	sw, err := f.NewStreamWriter(name)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w", err)
	}

	frame := table.Frame()
	header := make([]interface{}, len(frame.Columns))
	for i, col := range frame.Columns {
		header[i] = excelize.Cell{StyleID: bold, Value: col}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, row := range frame.Rows {
		values := make([]interface{}, len(frame.Columns))
		for j, col := range frame.Columns {
			values[j] = row[col]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
