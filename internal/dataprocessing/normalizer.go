package dataprocessing

import (
	"errors"
	"fmt"

	"sheetpulse/pkg/contracts/domain"
)

// Normalize converts a raw table into a normalized table of the given type.
// The input table is never modified; every row in the result is a copy.
func Normalize(table *domain.RawTable, recordType domain.RecordType) (*domain.NormalizedTable, error) {
	if table == nil {
		return nil, &SchemaMismatchError{}
	}
	switch recordType {
	case domain.RecordTypePacket:
		return NormalizePackets(table)
	case domain.RecordTypeInvoice:
		return NormalizeInvoices(table)
	default:
		return nil, &SchemaMismatchError{Found: cloneColumns(table.Columns)}
	}
}

// NormalizePackets builds packet records with per-row Total, Average and
// ActiveMonths. Month columns are every non-identity column whose present
// values are all numeric; pre-existing Total and Average columns are never
// treated as months.
func NormalizePackets(table *domain.RawTable) (*domain.NormalizedTable, error) {
	set := newColumnSet(table.Columns)
	if missing := set.packetMissing(); len(missing) > 0 {
		return nil, &MissingColumnsError{
			Type:    domain.RecordTypePacket,
			Missing: missing,
			Found:   cloneColumns(table.Columns),
		}
	}
	holder, _ := set.holderColumn()

	months := MonthColumns(table, holder)
	if len(months) == 0 {
		return nil, &NoNumericDataError{Table: table.Name}
	}

	out := &domain.NormalizedTable{
		Name:         table.Name,
		Type:         domain.RecordTypePacket,
		Columns:      cloneColumns(table.Columns),
		HolderColumn: holder,
		MonthColumns: months,
		Packets:      make([]domain.PacketRecord, 0, len(table.Rows)),
	}

	for _, row := range table.Rows {
		rec := domain.PacketRecord{
			Account:       textValue(row[ColumnAccount]),
			HolderName:    textValue(row[holder]),
			State:         textValue(row[ColumnState]),
			MonthlyValues: make([]domain.MonthValue, 0, len(months)),
			Fields:        row.Clone(),
		}
		for _, m := range months {
			mv := domain.MonthValue{Month: m}
			if v, ok := numericValue(row[m]); ok {
				mv.Value = &v
			}
			rec.MonthlyValues = append(rec.MonthlyValues, mv)
		}
		rec.Recompute()
		out.Packets = append(out.Packets, rec)
	}
	return out, nil
}

// MonthColumns selects the month columns of a packet table in header order
func MonthColumns(table *domain.RawTable, holderColumn string) []string {
	var months []string
	for _, col := range table.Columns {
		if isIdentityColumn(col, holderColumn) {
			continue
		}
		present := 0
		numeric := true
		for _, row := range table.Rows {
			v := row[col]
			if isMissing(v) {
				continue
			}
			present++
			if _, ok := numericValue(v); !ok {
				numeric = false
				break
			}
		}
		if numeric && present > 0 {
			months = append(months, col)
		}
	}
	return months
}

func isIdentityColumn(col, holderColumn string) bool {
	switch col {
	case ColumnAccount, ColumnState, holderColumn, domain.ColumnTotal, domain.ColumnAverage:
		return true
	}
	return false
}

// NormalizeInvoices builds invoice records. Unparsable amounts and invoice
// months become nil and are reported as warnings on the table.
func NormalizeInvoices(table *domain.RawTable) (*domain.NormalizedTable, error) {
	set := newColumnSet(table.Columns)
	if missing := set.missing(InvoiceRequiredColumns); len(missing) > 0 {
		return nil, &MissingColumnsError{
			Type:    domain.RecordTypeInvoice,
			Missing: missing,
			Found:   cloneColumns(table.Columns),
		}
	}

	out := &domain.NormalizedTable{
		Name:     table.Name,
		Type:     domain.RecordTypeInvoice,
		Columns:  cloneColumns(table.Columns),
		Invoices: make([]domain.InvoiceRecord, 0, len(table.Rows)),
	}

	for i, row := range table.Rows {
		// spreadsheet row number, header is row 1
		rowNum := i + 2

		rec := domain.InvoiceRecord{
			SerialNo:          textValue(row[ColumnSerialNo]),
			InvoiceNo:         textValue(row[ColumnInvoiceNo]),
			AccountHolderName: textValue(row[ColumnAccountHolderName]),
			CustomerName:      textValue(row[ColumnCustomerName]),
			RawAmount:         textValue(row[ColumnAmount]),
			Fields:            row.Clone(),
		}

		if !isMissing(row[ColumnAmount]) {
			amount, err := parseAmount(row[ColumnAmount])
			if err != nil {
				out.Warnings = append(out.Warnings, parseWarning(rowNum, ColumnAmount, rec.RawAmount, err))
			} else {
				f := amount.InexactFloat64()
				rec.Amount = &f
			}
		}

		if rec.InvoiceNo != "" {
			month, err := parseInvoiceMonth(rec.InvoiceNo)
			if err != nil {
				out.Warnings = append(out.Warnings, parseWarning(rowNum, ColumnInvoiceNo, rec.InvoiceNo, err))
			} else {
				rec.Month = &month
			}
		}

		out.Invoices = append(out.Invoices, rec)
	}
	return out, nil
}

func parseWarning(row int, column, value string, err error) domain.ValueParseWarning {
	reason := err.Error()
	if errors.Is(err, errEmptyAmount) {
		reason = fmt.Sprintf("%q has no numeric content", value)
	}
	return domain.ValueParseWarning{Row: row, Column: column, Value: value, Reason: reason}
}

// Process classifies and normalizes a raw table in one step
func Process(table *domain.RawTable) (*domain.NormalizedTable, error) {
	recordType := ClassifyTable(table)
	if !recordType.IsKnown() {
		var found []string
		if table != nil {
			found = cloneColumns(table.Columns)
		}
		return nil, &SchemaMismatchError{Found: found}
	}
	return Normalize(table, recordType)
}

func cloneColumns(columns []string) []string {
	out := make([]string, len(columns))
	copy(out, columns)
	return out
}
