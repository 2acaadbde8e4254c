package domain

// Column names of the derived fields appended to normalized tables
const (
	ColumnTotal   = "Total"
	ColumnAverage = "Average"
	ColumnMonth   = "Month"
	ColumnAmount  = "Amount"
)

// MonthValue is a single month cell of a packet row. Value is nil when the
// cell was missing; missing months are excluded from means, not zeroed.
type MonthValue struct {
	Month string   `json:"month"`
	Value *float64 `json:"value"`
}

// PacketRecord is a normalized row of a packet/shipment table.
// Total, Average and ActiveMonths are always derived from MonthlyValues.
type PacketRecord struct {
	Account       string       `json:"account"`
	HolderName    string       `json:"holder_name"`
	State         string       `json:"state"`
	MonthlyValues []MonthValue `json:"monthly_values"`
	Total         float64      `json:"total"`
	Average       *float64     `json:"average"`
	ActiveMonths  int          `json:"active_months"`
	Fields        Row          `json:"-"`
}

// Recompute refreshes the derived fields from MonthlyValues
func (p *PacketRecord) Recompute() {
	var total float64
	active := 0
	for _, mv := range p.MonthlyValues {
		if mv.Value == nil {
			continue
		}
		total += *mv.Value
		active++
	}
	p.Total = total
	p.ActiveMonths = active
	p.Average = nil
	if active > 0 {
		avg := total / float64(active)
		p.Average = &avg
	}
}

// InvoiceRecord is a normalized row of an invoice table.
// Amount and Month are nil when their source cell could not be parsed.
type InvoiceRecord struct {
	SerialNo          string   `json:"serial_no"`
	InvoiceNo         string   `json:"invoice_no"`
	AccountHolderName string   `json:"account_holder_name"`
	CustomerName      string   `json:"customer_name"`
	Amount            *float64 `json:"amount"`
	RawAmount         string   `json:"raw_amount,omitempty"`
	Month             *string  `json:"month"`
	Fields            Row      `json:"-"`
}

// ValueParseWarning records a per-cell coercion failure. The cell becomes
// null and processing of the table continues.
type ValueParseWarning struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// NormalizedTable is the output of the normalizer for one spreadsheet
type NormalizedTable struct {
	Name         string              `json:"name"`
	Type         RecordType          `json:"type"`
	Columns      []string            `json:"columns"`
	HolderColumn string              `json:"holder_column,omitempty"`
	MonthColumns []string            `json:"month_columns,omitempty"`
	Packets      []PacketRecord      `json:"packets,omitempty"`
	Invoices     []InvoiceRecord     `json:"invoices,omitempty"`
	Warnings     []ValueParseWarning `json:"warnings,omitempty"`
}

// RowCount returns the number of normalized records
func (t *NormalizedTable) RowCount() int {
	if t.Type == RecordTypeInvoice {
		return len(t.Invoices)
	}
	return len(t.Packets)
}

// DataColumns returns the source columns with the derived Total and Average
// columns removed. Export relocates the derived ones to the end.
func (t *NormalizedTable) DataColumns() []string {
	out := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c == ColumnTotal || c == ColumnAverage {
			continue
		}
		if t.Type == RecordTypeInvoice && c == ColumnMonth {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Frame flattens the table into rows that carry the derived columns.
// Packet frames end with Total and Average; invoice frames carry the parsed
// Amount in place and end with Month. Feeding a packet frame back through
// the normalizer yields the same records.
func (t *NormalizedTable) Frame() Frame {
	cols := t.DataColumns()
	switch t.Type {
	case RecordTypePacket:
		cols = append(cols, ColumnTotal, ColumnAverage)
		rows := make([]Row, 0, len(t.Packets))
		for _, p := range t.Packets {
			row := p.Fields.Clone()
			for _, mv := range p.MonthlyValues {
				if mv.Value == nil {
					row[mv.Month] = nil
				} else {
					row[mv.Month] = *mv.Value
				}
			}
			row[ColumnTotal] = p.Total
			if p.Average != nil {
				row[ColumnAverage] = *p.Average
			} else {
				row[ColumnAverage] = nil
			}
			rows = append(rows, row)
		}
		return Frame{Columns: cols, Rows: rows}
	case RecordTypeInvoice:
		cols = append(cols, ColumnMonth)
		rows := make([]Row, 0, len(t.Invoices))
		for _, inv := range t.Invoices {
			row := inv.Fields.Clone()
			if inv.Amount != nil {
				row[ColumnAmount] = *inv.Amount
			} else {
				row[ColumnAmount] = nil
			}
			if inv.Month != nil {
				row[ColumnMonth] = *inv.Month
			} else {
				row[ColumnMonth] = nil
			}
			rows = append(rows, row)
		}
		return Frame{Columns: cols, Rows: rows}
	}
	return Frame{Columns: cols}
}
