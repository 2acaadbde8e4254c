package domain

// Row is a single spreadsheet row keyed by header name.
// Values are nil (missing cell), float64, or string; loaders may also
// hand over other scalar kinds which the normalizer coerces.
type Row map[string]any

// Clone returns a shallow copy of the row
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RawTable represents the first worksheet of an uploaded or fetched
// spreadsheet: the header row defines Columns, every other row is a Row.
type RawTable struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// HasColumn reports whether the header contains name exactly
func (t *RawTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Frame is a flat column/row view of a table, used by the aggregation and
// reshape operations. Unlike RawTable it may carry derived columns.
type Frame struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// AsFrame exposes a raw table as a frame without copying
func (t *RawTable) AsFrame() Frame {
	return Frame{Columns: t.Columns, Rows: t.Rows}
}

// RecordType identifies which of the known record schemas a table matches
type RecordType string

const (
	RecordTypePacket  RecordType = "packet"
	RecordTypeInvoice RecordType = "invoice"
	RecordTypeUnknown RecordType = "unknown"
)

// String implements fmt.Stringer
func (t RecordType) String() string {
	return string(t)
}

// IsKnown reports whether the type is one of the supported schemas
func (t RecordType) IsKnown() bool {
	return t == RecordTypePacket || t == RecordTypeInvoice
}
