package dataprocessing

import (
	"sheetpulse/pkg/contracts/domain"
)

// Packet table columns
const (
	ColumnAccount = "Account"
	ColumnState   = "State"
)

// Invoice table columns
const (
	ColumnSerialNo          = "Sr No"
	ColumnInvoiceNo         = "Invoice No"
	ColumnAccountHolderName = "Account Holder Name"
	ColumnCustomerName      = "Customer Name"
	ColumnAmount            = domain.ColumnAmount
)

// HolderNameAliases lists the accepted headers for the packet holder-name
// column in priority order. The first alias present in a table wins, and
// every call site resolves the holder column through ResolveHolderColumn.
var HolderNameAliases = []string{
	"A/C Holder Name",
	"AC Holder Name",
	"Account Holder Name",
	"Holder Name",
	"Name",
	"Account Holder",
}

// InvoiceRequiredColumns are the hard-required invoice headers
var InvoiceRequiredColumns = []string{
	ColumnSerialNo,
	ColumnInvoiceNo,
	ColumnAccountHolderName,
	ColumnCustomerName,
	ColumnAmount,
}

// columnSet indexes a header for membership tests
type columnSet map[string]struct{}

func newColumnSet(columns []string) columnSet {
	set := make(columnSet, len(columns))
	for _, c := range columns {
		set[c] = struct{}{}
	}
	return set
}

func (s columnSet) has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s columnSet) missing(required []string) []string {
	var out []string
	for _, name := range required {
		if !s.has(name) {
			out = append(out, name)
		}
	}
	return out
}

// ResolveHolderColumn returns the first holder-name alias present in columns
func ResolveHolderColumn(columns []string) (string, bool) {
	return newColumnSet(columns).holderColumn()
}

func (s columnSet) holderColumn() (string, bool) {
	for _, alias := range HolderNameAliases {
		if s.has(alias) {
			return alias, true
		}
	}
	return "", false
}

// packetMissing lists the packet requirements absent from the set. A
// missing holder column is reported under its preferred alias.
func (s columnSet) packetMissing() []string {
	var out []string
	if !s.has(ColumnAccount) {
		out = append(out, ColumnAccount)
	}
	if _, ok := s.holderColumn(); !ok {
		out = append(out, HolderNameAliases[0])
	}
	if !s.has(ColumnState) {
		out = append(out, ColumnState)
	}
	return out
}

// Classify maps a header to a record type using column-name membership only.
// Packet is checked first, so a header that satisfies both schemas is a
// packet table. Column order never affects the result.
func Classify(columns []string) domain.RecordType {
	set := newColumnSet(columns)
	if len(set.packetMissing()) == 0 {
		return domain.RecordTypePacket
	}
	if len(set.missing(InvoiceRequiredColumns)) == 0 {
		return domain.RecordTypeInvoice
	}
	return domain.RecordTypeUnknown
}

// ClassifyTable classifies a raw table by its header
func ClassifyTable(table *domain.RawTable) domain.RecordType {
	if table == nil {
		return domain.RecordTypeUnknown
	}
	return Classify(table.Columns)
}
