package testutil

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

// PacketSheet is a small packet workbook: two accounts in MH, one in KA
var PacketSheet = [][]any{
	{"Account", "A/C Holder Name", "State", "Jan", "Feb", "Mar"},
	{101, "Asha", "MH", 10, nil, 20},
	{102, "Ravi", "KA", 5, 5, 5},
	{103, "Meena", "MH", 1, 2, nil},
}

// InvoiceSheet is a small invoice workbook with one unparsable amount
var InvoiceSheet = [][]any{
	{"Sr No", "Invoice No", "Account Holder Name", "Customer Name", "Amount"},
	{1, "240115001", "Asha", "Acme", "₹1,200.50"},
	{2, "240203002", "Asha", "Globex", "N/A"},
	{3, "240210003", "Ravi", "Acme", "300"},
}

// UnknownSheet matches neither record schema
var UnknownSheet = [][]any{
	{"Foo", "Bar"},
	{"x", 1},
}

// Workbook renders rows into the first sheet of an in-memory xlsx file
func Workbook(t *testing.T, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			t.Fatalf("set row %d: %v", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}
