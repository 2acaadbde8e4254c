package dataprocessing

import (
	"sheetpulse/pkg/contracts/domain"
)

func packetTable() *domain.RawTable {
	return &domain.RawTable{
		Name:    "packets.xlsx",
		Columns: []string{"Account", "A/C Holder Name", "State", "Jan", "Feb", "Mar"},
		Rows: []domain.Row{
			{"Account": 101.0, "A/C Holder Name": "Asha", "State": "MH", "Jan": 10.0, "Feb": nil, "Mar": "20"},
			{"Account": "102", "A/C Holder Name": "Ravi", "State": "KA", "Jan": 5.0, "Feb": 5.0, "Mar": 5.0},
			{"Account": "103", "A/C Holder Name": "Meena", "State": "MH", "Jan": nil, "Feb": nil, "Mar": nil},
		},
	}
}

func invoiceTable() *domain.RawTable {
	return &domain.RawTable{
		Name:    "invoices.csv",
		Columns: []string{"Sr No", "Invoice No", "Account Holder Name", "Customer Name", "Amount"},
		Rows: []domain.Row{
			{"Sr No": "1", "Invoice No": "240115001", "Account Holder Name": "Asha", "Customer Name": "Acme", "Amount": "₹1,200.50"},
			{"Sr No": "2", "Invoice No": "240203002", "Account Holder Name": "Asha", "Customer Name": "Globex", "Amount": "N/A"},
			{"Sr No": "3", "Invoice No": "X-77", "Account Holder Name": "Ravi", "Customer Name": "Acme", "Amount": 799.5},
		},
	}
}

func floatPtr(v float64) *float64 { return &v }
