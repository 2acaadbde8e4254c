package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetpulse/pkg/contracts/domain"
)

func TestNormalizePacketsSingleRow(t *testing.T) {
	table := &domain.RawTable{
		Columns: []string{"Account", "A/C Holder Name", "State", "Jan", "Feb"},
		Rows: []domain.Row{
			{"Account": 101.0, "A/C Holder Name": "Asha", "State": "MH", "Jan": 10.0, "Feb": nil},
		},
	}

	require.Equal(t, domain.RecordTypePacket, ClassifyTable(table))

	got, err := Normalize(table, domain.RecordTypePacket)
	require.NoError(t, err)
	require.Len(t, got.Packets, 1)

	p := got.Packets[0]
	assert.Equal(t, "101", p.Account)
	assert.Equal(t, "Asha", p.HolderName)
	assert.Equal(t, 10.0, p.Total)
	require.NotNil(t, p.Average)
	assert.Equal(t, 10.0, *p.Average)
	assert.Equal(t, 1, p.ActiveMonths)
	assert.Equal(t, []string{"Jan", "Feb"}, got.MonthColumns)
}

func TestNormalizePacketsDerivedFields(t *testing.T) {
	got, err := NormalizePackets(packetTable())
	require.NoError(t, err)
	require.Len(t, got.Packets, 3)

	for _, p := range got.Packets {
		var sum float64
		n := 0
		for _, mv := range p.MonthlyValues {
			if mv.Value != nil {
				sum += *mv.Value
				n++
			}
		}
		assert.Equal(t, sum, p.Total, p.Account)
		assert.Equal(t, n, p.ActiveMonths, p.Account)
		if n == 0 {
			assert.Nil(t, p.Average, p.Account)
		} else {
			require.NotNil(t, p.Average, p.Account)
			assert.InDelta(t, sum/float64(n), *p.Average, 1e-9, p.Account)
		}
	}

	assert.Equal(t, 30.0, got.Packets[0].Total)
	assert.Equal(t, 0.0, got.Packets[2].Total)
}

func TestNormalizePacketsDoesNotMutateInput(t *testing.T) {
	table := packetTable()
	before := table.Rows[0].Clone()

	got, err := NormalizePackets(table)
	require.NoError(t, err)

	got.Packets[0].Fields["Jan"] = 999.0
	assert.Equal(t, before, table.Rows[0])
	assert.Equal(t, []string{"Account", "A/C Holder Name", "State", "Jan", "Feb", "Mar"}, table.Columns)
}

func TestNormalizePacketsIdempotent(t *testing.T) {
	first, err := NormalizePackets(packetTable())
	require.NoError(t, err)

	frame := first.Frame()
	assert.Equal(t, []string{"Account", "A/C Holder Name", "State", "Jan", "Feb", "Mar", "Total", "Average"}, frame.Columns)

	second, err := NormalizePackets(&domain.RawTable{Name: first.Name, Columns: frame.Columns, Rows: frame.Rows})
	require.NoError(t, err)

	assert.Equal(t, first.MonthColumns, second.MonthColumns)
	require.Len(t, second.Packets, len(first.Packets))
	for i := range first.Packets {
		assert.Equal(t, first.Packets[i].Total, second.Packets[i].Total)
		assert.Equal(t, first.Packets[i].Average, second.Packets[i].Average)
		assert.Equal(t, first.Packets[i].ActiveMonths, second.Packets[i].ActiveMonths)
	}
}

func TestNormalizePacketsErrors(t *testing.T) {
	t.Run("missing columns", func(t *testing.T) {
		table := &domain.RawTable{Columns: []string{"Account", "Jan"}}
		_, err := NormalizePackets(table)

		var missing *MissingColumnsError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, []string{"A/C Holder Name", "State"}, missing.Missing)
		assert.Equal(t, []string{"Account", "Jan"}, missing.Found)
		assert.Equal(t, CodeMissingColumns, ErrorCode(err))
	})

	t.Run("no numeric month", func(t *testing.T) {
		table := &domain.RawTable{
			Name:    "text.xlsx",
			Columns: []string{"Account", "Holder Name", "State", "Remarks", "Total"},
			Rows: []domain.Row{
				{"Account": "1", "Holder Name": "A", "State": "MH", "Remarks": "late", "Total": 4.0},
			},
		}
		_, err := NormalizePackets(table)

		var noNumeric *NoNumericDataError
		require.ErrorAs(t, err, &noNumeric)
		assert.Equal(t, "text.xlsx", noNumeric.Table)
		assert.Equal(t, CodeNoNumericData, ErrorCode(err))
	})

	t.Run("all blank column is not a month", func(t *testing.T) {
		table := &domain.RawTable{
			Columns: []string{"Account", "Name", "State", "Jan", "Empty"},
			Rows: []domain.Row{
				{"Account": "1", "Name": "A", "State": "MH", "Jan": 3.0, "Empty": nil},
			},
		}
		got, err := NormalizePackets(table)
		require.NoError(t, err)
		assert.Equal(t, []string{"Jan"}, got.MonthColumns)
	})
}

func TestNormalizeInvoices(t *testing.T) {
	got, err := NormalizeInvoices(invoiceTable())
	require.NoError(t, err)
	require.Len(t, got.Invoices, 3)

	first := got.Invoices[0]
	require.NotNil(t, first.Amount)
	assert.InDelta(t, 1200.50, *first.Amount, 1e-9)
	require.NotNil(t, first.Month)
	assert.Equal(t, "2024-01", *first.Month)

	second := got.Invoices[1]
	assert.Nil(t, second.Amount)
	assert.Equal(t, "N/A", second.RawAmount)

	third := got.Invoices[2]
	require.NotNil(t, third.Amount)
	assert.Equal(t, 799.5, *third.Amount)
	assert.Nil(t, third.Month)

	require.Len(t, got.Warnings, 2)
	assert.Equal(t, domain.ValueParseWarning{Row: 3, Column: "Amount", Value: "N/A", Reason: `"N/A" has no numeric content`}, got.Warnings[0])
	assert.Equal(t, "Invoice No", got.Warnings[1].Column)
	assert.Equal(t, 4, got.Warnings[1].Row)
}

func TestNormalizeInvoicesMissingColumns(t *testing.T) {
	table := &domain.RawTable{Columns: []string{"Sr No", "Invoice No", "Amount"}}
	_, err := NormalizeInvoices(table)

	var missing *MissingColumnsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, domain.RecordTypeInvoice, missing.Type)
	assert.Equal(t, []string{"Account Holder Name", "Customer Name"}, missing.Missing)
}

func TestProcessUnknownSchema(t *testing.T) {
	table := &domain.RawTable{Columns: []string{"Foo", "Bar"}}
	_, err := Process(table)

	var mismatch *SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []string{"Foo", "Bar"}, mismatch.Found)
	assert.Equal(t, CodeSchemaMismatch, ErrorCode(err))
}
