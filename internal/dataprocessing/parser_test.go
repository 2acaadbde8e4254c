package dataprocessing

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"sheetpulse/pkg/contracts/domain"
)

// TestParseFileXLSX builds a minimal workbook and checks that the first
// sheet is loaded with its header.
func TestParseFileXLSX(t *testing.T) {
	tmpDir := t.TempDir()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Account", " A/C Holder Name ", "State", "Jan", "Feb"},
		{101, "Asha", "MH", 10, nil},
		{nil, nil, nil, nil, nil},
		{102, "Ravi", "KA", 4, 6},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(tmpDir, "packets.xlsx")
	require.NoError(t, f.SaveAs(path))

	table, err := ParseFile(path)
	require.NoError(t, err)

	assert.Equal(t, "packets.xlsx", table.Name)
	assert.Equal(t, []string{"Account", "A/C Holder Name", "State", "Jan", "Feb"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "101", table.Rows[0]["Account"])
	assert.Nil(t, table.Rows[0]["Feb"])

	normalized, err := Process(table)
	require.NoError(t, err)
	assert.Equal(t, domain.RecordTypePacket, normalized.Type)
	assert.Equal(t, 10.0, normalized.Packets[0].Total)
	assert.Equal(t, 10.0, normalized.Packets[1].Total)
}

func TestParseWorkbookCSV(t *testing.T) {
	data := "\ufeffSr No,Invoice No,Account Holder Name,Customer Name,Amount\n" +
		"1,240115001,Asha,Acme,\"₹1,200.50\"\n" +
		",,,,\n" +
		"2,240203002,Ravi,Globex,N/A\n"

	table, err := ParseWorkbook("invoices.csv", strings.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, "Sr No", table.Columns[0])
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "₹1,200.50", table.Rows[0]["Amount"])
	assert.Equal(t, domain.RecordTypeInvoice, ClassifyTable(table))
}

func TestParseWorkbookSniffsXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue(f.GetSheetName(0), "A1", "Account"))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	table, err := ParseWorkbook("download", &buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Account"}, table.Columns)
}

func TestParseWorkbookErrors(t *testing.T) {
	_, err := ParseWorkbook("empty.csv", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyWorkbook)

	_, err = ParseWorkbook("blob.bin", bytes.NewReader([]byte{0, 1, 2}))
	assert.Error(t, err)
}

func TestHeaderColumns(t *testing.T) {
	tests := []struct {
		name   string
		header []any
		want   []string
	}{
		{"blank and repeated", []any{"Jan", "", "Jan", " State "}, []string{"Jan", "Column 2", "Jan.1", "State"}},
		{"suffix already present", []any{"Jan", "Jan", "Jan.1"}, []string{"Jan", "Jan.1", "Jan.1.1"}},
		{"suffix before repeat", []any{"Jan.1", "Jan", "Jan"}, []string{"Jan.1", "Jan", "Jan.2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, headerColumns(tt.header))
		})
	}
}

func TestValuesToTableKeepsRepeatedColumns(t *testing.T) {
	table, err := ValuesToTable("months", [][]any{
		{"Jan", "Jan", "Jan.1"},
		{"1", "2", "3"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Jan", "Jan.1", "Jan.1.1"}, table.Columns)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, domain.Row{"Jan": "1", "Jan.1": "2", "Jan.1.1": "3"}, table.Rows[0])
}

func TestParseWorkbookDateHeader(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	header := []any{"Account", "A/C Holder Name", "State"}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	require.NoError(t, f.SetCellValue(sheet, "D1", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)))
	style, err := f.NewStyle(&excelize.Style{NumFmt: 17}) // mmm-yy
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "D1", "D1", style))
	row := []any{101, "Asha", "MH", 12.5}
	require.NoError(t, f.SetSheetRow(sheet, "A2", &row))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	table, err := ParseWorkbook("dated.xlsx", &buf)
	require.NoError(t, err)

	require.Len(t, table.Columns, 4)
	month := table.Columns[3]
	assert.NotEqual(t, "45292", month)
	assert.True(t, strings.HasPrefix(month, "Jan"), "month header %q", month)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "12.5", table.Rows[0][month])
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatXLSX, DetectFormat("a.XLSX", nil))
	assert.Equal(t, FormatXLSX, DetectFormat("a.xlsm", nil))
	assert.Equal(t, FormatCSV, DetectFormat("a.csv", nil))
	assert.Equal(t, FormatXLSX, DetectFormat("export", []byte("PK\x03\x04rest")))
	assert.Equal(t, FormatCSV, DetectFormat("export", []byte("a,b\n1,2")))
	assert.Equal(t, FormatUnknown, DetectFormat("export", nil))
}
