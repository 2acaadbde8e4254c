package domain

// GroupTotal is one entry of an ordered group-by rollup
type GroupTotal struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// GroupShare is a group total with its share of the grand total (0..1)
type GroupShare struct {
	Key   string  `json:"key"`
	Total float64 `json:"total"`
	Share float64 `json:"share"`
}

// MonthAverage is the mean of the non-null values of one month column
type MonthAverage struct {
	Month   string   `json:"month"`
	Average *float64 `json:"average"`
	Count   int      `json:"count"`
}

// AccountActivity counts the non-null months of one account
type AccountActivity struct {
	Account      string `json:"account"`
	ActiveMonths int    `json:"active_months"`
}

// PacketStats summarises a packet table
type PacketStats struct {
	TotalPackets    float64           `json:"total_packets"`
	AveragePerMonth *float64          `json:"average_per_month"`
	AccountCount    int               `json:"account_count"`
	MonthlyAverages []MonthAverage    `json:"monthly_averages"`
	AccountTotals   []GroupTotal      `json:"account_totals"`
	ActiveMonths    []AccountActivity `json:"active_months"`
}

// InvoiceStats summarises an invoice table. TotalInvoices counts every row,
// including rows whose amount could not be parsed; ParsedInvoices counts
// only rows that contributed to TotalAmount and AverageInvoice.
type InvoiceStats struct {
	TotalAmount          float64  `json:"total_amount"`
	AverageInvoice       *float64 `json:"average_invoice"`
	TotalInvoices        int      `json:"total_invoices"`
	ParsedInvoices       int      `json:"parsed_invoices"`
	UniqueCustomers      int      `json:"unique_customers"`
	UniqueAccountHolders int      `json:"unique_account_holders"`
}

// CombinedStats aggregates several tables of the same record type.
// MeanOfPerTableMeans averages one mean per source table, so small and
// large tables weigh the same.
type CombinedStats struct {
	RecordType          RecordType `json:"record_type"`
	TableCount          int        `json:"table_count"`
	TotalAcrossAll      float64    `json:"total_across_all"`
	CountAcrossAll      int        `json:"count_across_all"`
	MeanOfPerTableMeans *float64   `json:"mean_of_per_table_means"`
}

// MeltRow is one row of a long-format (unpivoted) table
type MeltRow struct {
	ID       any    `json:"id"`
	Variable string `json:"variable"`
	Value    any    `json:"value"`
}

// CrossTab is a two-dimensional aggregate. Combinations that never occur
// in the source are absent from Cells rather than zero.
type CrossTab struct {
	RowKey  string                        `json:"row_key"`
	ColKey  string                        `json:"col_key"`
	RowKeys []string                      `json:"row_keys"`
	ColKeys []string                      `json:"col_keys"`
	Cells   map[string]map[string]float64 `json:"cells"`
}

// Get returns the aggregated value for a row/column pair
func (c *CrossTab) Get(row, col string) (float64, bool) {
	cols, ok := c.Cells[row]
	if !ok {
		return 0, false
	}
	v, ok := cols[col]
	return v, ok
}
