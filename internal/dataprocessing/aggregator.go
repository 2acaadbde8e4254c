package dataprocessing

import (
	"github.com/shopspring/decimal"

	"sheetpulse/pkg/contracts/domain"
)

// MinorityShareThreshold is the share of the grand total below which a
// group is folded into OthersGroup
const MinorityShareThreshold = 0.02

// OthersGroup is the key of the synthetic group holding minority groups
const OthersGroup = "Others"

// PacketStatistics summarises a normalized packet table.
// AveragePerMonth is the mean of the non-null row averages and is the
// per-table mean used by CombinedStatistics.
func PacketStatistics(table *domain.NormalizedTable) domain.PacketStats {
	stats := domain.PacketStats{
		MonthlyAverages: make([]domain.MonthAverage, 0, len(table.MonthColumns)),
		AccountTotals:   []domain.GroupTotal{},
		ActiveMonths:    make([]domain.AccountActivity, 0, len(table.Packets)),
	}

	var avgSum float64
	avgCount := 0
	accounts := newOrderedSums()
	for _, p := range table.Packets {
		stats.TotalPackets += p.Total
		if p.Average != nil {
			avgSum += *p.Average
			avgCount++
		}
		if p.Account != "" {
			accounts.add(p.Account, p.Total, true)
		}
		stats.ActiveMonths = append(stats.ActiveMonths, domain.AccountActivity{
			Account:      p.Account,
			ActiveMonths: p.ActiveMonths,
		})
	}
	stats.AveragePerMonth = meanOf(avgSum, avgCount)
	stats.AccountTotals = accounts.totals()
	stats.AccountCount = len(stats.AccountTotals)

	for i, month := range table.MonthColumns {
		var sum float64
		n := 0
		for _, p := range table.Packets {
			if i >= len(p.MonthlyValues) || p.MonthlyValues[i].Value == nil {
				continue
			}
			sum += *p.MonthlyValues[i].Value
			n++
		}
		stats.MonthlyAverages = append(stats.MonthlyAverages, domain.MonthAverage{
			Month:   month,
			Average: meanOf(sum, n),
			Count:   n,
		})
	}
	return stats
}

// InvoiceStatistics summarises a normalized invoice table. Rows with a nil
// amount count towards TotalInvoices but not towards the sum or mean.
func InvoiceStatistics(table *domain.NormalizedTable) domain.InvoiceStats {
	stats := domain.InvoiceStats{TotalInvoices: len(table.Invoices)}

	total := decimal.Zero
	customers := make(map[string]struct{})
	holders := make(map[string]struct{})
	for _, inv := range table.Invoices {
		if inv.Amount != nil {
			total = total.Add(decimal.NewFromFloat(*inv.Amount))
			stats.ParsedInvoices++
		}
		if inv.CustomerName != "" {
			customers[inv.CustomerName] = struct{}{}
		}
		if inv.AccountHolderName != "" {
			holders[inv.AccountHolderName] = struct{}{}
		}
	}

	stats.TotalAmount = total.InexactFloat64()
	if stats.ParsedInvoices > 0 {
		avg := total.Div(decimal.NewFromInt(int64(stats.ParsedInvoices))).InexactFloat64()
		stats.AverageInvoice = &avg
	}
	stats.UniqueCustomers = len(customers)
	stats.UniqueAccountHolders = len(holders)
	return stats
}

// GroupSum totals valueColumn per distinct groupBy value. Groups are
// returned in order of first appearance, not sorted. Rows without a group
// key are skipped; missing values add nothing but still register the group.
func GroupSum(frame domain.Frame, groupBy, valueColumn string) []domain.GroupTotal {
	sums := newOrderedSums()
	for _, row := range frame.Rows {
		key := row[groupBy]
		if isMissing(key) {
			continue
		}
		v, ok := numericValue(row[valueColumn])
		sums.add(textValue(key), v, ok)
	}
	return sums.totals()
}

// CombinedStatistics aggregates several normalized tables of one record
// type. MeanOfPerTableMeans averages one mean per table, so every table
// weighs the same regardless of its row count; tables without a mean are
// left out of that average.
func CombinedStatistics(tables []*domain.NormalizedTable) (domain.CombinedStats, error) {
	if len(tables) == 0 {
		return domain.CombinedStats{}, ErrNoTables
	}

	recordType := tables[0].Type
	for _, t := range tables[1:] {
		if t.Type != recordType {
			return domain.CombinedStats{}, ErrMixedRecordTypes
		}
	}

	combined := domain.CombinedStats{
		RecordType: recordType,
		TableCount: len(tables),
	}

	var meanSum float64
	means := 0
	for _, t := range tables {
		var mean *float64
		switch recordType {
		case domain.RecordTypePacket:
			s := PacketStatistics(t)
			combined.TotalAcrossAll += s.TotalPackets
			combined.CountAcrossAll += len(t.Packets)
			mean = s.AveragePerMonth
		case domain.RecordTypeInvoice:
			s := InvoiceStatistics(t)
			combined.TotalAcrossAll += s.TotalAmount
			combined.CountAcrossAll += s.TotalInvoices
			mean = s.AverageInvoice
		}
		if mean != nil {
			meanSum += *mean
			means++
		}
	}
	combined.MeanOfPerTableMeans = meanOf(meanSum, means)
	return combined, nil
}

// BucketMinorities computes each group's share of the grand total and
// folds groups below MinorityShareThreshold into a trailing OthersGroup.
// OthersGroup is omitted when its total is zero. A zero grand total leaves
// the groups as they are with a zero share.
//
// Totals are summed as decimals, so the returned totals add up to the
// grand total whatever order they are added in.
func BucketMinorities(groups []domain.GroupTotal) []domain.GroupShare {
	grand := decimal.Zero
	for _, g := range groups {
		grand = grand.Add(decimal.NewFromFloat(g.Value))
	}

	out := make([]domain.GroupShare, 0, len(groups)+1)
	if grand.IsZero() {
		for _, g := range groups {
			out = append(out, domain.GroupShare{Key: g.Key, Total: g.Value})
		}
		return out
	}

	grandF := grand.InexactFloat64()
	others := decimal.Zero
	var othersShare float64
	for _, g := range groups {
		share := g.Value / grandF
		if share < MinorityShareThreshold {
			others = others.Add(decimal.NewFromFloat(g.Value))
			othersShare += share
			continue
		}
		out = append(out, domain.GroupShare{Key: g.Key, Total: g.Value, Share: share})
	}
	if !others.IsZero() {
		out = append(out, domain.GroupShare{Key: OthersGroup, Total: others.InexactFloat64(), Share: othersShare})
	}
	return out
}

func meanOf(sum float64, n int) *float64 {
	if n == 0 {
		return nil
	}
	m := sum / float64(n)
	return &m
}

// orderedSums accumulates per-key sums in first-appearance order
type orderedSums struct {
	keys []string
	sums map[string]float64
}

func newOrderedSums() *orderedSums {
	return &orderedSums{sums: make(map[string]float64)}
}

func (o *orderedSums) add(key string, v float64, ok bool) {
	if _, seen := o.sums[key]; !seen {
		o.keys = append(o.keys, key)
		o.sums[key] = 0
	}
	if ok {
		o.sums[key] += v
	}
}

func (o *orderedSums) totals() []domain.GroupTotal {
	out := make([]domain.GroupTotal, 0, len(o.keys))
	for _, k := range o.keys {
		out = append(out, domain.GroupTotal{Key: k, Value: o.sums[k]})
	}
	return out
}
