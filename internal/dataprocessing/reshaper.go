package dataprocessing

import (
	"sheetpulse/pkg/contracts/domain"
)

// AggregateFunc reduces the values that fall into one cross-tab cell
type AggregateFunc func(values []float64) float64

// Sum adds the values of a cell
func Sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}

// Mean averages the values of a cell
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Sum(values) / float64(len(values))
}

// Count counts the values of a cell
func Count(values []float64) float64 {
	return float64(len(values))
}

// Melt unpivots a frame into long format: one row per (input row, value
// column) pair. Output is ordered by value column, then by input row. An
// empty valueColumns melts every column except idColumn.
func Melt(frame domain.Frame, idColumn string, valueColumns []string) []domain.MeltRow {
	if len(valueColumns) == 0 {
		columns := make([]string, 0, len(frame.Columns))
		for _, c := range frame.Columns {
			if c != idColumn {
				columns = append(columns, c)
			}
		}
		valueColumns = columns
	}

	out := make([]domain.MeltRow, 0, len(frame.Rows)*len(valueColumns))
	for _, col := range valueColumns {
		for _, row := range frame.Rows {
			out = append(out, domain.MeltRow{
				ID:       row[idColumn],
				Variable: col,
				Value:    row[col],
			})
		}
	}
	return out
}

// LongFrame renders melted rows as a three column frame named idColumn,
// variableName and valueName, ready for GroupSum or CrossTab.
func LongFrame(rows []domain.MeltRow, idColumn, variableName, valueName string) domain.Frame {
	frame := domain.Frame{
		Columns: []string{idColumn, variableName, valueName},
		Rows:    make([]domain.Row, 0, len(rows)),
	}
	for _, r := range rows {
		frame.Rows = append(frame.Rows, domain.Row{
			idColumn:     r.ID,
			variableName: r.Variable,
			valueName:    r.Value,
		})
	}
	return frame
}

// CrossTab aggregates valueColumn over the distinct (rowKey, colKey) pairs
// of a frame. Keys keep first-appearance order. Combinations with no
// numeric value are absent from the result. A nil agg means Sum.
func CrossTab(frame domain.Frame, rowKey, colKey, valueColumn string, agg AggregateFunc) domain.CrossTab {
	if agg == nil {
		agg = Sum
	}

	ct := domain.CrossTab{
		RowKey:  rowKey,
		ColKey:  colKey,
		RowKeys: []string{},
		ColKeys: []string{},
		Cells:   make(map[string]map[string]float64),
	}

	seenRows := make(map[string]struct{})
	seenCols := make(map[string]struct{})
	values := make(map[string]map[string][]float64)

	for _, row := range frame.Rows {
		rv, cv := row[rowKey], row[colKey]
		if isMissing(rv) || isMissing(cv) {
			continue
		}
		v, ok := numericValue(row[valueColumn])
		if !ok {
			continue
		}
		r, c := textValue(rv), textValue(cv)
		if _, seen := seenRows[r]; !seen {
			seenRows[r] = struct{}{}
			ct.RowKeys = append(ct.RowKeys, r)
		}
		if _, seen := seenCols[c]; !seen {
			seenCols[c] = struct{}{}
			ct.ColKeys = append(ct.ColKeys, c)
		}
		if values[r] == nil {
			values[r] = make(map[string][]float64)
		}
		values[r][c] = append(values[r][c], v)
	}

	for r, cols := range values {
		ct.Cells[r] = make(map[string]float64, len(cols))
		for c, vs := range cols {
			ct.Cells[r][c] = agg(vs)
		}
	}
	return ct
}
