package dataprocessing

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var errEmptyAmount = errors.New("no digits in amount")

// numericValue coerces a loosely typed cell to a number. Missing cells,
// blank strings and non-numeric text report ok=false.
func numericValue(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return x, true
	case float32:
		return numericValue(float64(x))
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// isMissing reports whether a cell carries no value at all
func isMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case float64:
		return math.IsNaN(x)
	default:
		return false
	}
}

// textValue renders a cell as a string. Whole numbers lose their decimal
// point, so an account read as 101.0 becomes "101".
func textValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return x.Format("2006-01-02")
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// parseAmount strips every rune that is not a digit, '.' or '-' and parses
// the remainder as a decimal. "₹1,200.50" parses as 1200.50.
func parseAmount(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, fmt.Errorf("not a finite number")
		}
		return decimal.NewFromFloat(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	}

	raw := textValue(v)
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return decimal.Zero, errEmptyAmount
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %q: %w", cleaned, err)
	}
	return d, nil
}

// invoiceMonthLayout is the fixed-width date prefix of an invoice number
const invoiceMonthLayout = "060102"

// parseInvoiceMonth reads the leading YYMMDD of an invoice number and
// returns the month as YYYY-MM.
func parseInvoiceMonth(invoiceNo string) (string, error) {
	if len(invoiceNo) < len(invoiceMonthLayout) {
		return "", fmt.Errorf("invoice number shorter than %d characters", len(invoiceMonthLayout))
	}
	t, err := time.Parse(invoiceMonthLayout, invoiceNo[:len(invoiceMonthLayout)])
	if err != nil {
		return "", err
	}
	return t.Format("2006-01"), nil
}
