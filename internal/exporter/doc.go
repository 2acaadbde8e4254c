// Package exporter writes normalized tables as downloadable files.
//
// Two formats are supported:
//
// CSV: RFC 4180 quoting via encoding/csv with an optional UTF-8 BOM for
// Excel compatibility. Numbers are written in plain decimal notation with
// full precision.
//
// XLSX: a single worksheet built with excelize, numeric cells preserved.
//
// In both formats the source columns keep their order and the derived
// Total and Average columns of packet tables are moved to the end.
//
// Example usage:
//
//	f, err := exporter.ParseFormat("xlsx")
//	if err != nil {
//		return err
//	}
//	err = exporter.ExportFile("out/north.xlsx", table, f)
package exporter
