// Package dataprocessing turns spreadsheet tables into normalized records
// and report statistics.
//
// # Architecture
//
// The package is organized into four components:
//
// 1. Classifier: decides from the header alone whether a table holds packet or invoice records
// 2. Normalizer: builds typed records with derived Total, Average and Month fields
// 3. Aggregator: computes table statistics, group rollups and combined statistics
// 4. Reshaper: melts wide tables to long format and builds cross-tabs
//
// The loader in parser.go reads the first worksheet of an xlsx or csv file
// into a RawTable. Everything else is a pure function of its inputs.
//
// # Usage
//
//	table, err := dataprocessing.ParseFile("packets.xlsx")
//	if err != nil {
//	    return err
//	}
//	normalized, err := dataprocessing.Process(table)
//	if err != nil {
//	    return err
//	}
//	stats := dataprocessing.PacketStatistics(normalized)
//
// # Data Flow
//
//	RawTable → Classify → Normalize → {PacketStatistics, InvoiceStatistics, GroupSum, Melt, CrossTab}
//
// # Error Handling
//
// File-level failures are typed so callers can report them per file:
//
//   - SchemaMismatchError when the header matches no schema
//   - MissingColumnsError naming the absent required columns
//   - NoNumericDataError when a packet table has no month columns
//
// Cell-level parse failures never fail a table. The cell becomes nil and a
// ValueParseWarning is appended to the normalized table.
package dataprocessing
