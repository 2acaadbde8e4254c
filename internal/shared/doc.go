// Package shared holds helpers used across the sheetpulse packages.
//
// The testutil subpackage provides:
//
//   - a buffered slog handler for asserting on log output
//   - spreadsheet fixtures for packet, invoice and unrecognised tables
//   - Workbook, which renders fixture rows into an in-memory xlsx file
package shared
