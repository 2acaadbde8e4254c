package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"sheetpulse/pkg/contracts/domain"
)

// Write exports a table in the given format. CSV output carries a UTF-8 BOM.
func Write(w io.Writer, table *domain.NormalizedTable, f Format) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, table, WriteOptions{BOMPrefix: true})
	case FormatXLSX:
		return WriteXLSX(w, table)
	}
	return fmt.Errorf("unsupported export format %q", f)
}

// ExportFile writes a table to path. The file is written next to its final
// location and renamed into place, so a failed export leaves no partial file.
func ExportFile(path string, table *domain.NormalizedTable, f Format) error {
	slog.Info("Writing export file",
		slog.String("file_path", path),
		slog.String("format", string(f)),
		slog.Int("record_count", table.RowCount()))

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, table, f); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move export into place: %w", err)
	}
	return nil
}
