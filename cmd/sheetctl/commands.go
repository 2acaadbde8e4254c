package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"sheetpulse/internal/config"
	"sheetpulse/internal/dataprocessing"
	"sheetpulse/internal/exporter"
	"sheetpulse/internal/files"
	"sheetpulse/internal/infrastructure"
	"sheetpulse/internal/services"
	"sheetpulse/internal/validation"
	"sheetpulse/pkg/contracts"
	"sheetpulse/pkg/contracts/domain"
)

// errAllFailed makes the process exit non-zero once every diagnostic has
// been printed
var errAllFailed = errors.New("no file could be processed")

type cli struct {
	logLevel string
	pretty   bool
	format   string
	output   string
	logger   *slog.Logger
	files    *validation.FileValidator
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "sheetctl",
		Short:         "Classify, summarize and convert packet and invoice spreadsheets",
		Version:       contracts.GetFullVersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			defaults := config.Default()
			logging := defaults.Logging
			logging.Level = c.logLevel
			c.logger = infrastructure.NewLogger(logging, cmd.ErrOrStderr())
			slog.SetDefault(c.logger)
			c.files = validation.NewFileValidator(defaults.Upload, c.logger)
		},
	}
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	classify := &cobra.Command{
		Use:   "classify FILE|DIR...",
		Short: "Print the record type of each spreadsheet",
		Args:  cobra.MinimumNArgs(1),
		RunE:  c.runClassify,
	}

	report := &cobra.Command{
		Use:   "report FILE|DIR...",
		Short: "Print the dashboard report of each spreadsheet as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE:  c.runReport,
	}
	report.Flags().BoolVar(&c.pretty, "pretty", false, "Pretty-print JSON output")

	combined := &cobra.Command{
		Use:   "combined FILE|DIR...",
		Short: "Print statistics combined across spreadsheets of one record type",
		Args:  cobra.MinimumNArgs(1),
		RunE:  c.runCombined,
	}
	combined.Flags().BoolVar(&c.pretty, "pretty", false, "Pretty-print JSON output")

	export := &cobra.Command{
		Use:   "export FILE",
		Short: "Write the normalized table of a spreadsheet as CSV or XLSX",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runExport,
	}
	export.Flags().StringVar(&c.format, "format", "csv", "Output format: csv or xlsx")
	export.Flags().StringVarP(&c.output, "output", "o", "", "Output file path (default: input name with the format extension)")

	root.AddCommand(classify, report, combined, export)
	return root
}

func (c *cli) runClassify(cmd *cobra.Command, args []string) error {
	paths, err := expand(args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range paths {
		code := services.CodeInvalidFile
		err := c.files.ValidateFile(path)
		var table *domain.RawTable
		if err == nil {
			code = dataprocessing.CodeUnreadable
			table, err = dataprocessing.ParseFile(path)
		}
		if err != nil {
			failed++
			printDiagnostic(cmd.ErrOrStderr(), services.FileDiagnostic{
				File:      filepath.Base(path),
				Status:    services.StatusSkipped,
				Error:     err.Error(),
				ErrorCode: code,
			})
			continue
		}
		recordType := dataprocessing.ClassifyTable(table)
		fmt.Fprintf(out, "%s\t%s\n", path, recordType)
	}
	if failed == len(paths) {
		return errAllFailed
	}
	return nil
}

func (c *cli) runReport(cmd *cobra.Command, args []string) error {
	datasets, err := c.ingest(cmd, args)
	if err != nil {
		return err
	}

	reports := make([]*services.Report, 0, len(datasets))
	for _, ds := range datasets {
		reports = append(reports, services.BuildReport(ds))
	}
	return c.writeJSON(cmd.OutOrStdout(), reports)
}

func (c *cli) runCombined(cmd *cobra.Command, args []string) error {
	datasets, err := c.ingest(cmd, args)
	if err != nil {
		return err
	}

	tables := make([]*domain.NormalizedTable, 0, len(datasets))
	for _, ds := range datasets {
		tables = append(tables, ds.Table)
	}
	stats, err := dataprocessing.CombinedStatistics(tables)
	if err != nil {
		return err
	}
	return c.writeJSON(cmd.OutOrStdout(), stats)
}

func (c *cli) runExport(cmd *cobra.Command, args []string) error {
	format, err := exporter.ParseFormat(c.format)
	if err != nil {
		return err
	}

	datasets, err := c.ingest(cmd, args)
	if err != nil {
		return err
	}
	table := datasets[0].Table

	output := c.output
	if output == "" {
		output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + "." + format.Extension()
	}
	if err := c.files.ValidateOutputDirectory(filepath.Dir(output)); err != nil {
		return err
	}
	if err := exporter.ExportFile(output, table, format); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", table.RowCount(), output)
	return nil
}

// ingest runs the files through the same pipeline as uploads. Skipped files
// are reported on stderr; errAllFailed is returned when none loaded.
func (c *cli) ingest(cmd *cobra.Command, args []string) ([]*services.Dataset, error) {
	paths, err := expand(args)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errAllFailed
	}

	inputs := make([]services.FileInput, 0, len(paths))
	for _, path := range paths {
		if err := c.files.ValidateFile(path); err != nil {
			inputs = append(inputs, services.FileInput{Name: filepath.Base(path), Err: err})
			continue
		}
		f, err := os.Open(path)
		if err != nil {
			inputs = append(inputs, services.FileInput{Name: filepath.Base(path), Err: err})
			continue
		}
		defer f.Close()
		inputs = append(inputs, services.FileInput{Name: filepath.Base(path), Reader: f})
	}

	store := services.NewDatasetStore(0)
	result, err := services.NewIngestService(store, nil, nil, c.logger).IngestFiles(context.Background(), inputs)
	if err != nil {
		return nil, err
	}

	for _, diag := range result.Diagnostics {
		if diag.Status != services.StatusOK {
			printDiagnostic(cmd.ErrOrStderr(), diag)
		}
	}
	if result.AllFailed() {
		return nil, errAllFailed
	}

	datasets := make([]*services.Dataset, 0, len(result.Datasets))
	for _, summary := range result.Datasets {
		ds, err := store.Get(summary.ID)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, ds)
	}
	return datasets, nil
}

// expand replaces directory arguments with the spreadsheets they contain
func expand(args []string) ([]string, error) {
	return files.NewDiscovery("").Expand(args)
}

func (c *cli) writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if c.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func printDiagnostic(w io.Writer, diag services.FileDiagnostic) {
	fmt.Fprintf(w, "%s: %s [%s] %s\n", diag.File, diag.Status, diag.ErrorCode, diag.Error)
	if len(diag.MissingColumns) > 0 {
		fmt.Fprintf(w, "  missing columns: %s\n", strings.Join(diag.MissingColumns, ", "))
	}
	if len(diag.FoundColumns) > 0 {
		fmt.Fprintf(w, "  found columns: %s\n", strings.Join(diag.FoundColumns, ", "))
	}
}
