package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"sheetpulse/internal/dataprocessing"
	"sheetpulse/internal/exporter"
	"sheetpulse/pkg/contracts/domain"
	"sheetpulse/pkg/contracts/events"
)

// Long-format column names of the monthly holder series
const (
	SeriesVariableColumn = "Month"
	SeriesValueColumn    = "Packets"
)

// Report is the dashboard view of one dataset. Exactly one of Packet and
// Invoice is set.
type Report struct {
	Dataset  DatasetSummary             `json:"dataset"`
	Packet   *PacketReport              `json:"packet,omitempty"`
	Invoice  *InvoiceReport             `json:"invoice,omitempty"`
	Warnings []domain.ValueParseWarning `json:"warnings"`
}

// PacketReport holds the packet dashboard figures
type PacketReport struct {
	Stats         domain.PacketStats  `json:"stats"`
	StateShares   []domain.GroupShare `json:"state_shares"`
	HolderShares  []domain.GroupShare `json:"holder_shares"`
	MonthlySeries []domain.MeltRow    `json:"monthly_series"`
	HolderByMonth domain.CrossTab     `json:"holder_by_month"`
	StateByMonth  domain.CrossTab     `json:"state_by_month"`
}

// InvoiceReport holds the invoice dashboard figures
type InvoiceReport struct {
	Stats          domain.InvoiceStats `json:"stats"`
	CustomerShares []domain.GroupShare `json:"customer_shares"`
	HolderShares   []domain.GroupShare `json:"holder_shares"`
	MonthlyTotals  []domain.GroupTotal `json:"monthly_totals"`
	HolderByMonth  domain.CrossTab     `json:"holder_by_month"`
}

// ReportService builds report views and downloads from stored datasets
type ReportService struct {
	store  *DatasetStore
	events EventPublisher
	logger *slog.Logger
}

// NewReportService creates a report service
func NewReportService(store *DatasetStore, publisher EventPublisher, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &ReportService{
		store:  store,
		events: publisher,
		logger: logger.With(slog.String("component", "report_service")),
	}
}

// Datasets lists the stored datasets
func (s *ReportService) Datasets(ctx context.Context) []DatasetSummary {
	return s.store.List()
}

// Dataset returns the summary of one dataset
func (s *ReportService) Dataset(ctx context.Context, id string) (DatasetSummary, error) {
	ds, err := s.store.Get(id)
	if err != nil {
		return DatasetSummary{}, err
	}
	return ds.Summary(), nil
}

// Delete drops a dataset
func (s *ReportService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "dataset deleted", slog.String("dataset_id", id))
	s.events.Publish(ctx, events.MessageTypeDatasetDeleted, events.DatasetEvent{ID: id})
	return nil
}

// Report builds the dashboard view of a dataset
func (s *ReportService) Report(ctx context.Context, id string) (*Report, error) {
	ds, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return BuildReport(ds), nil
}

// BuildReport computes the dashboard view of a dataset
func BuildReport(ds *Dataset) *Report {
	table := ds.Table
	report := &Report{
		Dataset:  ds.Summary(),
		Warnings: table.Warnings,
	}
	if report.Warnings == nil {
		report.Warnings = []domain.ValueParseWarning{}
	}

	frame := table.Frame()
	switch table.Type {
	case domain.RecordTypePacket:
		report.Packet = packetReport(table, frame)
	case domain.RecordTypeInvoice:
		report.Invoice = invoiceReport(table, frame)
	}
	return report
}

func packetReport(table *domain.NormalizedTable, frame domain.Frame) *PacketReport {
	holder := table.HolderColumn

	series := dataprocessing.Melt(frame, holder, table.MonthColumns)
	long := dataprocessing.LongFrame(series, holder, SeriesVariableColumn, SeriesValueColumn)

	byState := dataprocessing.Melt(frame, dataprocessing.ColumnState, table.MonthColumns)
	stateLong := dataprocessing.LongFrame(byState, dataprocessing.ColumnState, SeriesVariableColumn, SeriesValueColumn)

	return &PacketReport{
		Stats:         dataprocessing.PacketStatistics(table),
		StateShares:   dataprocessing.BucketMinorities(dataprocessing.GroupSum(frame, dataprocessing.ColumnState, domain.ColumnTotal)),
		HolderShares:  dataprocessing.BucketMinorities(dataprocessing.GroupSum(frame, holder, domain.ColumnTotal)),
		MonthlySeries: series,
		HolderByMonth: dataprocessing.CrossTab(long, holder, SeriesVariableColumn, SeriesValueColumn, dataprocessing.Sum),
		StateByMonth:  dataprocessing.CrossTab(stateLong, dataprocessing.ColumnState, SeriesVariableColumn, SeriesValueColumn, dataprocessing.Sum),
	}
}

func invoiceReport(table *domain.NormalizedTable, frame domain.Frame) *InvoiceReport {
	return &InvoiceReport{
		Stats:          dataprocessing.InvoiceStatistics(table),
		CustomerShares: dataprocessing.BucketMinorities(dataprocessing.GroupSum(frame, dataprocessing.ColumnCustomerName, domain.ColumnAmount)),
		HolderShares:   dataprocessing.BucketMinorities(dataprocessing.GroupSum(frame, dataprocessing.ColumnAccountHolderName, domain.ColumnAmount)),
		MonthlyTotals:  dataprocessing.GroupSum(frame, domain.ColumnMonth, domain.ColumnAmount),
		HolderByMonth:  dataprocessing.CrossTab(frame, dataprocessing.ColumnAccountHolderName, domain.ColumnMonth, domain.ColumnAmount, dataprocessing.Sum),
	}
}

// Combined computes statistics across stored datasets. Every ID must exist
// and all datasets must share one record type.
func (s *ReportService) Combined(ctx context.Context, ids []string) (domain.CombinedStats, error) {
	if len(ids) == 0 {
		return domain.CombinedStats{}, ErrNoDatasets
	}
	tables := make([]*domain.NormalizedTable, 0, len(ids))
	for _, id := range ids {
		ds, err := s.store.Get(id)
		if err != nil {
			return domain.CombinedStats{}, err
		}
		tables = append(tables, ds.Table)
	}
	stats, err := dataprocessing.CombinedStatistics(tables)
	if err != nil {
		return domain.CombinedStats{}, fmt.Errorf("invalid combination: %w", err)
	}
	return stats, nil
}

// Download describes an exported file
type Download struct {
	FileName    string
	ContentType string
}

// Export writes a dataset to w in the given format
func (s *ReportService) Export(ctx context.Context, id, format string, w io.Writer) (Download, error) {
	ds, err := s.store.Get(id)
	if err != nil {
		return Download{}, err
	}

	f, err := exporter.ParseFormat(format)
	if err != nil {
		return Download{}, fmt.Errorf("%w: %s", ErrInvalidFormat, format)
	}

	dl := Download{
		FileName:    exportName(ds.Table.Name, f),
		ContentType: f.ContentType(),
	}
	if err := exporter.Write(w, ds.Table, f); err != nil {
		return Download{}, fmt.Errorf("export %s: %w", id, err)
	}
	s.logger.InfoContext(ctx, "dataset exported",
		slog.String("dataset_id", id),
		slog.String("format", string(f)))
	return dl, nil
}

// exportName derives a download file name from a table name
func exportName(name string, f exporter.Format) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "dataset"
	}
	return base + "." + f.Extension()
}
