package http

import (
	"context"
	"io"

	"sheetpulse/internal/services"
	"sheetpulse/pkg/contracts/domain"
)

// Ingester turns uploaded files into datasets
type Ingester interface {
	IngestFiles(ctx context.Context, files []services.FileInput) (services.IngestResult, error)
}

// DatasetService reads, reports on and exports stored datasets
type DatasetService interface {
	Datasets(ctx context.Context) []services.DatasetSummary
	Dataset(ctx context.Context, id string) (services.DatasetSummary, error)
	Delete(ctx context.Context, id string) error
	Report(ctx context.Context, id string) (*services.Report, error)
	Combined(ctx context.Context, ids []string) (domain.CombinedStats, error)
	Export(ctx context.Context, id, format string, w io.Writer) (services.Download, error)
}

// SourceManager manages and loads named sources
type SourceManager interface {
	List(ctx context.Context) ([]domain.NamedSource, error)
	Add(ctx context.Context, name, locator string) (domain.NamedSource, error)
	Remove(ctx context.Context, name string) error
	Load(ctx context.Context, names []string) (services.IngestResult, error)
}

var (
	_ Ingester       = (*services.IngestService)(nil)
	_ DatasetService = (*services.ReportService)(nil)
	_ SourceManager  = (*services.SourceService)(nil)
)
