package services

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"sheetpulse/internal/dataprocessing"
	"sheetpulse/internal/infrastructure"
	"sheetpulse/pkg/contracts/domain"
	"sheetpulse/pkg/contracts/events"
)

// Per-file outcome
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	// StatusEvicted marks a file that loaded but was pushed out of the
	// dataset store by later files of the same batch
	StatusEvicted = "evicted"
)

// Diagnostic codes set outside the spreadsheet pipeline
const (
	CodeFetchFailed = "FETCH_FAILED"
	CodeInvalidFile = "INVALID_FILE"
)

// EventPublisher pushes live update events to connected dashboards
type EventPublisher interface {
	Publish(ctx context.Context, msgType events.MessageType, data any)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, events.MessageType, any) {}

// FileInput is one uploaded workbook. A non-nil Err marks a file the
// transport already rejected; it is reported as skipped and not read.
type FileInput struct {
	Name   string
	Reader io.Reader
	Err    error
}

// FileDiagnostic reports what happened to one file of a batch. A skipped
// file carries the error and, for schema problems, the columns involved.
type FileDiagnostic struct {
	File           string                     `json:"file"`
	Status         string                     `json:"status"`
	Type           domain.RecordType          `json:"type,omitempty"`
	DatasetID      string                     `json:"dataset_id,omitempty"`
	Rows           int                        `json:"rows,omitempty"`
	Warnings       []domain.ValueParseWarning `json:"warnings,omitempty"`
	Error          string                     `json:"error,omitempty"`
	ErrorCode      string                     `json:"error_code,omitempty"`
	FoundColumns   []string                   `json:"found_columns,omitempty"`
	MissingColumns []string                   `json:"missing_columns,omitempty"`
}

// IngestResult is the outcome of a batch
type IngestResult struct {
	Datasets    []DatasetSummary `json:"datasets"`
	Diagnostics []FileDiagnostic `json:"diagnostics"`
}

// Loaded returns the number of files that produced a dataset
func (r IngestResult) Loaded() int {
	return len(r.Datasets)
}

// Skipped returns the number of files that were rejected
func (r IngestResult) Skipped() int {
	return len(r.Diagnostics) - len(r.Datasets)
}

// AllFailed reports whether a non-empty batch produced nothing
func (r IngestResult) AllFailed() bool {
	return len(r.Diagnostics) > 0 && len(r.Datasets) == 0
}

// IngestService turns raw workbooks into stored datasets. Files of a batch
// are processed one after another; a failing file becomes a diagnostic and
// its siblings continue.
type IngestService struct {
	store   *DatasetStore
	events  EventPublisher
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewIngestService creates an ingest service. events and metrics may be nil.
func NewIngestService(store *DatasetStore, publisher EventPublisher, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *IngestService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &IngestService{
		store:   store,
		events:  publisher,
		metrics: metrics,
		logger:  infrastructure.WithComponent(logger, "ingest_service"),
	}
}

// IngestFiles parses, classifies and normalizes each uploaded file.
// Only context cancellation stops the batch early.
func (s *IngestService) IngestFiles(ctx context.Context, files []FileInput) (IngestResult, error) {
	if len(files) == 0 {
		return IngestResult{}, ErrNoFiles
	}

	b := s.newBatch(OriginUpload)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return b.result, err
		}
		if f.Err != nil {
			b.skip(ctx, f.Name, f.Err, CodeInvalidFile)
			continue
		}
		table, err := dataprocessing.ParseWorkbook(f.Name, f.Reader)
		if err != nil {
			b.skip(ctx, f.Name, err, dataprocessing.CodeUnreadable)
			continue
		}
		b.add(ctx, f.Name, table, "")
	}
	return s.finish(ctx, b), nil
}

// batch accumulates the outcome of one upload or source load
type batch struct {
	svc    *IngestService
	origin string
	result IngestResult
}

func (s *IngestService) newBatch(origin string) *batch {
	return &batch{
		svc:    s,
		origin: origin,
		result: IngestResult{
			Datasets:    []DatasetSummary{},
			Diagnostics: []FileDiagnostic{},
		},
	}
}

// add normalizes a parsed table and stores it
func (b *batch) add(ctx context.Context, file string, table *domain.RawTable, source string) {
	s := b.svc
	normalized, err := dataprocessing.Process(table)
	if err != nil {
		b.skip(ctx, file, err, "")
		return
	}

	ds, evicted := s.store.Put(normalized, b.origin, source)
	summary := ds.Summary()
	b.result.Datasets = append(b.result.Datasets, summary)
	b.result.Diagnostics = append(b.result.Diagnostics, FileDiagnostic{
		File:      file,
		Status:    StatusOK,
		Type:      normalized.Type,
		DatasetID: ds.ID,
		Rows:      summary.Rows,
		Warnings:  normalized.Warnings,
	})

	s.metrics.RecordFileIngested(ctx, string(normalized.Type), StatusOK, summary.Rows, len(normalized.Warnings))
	s.logger.InfoContext(ctx, "file ingested",
		slog.String("file", file),
		slog.String("dataset_id", ds.ID),
		slog.String("type", string(normalized.Type)),
		slog.Int("rows", summary.Rows),
		slog.Int("warnings", len(normalized.Warnings)))

	s.events.Publish(ctx, events.MessageTypeDatasetCreated, events.DatasetEvent{
		ID:   ds.ID,
		Name: normalized.Name,
		Type: string(normalized.Type),
		Rows: summary.Rows,
	})
	for _, id := range evicted {
		b.evict(id)
		s.logger.InfoContext(ctx, "dataset evicted", slog.String("dataset_id", id))
		s.events.Publish(ctx, events.MessageTypeDatasetEvicted, events.DatasetEvent{ID: id})
	}
}

// evict drops a dataset of this batch that no longer resolves in the store
func (b *batch) evict(id string) {
	for i, d := range b.result.Datasets {
		if d.ID == id {
			b.result.Datasets = append(b.result.Datasets[:i], b.result.Datasets[i+1:]...)
			break
		}
	}
	for i := range b.result.Diagnostics {
		diag := &b.result.Diagnostics[i]
		if diag.DatasetID == id {
			diag.Status = StatusEvicted
			diag.DatasetID = ""
			break
		}
	}
}

// skip records a rejected file. An empty code is derived from err.
func (b *batch) skip(ctx context.Context, file string, err error, code string) {
	diag := diagnosticFor(file, err)
	if code != "" {
		diag.ErrorCode = code
	}
	b.result.Diagnostics = append(b.result.Diagnostics, diag)

	recordType := diag.Type
	if recordType == "" {
		recordType = domain.RecordTypeUnknown
	}
	b.svc.metrics.RecordFileIngested(ctx, string(recordType), StatusSkipped, 0, 0)
	b.svc.logger.WarnContext(ctx, "file skipped",
		slog.String("file", file),
		slog.String("error_code", diag.ErrorCode),
		slog.String("error", diag.Error))
}

func (s *IngestService) finish(ctx context.Context, b *batch) IngestResult {
	ids := make([]string, 0, len(b.result.Datasets))
	for _, d := range b.result.Datasets {
		ids = append(ids, d.ID)
	}
	s.events.Publish(ctx, events.MessageTypeIngestCompleted, events.IngestEvent{
		Origin:   b.origin,
		Files:    len(b.result.Diagnostics),
		Loaded:   b.result.Loaded(),
		Skipped:  b.result.Skipped(),
		Datasets: ids,
	})
	s.logger.InfoContext(ctx, "batch completed",
		slog.String("origin", b.origin),
		slog.Int("files", len(b.result.Diagnostics)),
		slog.Int("loaded", b.result.Loaded()),
		slog.Int("skipped", b.result.Skipped()))
	return b.result
}

// diagnosticFor converts a file-level pipeline error into a diagnostic
func diagnosticFor(file string, err error) FileDiagnostic {
	diag := FileDiagnostic{
		File:      file,
		Status:    StatusSkipped,
		Error:     err.Error(),
		ErrorCode: dataprocessing.ErrorCode(err),
	}

	var schemaErr *dataprocessing.SchemaMismatchError
	var missingErr *dataprocessing.MissingColumnsError
	var numericErr *dataprocessing.NoNumericDataError
	switch {
	case errors.As(err, &schemaErr):
		diag.Type = domain.RecordTypeUnknown
		diag.FoundColumns = schemaErr.Found
	case errors.As(err, &missingErr):
		diag.Type = missingErr.Type
		diag.FoundColumns = missingErr.Found
		diag.MissingColumns = missingErr.Missing
	case errors.As(err, &numericErr):
		diag.Type = domain.RecordTypePacket
	}
	return diag
}
