// Package services implements the business logic layer of SheetPulse.
// It sits between the HTTP handlers and the pure dataprocessing core, so
// that batch rules, event publication and logging live in one place.
//
// # Available Services
//
//	- IngestService: parses uploaded workbooks into stored datasets and
//	  reports one FileDiagnostic per file
//	- SourceService: manages named sources and loads them through the
//	  fetcher into the same batch pipeline
//	- ReportService: builds dashboard reports, combined statistics and
//	  downloads from stored datasets
//	- HealthService: provides system health checks
//
// # Batches
//
// Files of a batch are processed sequentially. A file that cannot be read,
// classified or normalized is skipped with a diagnostic carrying the error
// code and the columns found; its siblings continue. Only context
// cancellation ends a batch early.
//
// # Error Handling
//
// Services return sentinel errors wrapped with context, which the HTTP
// error handler maps to problem documents:
//
//	- ErrDatasetNotFound for unknown dataset IDs
//	- ErrNoFiles, ErrNoSources and ErrNoDatasets for empty requests
//	- ErrInvalidFormat for unknown export formats
//
// # Testing
//
// Collaborators are replaced with testify mocks:
//
//	publisher := &MockPublisher{}
//	publisher.On("Publish", mock.Anything, events.MessageTypeDatasetCreated, mock.Anything)
//	svc := NewIngestService(NewDatasetStore(0), publisher, nil, logger)
package services
