package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sheetpulse/internal/dataprocessing"
	apierrors "sheetpulse/internal/errors"
	"sheetpulse/internal/sources"
	"sheetpulse/pkg/contracts/domain"
	"sheetpulse/pkg/contracts/events"
)

// SourceFetcher loads named sources into raw tables
type SourceFetcher interface {
	FetchAll(ctx context.Context, srcs []domain.NamedSource) ([]sources.FetchResult, error)
}

// SourceService manages the named source registry and loads sources into
// datasets.
type SourceService struct {
	registry *sources.Registry
	fetcher  SourceFetcher
	ingest   *IngestService
	events   EventPublisher
	logger   *slog.Logger
}

// NewSourceService creates a source service
func NewSourceService(registry *sources.Registry, fetcher SourceFetcher, ingest *IngestService, publisher EventPublisher, logger *slog.Logger) *SourceService {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &SourceService{
		registry: registry,
		fetcher:  fetcher,
		ingest:   ingest,
		events:   publisher,
		logger:   logger.With(slog.String("component", "source_service")),
	}
}

// List returns the registered sources
func (s *SourceService) List(ctx context.Context) ([]domain.NamedSource, error) {
	return s.registry.List(ctx)
}

// Add registers a source and announces it
func (s *SourceService) Add(ctx context.Context, name, locator string) (domain.NamedSource, error) {
	src, err := s.registry.Add(ctx, name, locator)
	if err != nil {
		return domain.NamedSource{}, err
	}
	s.events.Publish(ctx, events.MessageTypeSourceAdded, events.SourceEvent{Name: src.Name, Locator: src.Locator})
	return src, nil
}

// Remove deletes a source and announces it
func (s *SourceService) Remove(ctx context.Context, name string) error {
	if err := s.registry.Remove(ctx, name); err != nil {
		return err
	}
	s.events.Publish(ctx, events.MessageTypeSourceRemoved, events.SourceEvent{Name: name})
	return nil
}

// Load fetches the named sources and ingests them as one batch. Unknown
// names fail the whole request before anything is fetched. Fetch failures
// become skipped diagnostics; fetched tables are normalized in the order
// the names were given.
func (s *SourceService) Load(ctx context.Context, names []string) (IngestResult, error) {
	if len(names) == 0 {
		return IngestResult{}, ErrNoSources
	}

	srcs := make([]domain.NamedSource, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		src, err := s.registry.Get(ctx, name)
		if err != nil {
			return IngestResult{}, err
		}
		srcs = append(srcs, src)
	}

	s.logger.InfoContext(ctx, "loading sources", slog.Int("count", len(srcs)))

	results, err := s.fetcher.FetchAll(ctx, srcs)
	if err != nil {
		return IngestResult{}, fmt.Errorf("source load cancelled: %w", err)
	}

	b := s.ingest.newBatch(OriginSource)
	for _, res := range results {
		if res.Err != nil {
			b.skip(ctx, res.Source.Name, res.Err, fetchErrorCode(res.Err))
			continue
		}
		b.add(ctx, res.Source.Name, res.Table, res.Source.Name)
	}
	return s.ingest.finish(ctx, b), nil
}

// fetchErrorCode tells a download that never arrived from one that arrived
// but is not a readable workbook
func fetchErrorCode(err error) string {
	var appErr *apierrors.AppError
	if errors.As(err, &appErr) && appErr.Type == apierrors.ErrTypeParsing {
		return dataprocessing.CodeUnreadable
	}
	return CodeFetchFailed
}
