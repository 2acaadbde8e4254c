package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"sheetpulse/internal/infrastructure"
	"sheetpulse/pkg/contracts/domain"
)

// Registry is the named-source list. It is built once with its Store and
// shared by the HTTP layer and the CLI.
type Registry struct {
	store    Store
	validate *validator.Validate
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewRegistry creates a registry over store. metrics may be nil.
func NewRegistry(store Store, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "source_registry")),
		now:      time.Now,
	}
}

// List returns every source in insertion order.
func (r *Registry) List(ctx context.Context) ([]domain.NamedSource, error) {
	list, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	if list == nil {
		list = []domain.NamedSource{}
	}
	return list, nil
}

// Get returns the source called name, or ErrSourceNotFound.
func (r *Registry) Get(ctx context.Context, name string) (domain.NamedSource, error) {
	list, err := r.List(ctx)
	if err != nil {
		return domain.NamedSource{}, err
	}
	if i := indexOf(list, name); i >= 0 {
		return list[i], nil
	}
	return domain.NamedSource{}, fmt.Errorf("%w: %s", ErrSourceNotFound, name)
}

// Add registers a new source. Names and locators are trimmed; a blank name,
// a non-URL locator or a name longer than 100 characters is rejected.
func (r *Registry) Add(ctx context.Context, name, locator string) (domain.NamedSource, error) {
	src := domain.NamedSource{
		Name:      strings.TrimSpace(name),
		Locator:   strings.TrimSpace(locator),
		CreatedAt: r.now().UTC(),
	}
	if err := r.validate.Struct(src); err != nil {
		return domain.NamedSource{}, fmt.Errorf("invalid source: %w", err)
	}
	if _, err := ClassifyLocator(src.Locator); err != nil {
		return domain.NamedSource{}, err
	}

	if err := r.store.Insert(ctx, src); err != nil {
		if errors.Is(err, ErrSourceExists) {
			return domain.NamedSource{}, fmt.Errorf("%w: %s", ErrSourceExists, src.Name)
		}
		return domain.NamedSource{}, fmt.Errorf("failed to add source: %w", err)
	}

	r.metrics.RecordRegistryChange(ctx, "add")
	r.logger.InfoContext(ctx, "source added",
		slog.String("name", src.Name),
		slog.String("locator", src.Locator))
	return src, nil
}

// Remove deletes the source called name.
func (r *Registry) Remove(ctx context.Context, name string) error {
	if err := r.store.Delete(ctx, name); err != nil {
		if errors.Is(err, ErrSourceNotFound) {
			return fmt.Errorf("%w: %s", ErrSourceNotFound, name)
		}
		return fmt.Errorf("failed to remove source: %w", err)
	}

	r.metrics.RecordRegistryChange(ctx, "remove")
	r.logger.InfoContext(ctx, "source removed", slog.String("name", name))
	return nil
}
