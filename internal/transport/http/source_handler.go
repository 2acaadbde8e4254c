package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "sheetpulse/internal/errors"
	"sheetpulse/internal/middleware"
	"sheetpulse/internal/services"
	"sheetpulse/internal/sources"
	api "sheetpulse/pkg/contracts/api/v1"
)

// SourceHandler serves the named source registry
type SourceHandler struct {
	sources      SourceManager
	validator    *middleware.RequestValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewSourceHandler creates a source handler
func NewSourceHandler(sources SourceManager, validator *middleware.RequestValidator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *SourceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceHandler{
		sources:      sources,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "source_handler")),
	}
}

// Routes mounts under /api/sources
func (h *SourceHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Add)
	r.Post("/load", h.LoadMany)
	r.Route("/{name}", func(r chi.Router) {
		r.Delete("/", h.Remove)
		r.Post("/load", h.Load)
	})
	return r
}

// List handles GET /api/sources
func (h *SourceHandler) List(w http.ResponseWriter, r *http.Request) {
	srcs, err := h.sources.List(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.SourceListResponse{Sources: srcs, Count: len(srcs)})
}

// Add handles POST /api/sources
func (h *SourceHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req api.AddSourceRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	src, err := h.sources.Add(r.Context(), req.Name, req.Locator)
	if err != nil {
		h.errorHandler.HandleError(w, r, sourceError(req.Name, err))
		return
	}

	h.logger.InfoContext(r.Context(), "source added", slog.String("name", src.Name))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, src)
}

// Remove handles DELETE /api/sources/{name}
func (h *SourceHandler) Remove(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.sources.Remove(r.Context(), name); err != nil {
		h.errorHandler.HandleError(w, r, sourceError(name, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Load handles POST /api/sources/{name}/load. A source that cannot be
// downloaded answers 502; schema problems come back as a diagnostic.
func (h *SourceHandler) Load(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	res, err := h.sources.Load(r.Context(), []string{name})
	if err != nil {
		h.errorHandler.HandleError(w, r, sourceError(name, err))
		return
	}
	if len(res.Diagnostics) == 1 && res.Diagnostics[0].ErrorCode == services.CodeFetchFailed {
		h.errorHandler.HandleError(w, r, apierrors.FetchFailedError(name, errors.New(res.Diagnostics[0].Error)))
		return
	}
	render.JSON(w, r, newUploadResponse(res))
}

// LoadMany handles POST /api/sources/load
func (h *SourceHandler) LoadMany(w http.ResponseWriter, r *http.Request) {
	var req api.LoadSourcesRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.load(w, r, req.Names)
}

func (h *SourceHandler) load(w http.ResponseWriter, r *http.Request, names []string) {
	res, err := h.sources.Load(r.Context(), names)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, newUploadResponse(res))
}

// sourceError maps registry sentinels for one named source
func sourceError(name string, err error) error {
	switch {
	case errors.Is(err, sources.ErrSourceNotFound):
		return apierrors.NotFoundError(fmt.Sprintf("source %q", name))
	case errors.Is(err, sources.ErrSourceExists):
		return apierrors.ConflictError(fmt.Sprintf("source %q already exists", name))
	}
	return err
}
