package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "sheetpulse/internal/errors"
	"sheetpulse/internal/middleware"
	"sheetpulse/internal/services"
	"sheetpulse/internal/validation"
	api "sheetpulse/pkg/contracts/api/v1"
)

// Multipart form fields that carry spreadsheets
const (
	formFieldFiles = "files"
	formFieldFile  = "file"
)

// multipartMemory is the part of an upload kept in memory; the rest spills
// to temporary files.
const multipartMemory = 32 << 20

// UploadResponse is returned by POST /api/datasets and the source load
// endpoints
type UploadResponse struct {
	Datasets    []services.DatasetSummary `json:"datasets"`
	Diagnostics []services.FileDiagnostic `json:"diagnostics"`
	Loaded      int                       `json:"loaded"`
	Skipped     int                       `json:"skipped"`
}

func newUploadResponse(res services.IngestResult) UploadResponse {
	return UploadResponse{
		Datasets:    res.Datasets,
		Diagnostics: res.Diagnostics,
		Loaded:      res.Loaded(),
		Skipped:     res.Skipped(),
	}
}

// DatasetListResponse lists stored datasets
type DatasetListResponse struct {
	Datasets []services.DatasetSummary `json:"datasets"`
	Count    int                       `json:"count"`
}

// DatasetHandler serves uploads, reports and downloads of datasets
type DatasetHandler struct {
	ingest       Ingester
	datasets     DatasetService
	files        *validation.FileValidator
	validator    *middleware.RequestValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewDatasetHandler creates a dataset handler
func NewDatasetHandler(ingest Ingester, datasets DatasetService, files *validation.FileValidator, validator *middleware.RequestValidator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *DatasetHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetHandler{
		ingest:       ingest,
		datasets:     datasets,
		files:        files,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "dataset_handler")),
	}
}

// Routes mounts under /api/datasets
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Upload)
	r.Post("/combined", h.Combined)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		r.Get("/report", h.Report)
		r.Get("/download", h.Download)
	})
	return r
}

// Upload handles POST /api/datasets. Each file is validated and processed
// on its own; rejected files come back as skipped diagnostics.
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if limit := h.files.MaxFileSize(); limit > 0 {
		// Room for every file at the limit plus the multipart framing
		r.Body = http.MaxBytesReader(w, r.Body, limit*int64(h.maxFiles())+multipartMemory)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := append(r.MultipartForm.File[formFieldFiles], r.MultipartForm.File[formFieldFile]...)
	if len(headers) == 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrNoFiles)
		return
	}
	if err := h.files.ValidateBatch(len(headers)); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(formFieldFiles, err.Error()))
		return
	}

	inputs := make([]services.FileInput, 0, len(headers))
	for _, fh := range headers {
		input, closer, err := h.openUpload(fh)
		if errors.Is(err, validation.ErrFileTooLarge) {
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", err.Error(), fh.Filename))
			return
		}
		if closer != nil {
			defer closer.Close()
		}
		inputs = append(inputs, input)
	}

	h.logger.InfoContext(ctx, "upload received", slog.Int("files", len(inputs)))

	res, err := h.ingest.IngestFiles(ctx, inputs)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, newUploadResponse(res))
}

// openUpload validates one part and opens it. Validation failures other
// than the size limit are returned inside the FileInput.
func (h *DatasetHandler) openUpload(fh *multipart.FileHeader) (services.FileInput, io.Closer, error) {
	input := services.FileInput{Name: fh.Filename}

	f, err := fh.Open()
	if err != nil {
		input.Err = fmt.Errorf("invalid upload part: %w", err)
		return input, nil, nil
	}

	head := make([]byte, validation.SniffLength)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		f.Close()
		input.Err = fmt.Errorf("invalid upload part: %w", err)
		return input, nil, nil
	}

	if err := h.files.ValidateUpload(fh.Filename, fh.Size, head[:n]); err != nil {
		f.Close()
		if errors.Is(err, validation.ErrFileTooLarge) {
			return input, nil, err
		}
		input.Err = err
		return input, nil, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		input.Err = fmt.Errorf("invalid upload part: %w", err)
		return input, nil, nil
	}
	input.Reader = f
	return input, f, nil
}

func (h *DatasetHandler) maxFiles() int {
	return max(h.files.MaxFiles(), 1)
}

// List handles GET /api/datasets
func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	datasets := h.datasets.Datasets(r.Context())
	render.JSON(w, r, DatasetListResponse{Datasets: datasets, Count: len(datasets)})
}

// Get handles GET /api/datasets/{id}
func (h *DatasetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	summary, err := h.datasets.Dataset(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, datasetError(id, err))
		return
	}
	render.JSON(w, r, summary)
}

// Delete handles DELETE /api/datasets/{id}
func (h *DatasetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.datasets.Delete(r.Context(), id); err != nil {
		h.errorHandler.HandleError(w, r, datasetError(id, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Report handles GET /api/datasets/{id}/report
func (h *DatasetHandler) Report(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := h.datasets.Report(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, datasetError(id, err))
		return
	}
	render.JSON(w, r, report)
}

// Combined handles POST /api/datasets/combined
func (h *DatasetHandler) Combined(w http.ResponseWriter, r *http.Request) {
	var req api.CombinedStatsRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	stats, err := h.datasets.Combined(r.Context(), req.IDs)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, stats)
}

// Download handles GET /api/datasets/{id}/download?format=csv|xlsx. The file
// is rendered into memory first so a failure can still produce a problem
// response.
func (h *DatasetHandler) Download(w http.ResponseWriter, r *http.Request) {
	format, err := middleware.QueryEnum(r, "format", []string{api.FormatCSV, api.FormatXLSX}, api.FormatCSV)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	var buf bytes.Buffer
	dl, err := h.datasets.Export(r.Context(), id, format, &buf)
	if err != nil {
		h.errorHandler.HandleError(w, r, datasetError(id, err))
		return
	}

	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "download interrupted",
			slog.String("file", dl.FileName),
			slog.String("error", err.Error()))
	}
}

func datasetError(id string, err error) error {
	if errors.Is(err, services.ErrDatasetNotFound) {
		return apierrors.NotFoundError("dataset " + id)
	}
	return err
}
