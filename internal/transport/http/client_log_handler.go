package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "sheetpulse/internal/errors"
	"sheetpulse/internal/middleware"
)

// ClientLogHandler forwards dashboard-side log lines into the server log
type ClientLogHandler struct {
	validator    *middleware.RequestValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewClientLogHandler creates a new client log handler
func NewClientLogHandler(validator *middleware.RequestValidator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ClientLogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClientLogHandler{
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "client_log")),
	}
}

// LogRequest represents a client log entry
type LogRequest struct {
	Level   string         `json:"level" validate:"omitempty,oneof=debug info warn error"`
	Message string         `json:"message" validate:"required,max=2000"`
	Data    map[string]any `json:"data,omitempty"`
	Source  string         `json:"source,omitempty" validate:"max=200"`
}

// Handle processes POST /api/logs
func (h *ClientLogHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req LogRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	attrs := []slog.Attr{slog.String("client_source", req.Source)}
	if req.Data != nil {
		attrs = append(attrs, slog.Any("data", req.Data))
	}

	h.logger.LogAttrs(r.Context(), clientLevel(req.Level), req.Message, attrs...)

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]bool{"success": true})
}

func clientLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
