package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "sheetpulse/internal/errors"
)

// maxJSONBody bounds JSON request bodies; uploads go through multipart.
const maxJSONBody = 1 << 20

// RequestValidator decodes JSON request bodies and validates them with
// struct tags. Field names in errors follow the json tags.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates a validator with the sheet-specific rules
// registered.
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("sourcename", isSourceName)
	return &RequestValidator{validate: v}
}

// Validator exposes the underlying validator for non-HTTP callers.
func (rv *RequestValidator) Validator() *validator.Validate {
	return rv.validate
}

// DecodeJSON reads r's body into dst and validates it. Errors are
// *apierrors.APIError values ready for the error handler.
func (rv *RequestValidator) DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return apierrors.ErrInvalidRequest
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apierrors.NewValidationError("request body is empty")
		}
		return apierrors.InvalidRequestWithError(err)
	}
	return rv.Struct(dst)
}

// Struct validates v and converts failures to a validation APIError.
func (rv *RequestValidator) Struct(v any) error {
	err := rv.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}
	out := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	return apierrors.NewValidationErrors(out)
}

func fieldMessage(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "uuid4", "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "sourcename":
		return fmt.Sprintf("%s must not contain '/' or control characters", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// isSourceName rejects names that cannot be used as a single path segment.
func isSourceName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if strings.TrimSpace(name) == "" {
		return false
	}
	for _, r := range name {
		if r == '/' || r == '\\' || r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}

// ContentTypeValidator rejects request bodies whose media type is not in
// contentTypes. Bodiless methods pass through.
func ContentTypeValidator(errorHandler *apierrors.ErrorHandler, contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodDelete, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength == 0 && r.Header.Get("Content-Type") == "" {
				next.ServeHTTP(w, r)
				return
			}

			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err == nil {
				for _, allowed := range contentTypes {
					if mediaType == allowed {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusUnsupportedMediaType,
				"UNSUPPORTED_MEDIA_TYPE",
				"Unsupported content type",
				map[string]interface{}{
					"content_type": r.Header.Get("Content-Type"),
					"allowed":      contentTypes,
				},
			))
		})
	}
}

// QueryEnum returns the query parameter param when it is one of allowed,
// defaultValue when absent, or a validation error.
func QueryEnum(r *http.Request, param string, allowed []string, defaultValue string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(param)))
	if value == "" {
		return defaultValue, nil
	}
	for _, a := range allowed {
		if value == a {
			return value, nil
		}
	}
	return "", apierrors.ErrValidation(param, fmt.Sprintf("%s must be one of: %s", param, strings.Join(allowed, ", ")))
}
