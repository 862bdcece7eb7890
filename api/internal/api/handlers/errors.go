package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"stockroom/api/internal/core/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names so messages match what the client sent
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type errorResponse struct {
	Message string `json:"message"`
}

// HandleError maps a service or validation error onto a status code and a
// {"message": ...} body. Unknown errors are logged and never echoed.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var message string

	var domainErr *domain.Error
	var validationErrs validator.ValidationErrors

	switch {
	case errors.As(err, &validationErrs):
		status, message = http.StatusBadRequest, validationMessage(validationErrs[0])
	case errors.Is(err, domain.ErrNotFound):
		status, message = http.StatusNotFound, "Resource not found"
	case errors.Is(err, domain.ErrConflict):
		status, message = http.StatusConflict, "Resource already exists"
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrStockOverflow):
		status, message = http.StatusBadRequest, "Invalid request"
	default:
		slog.Error("Unhandled request error",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		status, message = http.StatusInternalServerError, "Internal Server Error"
	}

	if errors.As(err, &domainErr) && status != http.StatusInternalServerError {
		message = domainErr.Message
	}

	writeJSON(w, status, errorResponse{Message: message})
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// ==============================================================================
// Shared helpers
// ==============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

// decodeBody decodes a JSON request body and runs struct validation.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		HandleError(w, r, err)
		return false
	}
	return true
}

// pathID parses a strictly positive integer path parameter.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, "Invalid ID format")
		return 0, false
	}
	return id, true
}
