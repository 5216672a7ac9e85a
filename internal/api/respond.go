package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/p-n-ai/cbt-admin/internal/catalog"
	"github.com/p-n-ai/cbt-admin/internal/platform/apperr"
	"github.com/p-n-ai/cbt-admin/internal/taxonomy"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    string           `json:"code"`
	Message string           `json:"message"`
	Field   string           `json:"field,omitempty"`
	Targets []catalog.Target `json:"targets,omitempty"`
}

// Error codes carried in ErrorBody.Code.
const (
	CodeValidation = "validation"
	CodeConflict   = "conflict"
	CodeNotFound   = "not_found"
	CodeInternal   = "internal"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// writeBody sends a rendered body with status 200. Once the header is out a
// failed write can only be logged.
func writeBody(w http.ResponseWriter, r *http.Request, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Error("writing response", "method", r.Method, "path", r.URL.Path, "bytes", len(data), "error", err)
	}
}

// writeError maps an error kind to a status code and writes its body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := ErrorBody{Message: err.Error()}
	var status int
	switch apperr.Kind(err) {
	case apperr.ErrValidation:
		status, body.Code = http.StatusBadRequest, CodeValidation
		var ve *apperr.ValidationError
		if errors.As(err, &ve) {
			body.Field = ve.Field
		}
	case apperr.ErrConflict:
		status, body.Code = http.StatusConflict, CodeConflict
		var re *taxonomy.ResolutionError
		if errors.As(err, &re) {
			body.Field = re.Field
		}
	case apperr.ErrNotFound:
		status, body.Code = http.StatusNotFound, CodeNotFound
		var te *catalog.InvalidTargetError
		if errors.As(err, &te) {
			body.Targets = te.Targets
		}
	default:
		status, body.Code, body.Message = http.StatusInternalServerError, CodeInternal, "internal error"
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, body)
}

// decode reads a JSON body into v. Malformed bodies are validation errors.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if apperr.Kind(err) != nil {
			return err
		}
		return apperr.Invalid("", "malformed JSON body: %v", err)
	}
	return nil
}

// requestLogger logs one structured line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
