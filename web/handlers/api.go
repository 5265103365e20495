// Package handlers provides the HTTP handlers, middleware and WebSocket hub
// of the Recall API.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/scrypster/recall/internal/engine"
	"github.com/scrypster/recall/internal/storage"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 4 << 20

// Error codes of ErrorResponse.Code.
const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeValidation   = "VALIDATION_FAILED"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL"
	CodeUnavailable  = "UNAVAILABLE"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeRateLimited  = "RATE_LIMITED"
)

// ownerParam returns the {owner} path segment.
func ownerParam(r *http.Request) string {
	return chi.URLParam(r, "owner")
}

// parseInt returns the integer value of s, or defaultValue when s is empty.
func parseInt(s string, defaultValue int) (int, error) {
	if s == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return v, nil
}

// parseFloat is parseInt for float query parameters.
func parseFloat(s string, defaultValue float64) (float64, error) {
	if s == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return v, nil
}

func parseBool(s string) bool {
	v, _ := strconv.ParseBool(s)
	return v
}

// splitList splits a comma-separated query value, dropping empty items.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// On failure it writes the error response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "invalid JSON body", err)
		return false
	}
	if err := validateStruct(dst); err != nil {
		var verr *validationError
		if errors.As(err, &verr) {
			fields := make(map[string]any, len(verr.fields))
			for k, v := range verr.fields {
				fields[k] = v
			}
			respondJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "validation failed",
				Code:    CodeValidation,
				Details: fields,
			})
			return false
		}
		respondError(w, http.StatusBadRequest, CodeValidation, "validation failed", err)
		return false
	}
	return true
}

// respondJSON writes data as JSON with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	// Headers are already sent; an encoding failure can only be dropped.
	_ = json.NewEncoder(w).Encode(data)
}

// respondError writes an ErrorResponse.
func respondError(w http.ResponseWriter, statusCode int, code, message string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = map[string]any{"error": err.Error()}
	}
	respondJSON(w, statusCode, resp)
}

// respondEngineError maps storage and engine sentinels to status codes and
// logs anything unexpected.
func respondEngineError(w http.ResponseWriter, logger *zap.Logger, message string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, CodeNotFound, message, err)
	case errors.Is(err, storage.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, CodeBadRequest, message, err)
	case errors.Is(err, storage.ErrDuplicate), errors.Is(err, engine.ErrAlreadyReviewed):
		respondError(w, http.StatusConflict, CodeConflict, message, err)
	case errors.Is(err, engine.ErrShuttingDown):
		respondError(w, http.StatusServiceUnavailable, CodeUnavailable, message, err)
	default:
		logger.Error(message, zap.Error(err))
		respondError(w, http.StatusInternalServerError, CodeInternal, message, nil)
	}
}
