package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"brasserie/models"
	"brasserie/pkg/logger"
)

// writeJSONResponse writes a JSON response with the given status code
func writeJSONResponse(log *logger.Logger, w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Error("Failed to encode JSON response", "error", err)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		}
	}
}

// writeErrorResponse writes an error payload with the given status code
func writeErrorResponse(log *logger.Logger, w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	resp := map[string]string{"error": message}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error("Failed to encode error response", "error", err)
	}
}

// parseRequestBody parses a JSON request body into the target struct
func parseRequestBody(r *http.Request, target interface{}) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

// statusForError maps business errors to HTTP statuses. Validation maps
// to 400, conflicts with current state to 409, everything unrecognized
// to 500.
func statusForError(err error) int {
	switch {
	case models.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrStockInsufficient),
		errors.Is(err, models.ErrInsufficientPoints),
		errors.Is(err, models.ErrDailyLimitExceeded),
		errors.Is(err, models.ErrCouponExpiredOrUsed),
		errors.Is(err, models.ErrOrderNotCancellable),
		errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	case strings.Contains(err.Error(), "not found"):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
