// internal/server/handlers/respond.go

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"mediaintel/internal/domain/dashboard"
	"mediaintel/internal/domain/mention"
	"mediaintel/internal/service/ingest"
	"mediaintel/internal/service/render"
)

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper for error responses
func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	response := map[string]string{"error": message}

	if err != nil && code >= 500 {
		log.WithFields(log.Fields{
			"code":  code,
			"error": err,
		}).Error(message)
	}

	jsonResponse, _ := json.Marshal(response)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(jsonResponse)
}

// respondWithServiceError maps service errors to status codes
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mention.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Dataset not found", err)
	case errors.Is(err, dashboard.ErrUnknownPage):
		respondWithError(w, http.StatusNotFound, "Unknown page", err)
	case errors.Is(err, dashboard.ErrUnknownChart):
		respondWithError(w, http.StatusNotFound, "Unknown chart", err)
	case errors.Is(err, ingest.ErrUnsupported):
		respondWithError(w, http.StatusUnsupportedMediaType, err.Error(), err)
	case errors.Is(err, ingest.ErrEmpty),
		errors.Is(err, ingest.ErrMissingColumn),
		errors.Is(err, ingest.ErrTooManyRows),
		errors.Is(err, ingest.ErrUnreadable):
		respondWithError(w, http.StatusUnprocessableEntity, err.Error(), err)
	case errors.Is(err, render.ErrEmptyChart):
		respondWithError(w, http.StatusUnprocessableEntity, "Chart has no data for the current filters", err)
	case errors.Is(err, dashboard.ErrNarrativeDisabled):
		respondWithError(w, http.StatusServiceUnavailable, "Narrative summaries are not configured", err)
	default:
		respondWithError(w, http.StatusInternalServerError, "Internal server error", err)
	}
}
