// internal/server/handlers/dataset.go

package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"mediaintel/internal/domain/dashboard"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DatasetHandler handles dataset and dashboard endpoints
type DatasetHandler struct {
	service        dashboard.Service
	maxUploadBytes int64
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(service dashboard.Service, maxUploadBytes int64) *DatasetHandler {
	return &DatasetHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
	}
}

// GetCatalog returns the navigation pages, chart ids and recommendations
func (h *DatasetHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"pages":           h.service.Pages(),
		"recommendations": h.service.Recommendations(),
	})
}

// ListDatasets returns every stored dataset
func (h *DatasetHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	infos, err := h.service.List(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, infos)
}

// UploadDataset ingests a CSV or Excel export sent as the multipart field "file"
func (h *DatasetHandler) UploadDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Upload exceeds %d bytes", h.maxUploadBytes), nil)
			return
		}
		respondWithError(w, http.StatusBadRequest, "Invalid multipart form", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Missing file field", nil)
		return
	}
	defer file.Close()

	result, err := h.service.Upload(r.Context(), header.Filename, file)
	if err != nil {
		log.WithFields(log.Fields{
			"file":  header.Filename,
			"error": err,
		}).Warn("Upload rejected")
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

// GetDataset returns dataset metadata
func (h *DatasetHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, info)
}

// DeleteDataset removes a dataset
func (h *DatasetHandler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondWithServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetDashboard returns every chart for the filtered dataset
func (h *DatasetHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	d, err := h.service.Dashboard(r.Context(), chi.URLParam(r, "id"), filter)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, d)
}

// GetPage returns the charts of one navigation page
func (h *DatasetHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	d, err := h.service.Page(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "page"), filter)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, d)
}

// GetChartPNG renders one chart as a PNG image
func (h *DatasetHandler) GetChartPNG(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	// Buffer so a failed render can still answer with JSON
	var buf bytes.Buffer
	if err := h.service.ChartPNG(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "chart"), filter, &buf); err != nil {
		respondWithServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// ExportDataset returns the filtered rows and insights as an xlsx workbook
func (h *DatasetHandler) ExportDataset(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	id := chi.URLParam(r, "id")
	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), id, filter, &buf); err != nil {
		respondWithServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "dashboard-"+id+".xlsx"))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// CreateNarrative asks the language model for a summary of the insights
func (h *DatasetHandler) CreateNarrative(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	text, err := h.service.Narrative(r.Context(), chi.URLParam(r, "id"), filter)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"narrative": text})
}
