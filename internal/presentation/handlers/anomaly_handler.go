package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/application/services"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
)

// maxAnomalyRecords bounds the size of a single scoring request
const maxAnomalyRecords = 100000

// AnomalyHandler scores caller-supplied record batches
type AnomalyHandler struct {
	service *services.AnomalyService
	logger  *zap.Logger
}

// NewAnomalyHandler creates a new anomaly handler
func NewAnomalyHandler(service *services.AnomalyService, logger *zap.Logger) *AnomalyHandler {
	return &AnomalyHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the anomaly routes on a chi router
func (h *AnomalyHandler) RegisterRoutes(r chi.Router) {
	r.Post("/anomalies", h.Detect)
}

// DetectRequest is the body of POST /anomalies
type DetectRequest struct {
	Records       []entities.Record `json:"records"`
	Features      []string          `json:"features,omitempty"`
	Contamination *float64          `json:"contamination,omitempty"`
}

// Detect handles POST /api/v1/anomalies
func (h *AnomalyHandler) Detect(w http.ResponseWriter, r *http.Request) {
	var req DetectRequest
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Records) > maxAnomalyRecords {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("At most %d records per request", maxAnomalyRecords))
		return
	}

	detector, err := detectorFor(h.service, req.Contamination)
	if err != nil {
		respondServiceError(w, h.logger, err, "detect anomalies")
		return
	}

	respondData(w, http.StatusOK, AnomaliesDTO{
		Analyzed:      len(req.Records),
		Contamination: detector.Contamination(),
		Anomalies:     detector.DetectBatch(req.Records, req.Features),
	})
}
