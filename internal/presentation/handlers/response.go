package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/domain/apperrors"
)

// DataResponse wraps a payload for API responses
type DataResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, DataResponse{Data: data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// statusFor maps an error kind to an HTTP status
func statusFor(err error) int {
	switch apperrors.Kind(err) {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindAPI, apperrors.KindProtocol:
		return http.StatusBadGateway
	case apperrors.KindConnection, apperrors.KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes err with the status its kind maps to.
// Indexer messages are passed through verbatim.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error, action string) {
	status := statusFor(err)
	kind := apperrors.Kind(err)

	message := err.Error()
	var apiErr *apperrors.APIError
	var validationErr *apperrors.ValidationError
	switch {
	case errors.As(err, &apiErr):
		message = apiErr.Error()
	case errors.As(err, &validationErr):
		message = validationErr.Error()
	case status == http.StatusInternalServerError:
		message = "Failed to " + action
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Failed to "+action, zap.String("kind", kind), zap.Error(err))
	} else {
		logger.Debug("Rejected request", zap.String("action", action), zap.Error(err))
	}

	respondJSON(w, status, ErrorResponse{Error: message, Kind: kind})
}
