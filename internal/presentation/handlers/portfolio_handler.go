package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/application/services"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
	"github.com/bimakw/chain-analytics/internal/domain/validation"
)

// PortfolioHandler handles HTTP requests for the tracked portfolio
type PortfolioHandler struct {
	service *services.PortfolioService
	logger  *zap.Logger
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(service *services.PortfolioService, logger *zap.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the portfolio routes on a chi router
func (h *PortfolioHandler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/", h.GetSummary)
		r.Get("/allocation", h.GetAllocation)
		r.Get("/addresses", h.ListAddresses)
		r.Post("/addresses", h.AddAddress)
		r.Delete("/addresses/{network}/{address}", h.RemoveAddress)
	})
}

// PortfolioSummaryDTO is the API representation of a portfolio refresh
type PortfolioSummaryDTO struct {
	Entries     []entities.PortfolioEntry `json:"entries"`
	Allocation  map[string]float64        `json:"allocation"`
	Failed      int                       `json:"failed"`
	RefreshedAt string                    `json:"refreshed_at"`
}

// AddAddressRequest is the body of POST /portfolio/addresses
type AddAddressRequest struct {
	Address string `json:"address"`
	Network string `json:"network"`
}

// GetSummary handles GET /api/v1/portfolio
func (h *PortfolioHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary := h.service.GetPortfolioSummary(r.Context())

	entries := make([]entities.PortfolioEntry, 0, len(summary))
	failed := 0
	for _, e := range summary {
		entries = append(entries, e)
		if e.Failed() {
			failed++
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Network != entries[j].Network {
			return entries[i].Network < entries[j].Network
		}
		return entries[i].Address < entries[j].Address
	})

	respondData(w, http.StatusOK, PortfolioSummaryDTO{
		Entries:     entries,
		Allocation:  services.BuildAllocation(entries),
		Failed:      failed,
		RefreshedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// GetAllocation handles GET /api/v1/portfolio/allocation.
// It uses the last refresh and does not call the indexer.
func (h *PortfolioHandler) GetAllocation(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, services.BuildAllocation(h.service.Entries()))
}

// ListAddresses handles GET /api/v1/portfolio/addresses?network=
func (h *PortfolioHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.service.ListAddresses(r.URL.Query().Get("network")))
}

// AddAddress handles POST /api/v1/portfolio/addresses
func (h *PortfolioHandler) AddAddress(w http.ResponseWriter, r *http.Request) {
	var req AddAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Network == "" {
		req.Network = entities.DefaultNetwork
	}

	if _, ok := entities.LookupNetwork(req.Network); !ok {
		respondError(w, http.StatusBadRequest, "Unsupported network")
		return
	}
	if !validation.ValidateAddress(req.Address, req.Network) {
		respondError(w, http.StatusBadRequest, "Invalid address format")
		return
	}

	if !h.service.AddAddress(req.Address, req.Network) {
		respondError(w, http.StatusConflict, "Address already tracked")
		return
	}

	respondData(w, http.StatusCreated, h.service.ListAddresses(req.Network))
}

// RemoveAddress handles DELETE /api/v1/portfolio/addresses/{network}/{address}
func (h *PortfolioHandler) RemoveAddress(w http.ResponseWriter, r *http.Request) {
	network := chi.URLParam(r, "network")
	address := chi.URLParam(r, "address")

	if !h.service.RemoveAddress(address, network) {
		respondError(w, http.StatusNotFound, "Address not tracked")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
