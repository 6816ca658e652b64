package handlers

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/analytics/iforest"
	"github.com/bimakw/chain-analytics/internal/application/services"
	"github.com/bimakw/chain-analytics/internal/domain/apperrors"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
)

// ChainHandler handles HTTP requests for balances, histories and
// transactions of single addresses
type ChainHandler struct {
	chain   *services.ChainService
	anomaly *services.AnomalyService
	logger  *zap.Logger
	now     func() time.Time
}

// NewChainHandler creates a new chain handler
func NewChainHandler(chain *services.ChainService, anomaly *services.AnomalyService, logger *zap.Logger) *ChainHandler {
	return &ChainHandler{
		chain:   chain,
		anomaly: anomaly,
		logger:  logger,
		now:     time.Now,
	}
}

// RegisterRoutes registers the chain routes on a chi router
func (h *ChainHandler) RegisterRoutes(r chi.Router) {
	r.Route("/networks/{network}", func(r chi.Router) {
		r.Get("/addresses/{address}/balance", h.GetBalance)
		r.Get("/addresses/{address}/transactions", h.GetTransactions)
		r.Get("/addresses/{address}/volume", h.GetVolume)
		r.Get("/addresses/{address}/anomalies", h.GetAnomalies)
		r.Get("/transactions/{hash}", h.GetTransaction)
	})
}

// BalanceDTO is the API representation of an address balance
type BalanceDTO struct {
	Network         string  `json:"network"`
	Address         string  `json:"address"`
	ChecksumAddress string  `json:"checksum_address"`
	Symbol          string  `json:"symbol"`
	Wei             string  `json:"wei"`
	Value           float64 `json:"value"`
}

// GetBalance handles GET /api/v1/networks/{network}/addresses/{address}/balance
func (h *ChainHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	network := chi.URLParam(r, "network")
	address := chi.URLParam(r, "address")

	balance, err := h.chain.GetBalance(r.Context(), address, network)
	if err != nil {
		respondServiceError(w, h.logger, err, "get balance")
		return
	}

	n, _ := entities.LookupNetwork(balance.Network)
	respondData(w, http.StatusOK, BalanceDTO{
		Network:         balance.Network,
		Address:         balance.Address,
		ChecksumAddress: common.HexToAddress(balance.Address).Hex(),
		Symbol:          n.Symbol,
		Wei:             balance.Wei.String(),
		Value:           balance.Value,
	})
}

// GetTransactions handles GET /api/v1/networks/{network}/addresses/{address}/transactions
func (h *ChainHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	txs, ok := h.history(w, r)
	if !ok {
		return
	}
	respondData(w, http.StatusOK, txs)
}

// GetVolume handles GET /api/v1/networks/{network}/addresses/{address}/volume
func (h *ChainHandler) GetVolume(w http.ResponseWriter, r *http.Request) {
	txs, ok := h.history(w, r)
	if !ok {
		return
	}
	respondData(w, http.StatusOK, services.BuildDailyVolume(txs))
}

// AnomaliesDTO is the API representation of a scored batch
type AnomaliesDTO struct {
	Analyzed      int                      `json:"analyzed"`
	Contamination float64                  `json:"contamination"`
	Anomalies     []entities.AnomalyRecord `json:"anomalies"`
}

// GetAnomalies handles GET /api/v1/networks/{network}/addresses/{address}/anomalies
func (h *ChainHandler) GetAnomalies(w http.ResponseWriter, r *http.Request) {
	contamination, err := parseContamination(r.URL.Query().Get("contamination"))
	if err != nil {
		respondServiceError(w, h.logger, err, "detect anomalies")
		return
	}
	detector, err := detectorFor(h.anomaly, contamination)
	if err != nil {
		respondServiceError(w, h.logger, err, "detect anomalies")
		return
	}

	txs, ok := h.history(w, r)
	if !ok {
		return
	}

	respondData(w, http.StatusOK, AnomaliesDTO{
		Analyzed:      len(txs),
		Contamination: detector.Contamination(),
		Anomalies:     detector.DetectTransactions(txs),
	})
}

// GetTransaction handles GET /api/v1/networks/{network}/transactions/{hash}
func (h *ChainHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	network := chi.URLParam(r, "network")
	hash := chi.URLParam(r, "hash")

	tx, err := h.chain.GetTransaction(r.Context(), hash, network)
	if err != nil {
		respondServiceError(w, h.logger, err, "get transaction")
		return
	}
	if tx == nil {
		respondError(w, http.StatusNotFound, "Transaction not found")
		return
	}

	respondData(w, http.StatusOK, tx)
}

// history fetches the address history described by the request. It writes
// the error response itself and reports whether the caller may continue.
func (h *ChainHandler) history(w http.ResponseWriter, r *http.Request) ([]entities.Transaction, bool) {
	network := chi.URLParam(r, "network")
	address := chi.URLParam(r, "address")

	query, err := h.parseHistoryQuery(r)
	if err != nil {
		respondServiceError(w, h.logger, err, "get transactions")
		return nil, false
	}

	txs, err := h.chain.GetAddressHistory(r.Context(), address, network, query)
	if err != nil {
		respondServiceError(w, h.logger, err, "get transactions")
		return nil, false
	}
	return txs, true
}

func (h *ChainHandler) parseHistoryQuery(r *http.Request) (entities.HistoryQuery, error) {
	q := r.URL.Query()
	query := entities.DefaultHistoryQuery()

	if v := q.Get("startblock"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return query, apperrors.NewValidationError("startblock", v, "expected a block number")
		}
		query.StartBlock = n
	}
	if v := q.Get("endblock"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return query, apperrors.NewValidationError("endblock", v, "expected a block number")
		}
		query.EndBlock = n
	}
	if query.StartBlock > query.EndBlock {
		return query, apperrors.NewValidationError("startblock", q.Get("startblock"), "must not exceed endblock")
	}
	if v := q.Get("sort"); v != "" {
		if v != "asc" && v != "desc" {
			return query, apperrors.NewValidationError("sort", v, "expected asc or desc")
		}
		query.Sort = v
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return query, apperrors.NewValidationError("page", v, "expected a positive integer")
		}
		query.Page = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 10000 {
			return query, apperrors.NewValidationError("offset", v, "expected an integer between 1 and 10000")
		}
		query.Offset = n
	}
	if v := q.Get("days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 1 {
			return query, apperrors.NewValidationError("days", v, "expected a positive number of days")
		}
		since := h.now().UTC().AddDate(0, 0, -days)
		query.Since = &since
	}

	return query, nil
}

// parseContamination reads an optional contamination override
func parseContamination(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	c, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(c) || math.IsInf(c, 0) {
		return nil, apperrors.NewValidationError("contamination", raw, "expected a finite number")
	}
	return &c, nil
}

// detectorFor applies an optional contamination override
func detectorFor(service *services.AnomalyService, contamination *float64) (*services.AnomalyService, error) {
	if contamination == nil {
		return service, nil
	}
	c := *contamination
	if !iforest.ValidContamination(c) {
		return nil, apperrors.NewValidationError("contamination", strconv.FormatFloat(c, 'g', -1, 64), "expected a number in (0, 0.5]")
	}
	return service.WithContamination(c), nil
}
