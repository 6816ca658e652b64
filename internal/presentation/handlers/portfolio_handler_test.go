package handlers

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/application/services"
	"github.com/bimakw/chain-analytics/internal/config"
	"github.com/bimakw/chain-analytics/internal/domain/apperrors"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
	"github.com/bimakw/chain-analytics/internal/testutil"
)

func setupPortfolioHandlerTest(tracked ...string) (*chi.Mux, *services.PortfolioService, *testutil.MockChainRepository) {
	repo := testutil.NewMockChainRepository()
	logger := zap.NewNop()

	chain := services.NewChainService(repo, nil, logger)
	service := services.NewPortfolioService(chain, config.PortfolioConfig{
		WorkerCount:    2,
		DefaultNetwork: "ethereum",
		Addresses:      tracked,
	}, nil, logger)

	r := chi.NewRouter()
	NewPortfolioHandler(service, logger).RegisterRoutes(r)

	return r, service, repo
}

func TestPortfolioHandler_GetSummary_PartialFailure(t *testing.T) {
	r, _, repo := setupPortfolioHandlerTest(
		"ethereum:"+testutil.AliceAddress,
		"polygon:"+testutil.BobAddress,
	)

	wei, _ := new(big.Int).SetString("2500000000000000000", 10)
	repo.SetBalance("ethereum", testutil.AliceAddress, wei)
	repo.AddHistory("ethereum", testutil.AliceAddress, testutil.CreateRawHistory(3)...)
	repo.GetBalanceFunc = func(ctx context.Context, network entities.Network, address string) (*big.Int, error) {
		if network.Name == "polygon" {
			return nil, &apperrors.ConnectionError{Op: "balance", Err: errors.New("connection refused")}
		}
		return wei, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/portfolio/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var summary PortfolioSummaryDTO
	decodeData(t, rec.Body, &summary)

	if len(summary.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(summary.Entries))
	}
	if summary.Failed != 1 {
		t.Errorf("expected 1 failed entry, got %d", summary.Failed)
	}

	eth := summary.Entries[0]
	if eth.Network != "ethereum" || eth.Balance != 2.5 || eth.TransactionCount != 3 {
		t.Errorf("unexpected ethereum entry %+v", eth)
	}
	poly := summary.Entries[1]
	if poly.Network != "polygon" || poly.Error == "" || poly.Balance != 0 {
		t.Errorf("unexpected polygon entry %+v", poly)
	}

	if summary.Allocation["ETH"] != 2.5 {
		t.Errorf("expected ETH allocation 2.5, got %v", summary.Allocation["ETH"])
	}
	if _, ok := summary.Allocation["POL"]; ok {
		t.Error("failed entries must not contribute to the allocation")
	}
}

func TestPortfolioHandler_GetSummary_Empty(t *testing.T) {
	r, _, repo := setupPortfolioHandlerTest()

	req := httptest.NewRequest(http.MethodGet, "/portfolio/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var summary PortfolioSummaryDTO
	decodeData(t, rec.Body, &summary)

	if len(summary.Entries) != 0 {
		t.Errorf("expected no entries, got %d", len(summary.Entries))
	}
	if len(repo.Calls) != 0 {
		t.Errorf("expected no indexer calls, got %d", len(repo.Calls))
	}
}

func TestPortfolioHandler_GetAllocation_UsesLastRefresh(t *testing.T) {
	r, service, repo := setupPortfolioHandlerTest("ethereum:" + testutil.AliceAddress)
	wei, _ := new(big.Int).SetString(testutil.OneEther, 10)
	repo.SetBalance("ethereum", testutil.AliceAddress, wei)

	service.GetPortfolioSummary(context.Background())
	calls := len(repo.Calls)

	req := httptest.NewRequest(http.MethodGet, "/portfolio/allocation", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var allocation map[string]float64
	decodeData(t, rec.Body, &allocation)

	if allocation["ETH"] != 1 {
		t.Errorf("expected ETH allocation 1, got %v", allocation["ETH"])
	}
	if len(repo.Calls) != calls {
		t.Error("allocation must not call the indexer")
	}
}

func TestPortfolioHandler_AddAddress(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected int
	}{
		{"valid", `{"address":"` + testutil.AliceAddress + `","network":"polygon"}`, http.StatusCreated},
		{"default network", `{"address":"` + testutil.BobAddress + `"}`, http.StatusCreated},
		{"invalid address", `{"address":"0x123","network":"ethereum"}`, http.StatusBadRequest},
		{"unsupported network", `{"address":"` + testutil.AliceAddress + `","network":"bitcoin"}`, http.StatusBadRequest},
		{"invalid body", `{not json`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := setupPortfolioHandlerTest()

			req := httptest.NewRequest(http.MethodPost, "/portfolio/addresses", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, rec.Code)
			}
		})
	}
}

func TestPortfolioHandler_AddAddress_Duplicate(t *testing.T) {
	r, service, _ := setupPortfolioHandlerTest("ethereum:" + testutil.VitalikAddress)

	body := `{"address":"0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045","network":"ethereum"}`
	req := httptest.NewRequest(http.MethodPost, "/portfolio/addresses", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rec.Code)
	}
	if got := service.ListAddresses("ethereum")["ethereum"]; len(got) != 1 {
		t.Errorf("expected one tracked address, got %v", got)
	}
}

func TestPortfolioHandler_ListAddresses(t *testing.T) {
	r, _, _ := setupPortfolioHandlerTest(
		"ethereum:"+testutil.AliceAddress,
		"polygon:"+testutil.BobAddress,
	)

	req := httptest.NewRequest(http.MethodGet, "/portfolio/addresses?network=polygon", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var listed map[string][]string
	decodeData(t, rec.Body, &listed)

	if len(listed) != 1 || len(listed["polygon"]) != 1 || listed["polygon"][0] != testutil.BobAddress {
		t.Errorf("unexpected listing %v", listed)
	}
}

func TestPortfolioHandler_RemoveAddress(t *testing.T) {
	r, service, _ := setupPortfolioHandlerTest("ethereum:" + testutil.AliceAddress)

	req := httptest.NewRequest(http.MethodDelete, "/portfolio/addresses/ethereum/"+testutil.AliceAddress, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rec.Code)
	}
	if len(service.ListAddresses("")) != 0 {
		t.Error("expected no tracked addresses")
	}

	// Removing again reports not found
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/portfolio/addresses/ethereum/"+testutil.AliceAddress, nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}
