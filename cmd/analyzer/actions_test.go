package main

import (
	"bytes"
	"context"
	"errors"
	"math"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/application/services"
	"github.com/bimakw/chain-analytics/internal/config"
	"github.com/bimakw/chain-analytics/internal/domain/apperrors"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
	"github.com/bimakw/chain-analytics/internal/testutil"
)

func setupAnalyzerTest(tracked ...string) (*analyzer, *testutil.MockChainRepository, *bytes.Buffer) {
	repo := testutil.NewMockChainRepository()
	logger := zap.NewNop()

	chain := services.NewChainService(repo, nil, logger)
	out := &bytes.Buffer{}
	a := &analyzer{
		chain: chain,
		portfolio: services.NewPortfolioService(chain, config.PortfolioConfig{
			WorkerCount:    2,
			DefaultNetwork: "ethereum",
			Addresses:      tracked,
		}, nil, logger),
		anomaly: services.NewAnomalyService(config.AnomalyConfig{
			Contamination: 0.05,
			Trees:         100,
			SampleSize:    256,
			Seed:          42,
		}, nil, logger),
		out: out,
	}
	return a, repo, out
}

func TestAnalyzer_AnalyzeTransaction(t *testing.T) {
	a, repo, out := setupAnalyzerTest()
	hash := testutil.GenerateTxHash(3)
	repo.AddTransaction("ethereum", testutil.CreateRawTransaction(testutil.WithHash(hash)))

	err := a.run(context.Background(), "analyze_tx", request{Network: "ethereum", Hash: hash})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Value:     1 ETH")
	assert.Contains(t, out.String(), "Block:     19000000")
	assert.Contains(t, out.String(), "Timestamp: 2024-01-15T10:30:00Z")
}

func TestAnalyzer_AnalyzeTransaction_NotFound(t *testing.T) {
	a, _, out := setupAnalyzerTest()

	err := a.run(context.Background(), "analyze_tx", request{Network: "ethereum", Hash: testutil.GenerateTxHash(1)})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Transaction not found")
}

func TestAnalyzer_ValidationAborts(t *testing.T) {
	tests := []struct {
		name   string
		action string
		req    request
	}{
		{"missing hash", "analyze_tx", request{Network: "ethereum"}},
		{"bad hash", "analyze_tx", request{Network: "ethereum", Hash: "0x12"}},
		{"missing address", "analyze_address", request{Network: "ethereum"}},
		{"bad address", "analyze_address", request{Network: "ethereum", Address: "0x123"}},
		{"unknown network", "volume_data", request{Network: "bitcoin", Address: testutil.AliceAddress}},
		{"empty portfolio", "track_portfolio", request{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, repo, _ := setupAnalyzerTest()

			err := a.run(context.Background(), tt.action, tt.req)

			var validationErr *apperrors.ValidationError
			assert.ErrorAs(t, err, &validationErr)
			assert.Empty(t, repo.Calls)
		})
	}
}

func TestAnalyzer_AnalyzeAddress(t *testing.T) {
	a, repo, out := setupAnalyzerTest()
	wei, _ := new(big.Int).SetString("2000000000000000000", 10)
	repo.SetBalance("polygon", testutil.AliceAddress, wei)
	repo.AddHistory("polygon", testutil.AliceAddress, testutil.CreateRawHistory(7)...)

	err := a.run(context.Background(), "analyze_address", request{Network: "polygon", Address: testutil.AliceAddress})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Balance: 2 POL")
	assert.Contains(t, out.String(), "Transactions: 7")
	assert.Equal(t, recentTransactions, strings.Count(out.String(), "  - "))
}

func TestAnalyzer_AnalyzeAddress_GatewayErrorAborts(t *testing.T) {
	a, repo, _ := setupAnalyzerTest()
	repo.GetBalanceFunc = func(ctx context.Context, network entities.Network, address string) (*big.Int, error) {
		return nil, &apperrors.APIError{Op: "balance", Message: "NOTOK", Detail: "Invalid API Key"}
	}

	err := a.run(context.Background(), "analyze_address", request{Network: "ethereum", Address: testutil.AliceAddress})

	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "NOTOK", apiErr.Message)
}

func TestAnalyzer_TrackPortfolio_PrintsFailuresPerEntry(t *testing.T) {
	a, repo, out := setupAnalyzerTest(testutil.AliceAddress, "polygon:"+testutil.BobAddress)
	repo.GetBalanceFunc = func(ctx context.Context, network entities.Network, address string) (*big.Int, error) {
		if network.Name == "polygon" {
			return nil, &apperrors.ConnectionError{Op: "balance", Err: errors.New("connection refused")}
		}
		return big.NewInt(0), nil
	}

	err := a.run(context.Background(), "track_portfolio", request{})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "ethereum "+testutil.AliceAddress)
	assert.Contains(t, out.String(), "Error: ")
	assert.Contains(t, out.String(), "connection refused")
	assert.Contains(t, out.String(), "ETH: 0")
}

func TestAnalyzer_DetectAnomalies(t *testing.T) {
	a, repo, out := setupAnalyzerTest()
	history := testutil.CreateRawHistory(20)
	history[4].Value = "1000000000000000000000"
	repo.AddHistory("ethereum", testutil.AliceAddress, history...)

	err := a.run(context.Background(), "detect_anomalies", request{Network: "ethereum", Address: testutil.AliceAddress})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Analyzed 20 transactions")
	assert.Contains(t, out.String(), "#4 "+testutil.GenerateTxHash(4))
}

func TestAnalyzer_VolumeData(t *testing.T) {
	a, repo, out := setupAnalyzerTest()
	repo.AddHistory("ethereum", testutil.AliceAddress, testutil.CreateRawHistory(3)...)

	err := a.run(context.Background(), "volume_data", request{Network: "ethereum", Address: testutil.AliceAddress})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "day,value,count", lines[0])
	assert.Equal(t, "2024-01-15,1,1", lines[1])
}

func TestAnalyzer_UnknownAction(t *testing.T) {
	a, _, _ := setupAnalyzerTest()
	assert.Error(t, a.run(context.Background(), "visualize", request{}))
}

func TestContaminationOverride(t *testing.T) {
	override, err := contaminationOverride(0, false)
	require.NoError(t, err)
	assert.Nil(t, override, "unset flag keeps the configured fraction")

	override, err = contaminationOverride(0.05, true)
	require.NoError(t, err)
	require.NotNil(t, override)
	assert.Equal(t, 0.05, *override)

	for _, c := range []float64{0, -0.1, 0.9, math.NaN(), math.Inf(1)} {
		_, err := contaminationOverride(c, true)
		var valErr *apperrors.ValidationError
		assert.True(t, errors.As(err, &valErr), "contamination %v should be rejected", c)
	}
}
