package testutil

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/bimakw/chain-analytics/internal/domain/entities"
	"github.com/bimakw/chain-analytics/internal/domain/validation"
)

func TestMockChainRepository_Balance(t *testing.T) {
	repo := NewMockChainRepository()
	eth := Network("ethereum")
	ctx := context.Background()

	repo.SetBalance("ethereum", AliceAddress, big.NewInt(42))

	got, err := repo.GetBalance(ctx, eth, AliceAddress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Int64() != 42 {
		t.Errorf("expected 42, got %s", got)
	}

	// Unknown addresses have a zero balance
	got, err = repo.GetBalance(ctx, eth, BobAddress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Sign() != 0 {
		t.Errorf("expected zero balance, got %s", got)
	}

	// Balances are per network
	got, _ = repo.GetBalance(ctx, Network("polygon"), AliceAddress)
	if got.Sign() != 0 {
		t.Errorf("expected zero balance on polygon, got %s", got)
	}

	if repo.CallCount("GetBalance") != 3 {
		t.Errorf("expected 3 GetBalance calls, got %d", repo.CallCount("GetBalance"))
	}
}

func TestMockChainRepository_History(t *testing.T) {
	repo := NewMockChainRepository()
	repo.AddHistory("ethereum", AliceAddress, CreateRawHistory(3)...)

	txs, err := repo.GetAddressHistory(context.Background(), Network("ethereum"), AliceAddress, entities.DefaultHistoryQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txs))
	}

	// Returned slice is a copy
	txs[0].Hash = "mutated"
	again, _ := repo.GetAddressHistory(context.Background(), Network("ethereum"), AliceAddress, entities.DefaultHistoryQuery())
	if again[0].Hash == "mutated" {
		t.Error("expected mock to return a copy of the history")
	}
}

func TestMockChainRepository_Transaction(t *testing.T) {
	repo := NewMockChainRepository()
	tx := CreateRawTransaction()
	repo.AddTransaction("ethereum", tx)

	got, err := repo.GetTransaction(context.Background(), Network("ethereum"), tx.Hash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Hash != tx.Hash {
		t.Fatalf("expected transaction %s, got %+v", tx.Hash, got)
	}

	missing, err := repo.GetTransaction(context.Background(), Network("ethereum"), GenerateTxHash(99))
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for unknown hash, got %+v, %v", missing, err)
	}
}

func TestMockChainRepository_FuncHook(t *testing.T) {
	repo := NewMockChainRepository()
	expectedErr := errors.New("boom")
	repo.GetBalanceFunc = func(ctx context.Context, network entities.Network, address string) (*big.Int, error) {
		return nil, expectedErr
	}

	_, err := repo.GetBalance(context.Background(), Network("ethereum"), AliceAddress)
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected hook error, got %v", err)
	}

	repo.Reset()
	if len(repo.Calls) != 0 {
		t.Errorf("expected calls to be reset, got %d", len(repo.Calls))
	}
}

func TestMockHealthChecker(t *testing.T) {
	checker := NewMockHealthChecker(true)
	if err := checker.HealthCheck(context.Background()); err != nil {
		t.Errorf("expected healthy, got %v", err)
	}

	checker.SetHealthy(false)
	if err := checker.HealthCheck(context.Background()); err == nil {
		t.Error("expected error when unhealthy")
	}

	if len(checker.Calls) != 2 {
		t.Errorf("expected 2 calls, got %d", len(checker.Calls))
	}
}

func TestFixtures_AreWellFormed(t *testing.T) {
	for _, addr := range []string{AliceAddress, BobAddress, CharlieAddress, VitalikAddress} {
		if !validation.ValidateAddress(addr, "ethereum") {
			t.Errorf("fixture address %s is not valid", addr)
		}
	}
	for i := 0; i < 5; i++ {
		if hash := GenerateTxHash(i); !validation.ValidateTxHash(hash, "ethereum") {
			t.Errorf("generated hash %s is not valid", hash)
		}
	}
}
