package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/domain/apperrors"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
	"github.com/bimakw/chain-analytics/internal/domain/repositories"
	"github.com/bimakw/chain-analytics/internal/domain/validation"
	"github.com/bimakw/chain-analytics/internal/infrastructure/etherscan"
	"github.com/bimakw/chain-analytics/internal/infrastructure/metrics"
)

// ChainService provides single-entity lookups: one balance, one address
// history, one transaction. Input is validated before any indexer call.
type ChainService struct {
	repo    repositories.ChainRepository
	metrics *metrics.ServiceMetrics
	logger  *zap.Logger
}

// NewChainService creates a new chain service
func NewChainService(repo repositories.ChainRepository, m *metrics.ServiceMetrics, logger *zap.Logger) *ChainService {
	if m == nil {
		m = metrics.NewServiceMetrics(nil)
	}
	return &ChainService{
		repo:    repo,
		metrics: m,
		logger:  logger.With(zap.String("component", "chain_service")),
	}
}

// ResolveNetwork looks up a supported network or returns a ValidationError
func ResolveNetwork(name string) (entities.Network, error) {
	network, ok := entities.LookupNetwork(name)
	if !ok {
		return entities.Network{}, apperrors.NewValidationError("network", name,
			"unsupported network, expected one of "+strings.Join(entities.SupportedNetworks(), ", "))
	}
	return network, nil
}

func resolveAddress(address, networkName string) (entities.Network, error) {
	network, err := ResolveNetwork(networkName)
	if err != nil {
		return network, err
	}
	if !validation.ValidateAddress(address, network.Name) {
		return network, apperrors.NewValidationError("address", address, "expected 0x followed by 40 hex digits")
	}
	return network, nil
}

// GetBalance returns the latest balance of address
func (s *ChainService) GetBalance(ctx context.Context, address, networkName string) (*entities.Balance, error) {
	network, err := resolveAddress(address, networkName)
	if err != nil {
		return nil, err
	}

	wei, err := s.repo.GetBalance(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	return &entities.Balance{
		Network: network.Name,
		Address: address,
		Wei:     wei,
		Value:   network.ToDecimal(wei),
	}, nil
}

// GetAddressHistory returns the normalized transaction history of address.
// Records that cannot be normalized are skipped and logged. When
// query.Since is set, transactions older than it (or without a timestamp)
// are dropped.
func (s *ChainService) GetAddressHistory(ctx context.Context, address, networkName string, query entities.HistoryQuery) ([]entities.Transaction, error) {
	network, err := resolveAddress(address, networkName)
	if err != nil {
		return nil, err
	}

	raws, err := s.repo.GetAddressHistory(ctx, network, address, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get address history: %w", err)
	}

	txs, failed := etherscan.NormalizeTransactions(raws, network)
	for _, f := range failed {
		s.metrics.NormalizationFailures.Inc()
		s.logger.Warn("Skipping transaction that failed to normalize",
			zap.String("network", network.Name),
			zap.String("address", address),
			zap.Int("index", f.Index),
			zap.String("tx_hash", f.Hash),
			zap.Error(f.Err),
		)
	}

	if query.Since != nil {
		filtered := txs[:0]
		for _, tx := range txs {
			if tx.Timestamp != nil && !tx.Timestamp.Before(*query.Since) {
				filtered = append(filtered, tx)
			}
		}
		txs = filtered
	}

	return txs, nil
}

// GetTransaction returns a transaction by hash, nil when the indexer
// does not know it
func (s *ChainService) GetTransaction(ctx context.Context, hash, networkName string) (*entities.Transaction, error) {
	network, err := ResolveNetwork(networkName)
	if err != nil {
		return nil, err
	}
	if !validation.ValidateTxHash(hash, network.Name) {
		return nil, apperrors.NewValidationError("hash", hash, "expected 0x followed by 64 hex digits")
	}

	raw, err := s.repo.GetTransaction(ctx, network, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	tx, err := etherscan.NormalizeTransaction(*raw, network)
	if err != nil {
		s.metrics.NormalizationFailures.Inc()
		return nil, fmt.Errorf("failed to normalize transaction: %w", err)
	}
	return tx, nil
}
