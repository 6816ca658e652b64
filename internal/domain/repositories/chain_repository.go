package repositories

import (
	"context"
	"math/big"

	"github.com/bimakw/chain-analytics/internal/domain/entities"
)

// ChainRepository defines the interface for on-chain data lookups.
// Implementations return apperrors types for transport, indexer and
// protocol failures.
type ChainRepository interface {
	// GetBalance returns the latest balance of an address in base units
	GetBalance(ctx context.Context, network entities.Network, address string) (*big.Int, error)

	// GetAddressHistory returns the raw transaction list of an address.
	// An address without transactions yields an empty slice, not an error.
	GetAddressHistory(ctx context.Context, network entities.Network, address string, query entities.HistoryQuery) ([]entities.RawTransaction, error)

	// GetTransaction returns a raw transaction by hash, nil when unknown
	GetTransaction(ctx context.Context, network entities.Network, hash string) (*entities.RawTransaction, error)
}
