package cache

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/domain/entities"
	"github.com/bimakw/chain-analytics/internal/domain/repositories"
	"github.com/bimakw/chain-analytics/internal/infrastructure/metrics"
)

// Store is the subset of RedisCache the chain cache needs
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) error
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ChainCache caches raw indexer payloads in front of a ChainRepository.
// Only successful lookups are stored. Store failures are logged and the
// call falls through to the wrapped repository.
type ChainCache struct {
	inner   repositories.ChainRepository
	store   Store
	ttl     time.Duration
	metrics *metrics.GatewayMetrics
	logger  *zap.Logger
}

// NewChainCache wraps inner with a raw payload cache
func NewChainCache(inner repositories.ChainRepository, store Store, ttl time.Duration, m *metrics.GatewayMetrics, logger *zap.Logger) *ChainCache {
	if m == nil {
		m = metrics.NewGatewayMetrics(nil)
	}
	return &ChainCache{
		inner:   inner,
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  logger.With(zap.String("component", "chain_cache")),
	}
}

func balanceKey(network, address string) string {
	return fmt.Sprintf("chain:%s:balance:%s", network, strings.ToLower(address))
}

func historyKey(network, address string, q entities.HistoryQuery) string {
	return fmt.Sprintf("chain:%s:txlist:%s:%d:%d:%s:%d:%d",
		network, strings.ToLower(address), q.StartBlock, q.EndBlock, q.Sort, q.Page, q.Offset)
}

func transactionKey(network, hash string) string {
	return fmt.Sprintf("chain:%s:tx:%s", network, strings.ToLower(hash))
}

// lookup reads key into dest and reports whether it was a hit
func (c *ChainCache) lookup(ctx context.Context, op, key string, dest interface{}) bool {
	err := c.store.Get(ctx, key, dest)
	switch {
	case err == nil:
		c.metrics.CacheHit.WithLabelValues(op, "hit").Inc()
		c.logger.Debug("Cache hit", zap.String("key", key))
		return true
	case errors.Is(err, ErrCacheMiss):
		c.metrics.CacheHit.WithLabelValues(op, "miss").Inc()
	default:
		c.metrics.CacheHit.WithLabelValues(op, "error").Inc()
		c.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}
	return false
}

func (c *ChainCache) save(ctx context.Context, key string, value interface{}) {
	if err := c.store.SetWithTTL(ctx, key, value, c.ttl); err != nil {
		c.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// GetBalance implements repositories.ChainRepository
func (c *ChainCache) GetBalance(ctx context.Context, network entities.Network, address string) (*big.Int, error) {
	key := balanceKey(network.Name, address)

	var cached string
	if c.lookup(ctx, "balance", key, &cached) {
		if balance, ok := new(big.Int).SetString(cached, 10); ok {
			return balance, nil
		}
	}

	balance, err := c.inner.GetBalance(ctx, network, address)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, balance.String())
	return balance, nil
}

// GetAddressHistory implements repositories.ChainRepository
func (c *ChainCache) GetAddressHistory(ctx context.Context, network entities.Network, address string, query entities.HistoryQuery) ([]entities.RawTransaction, error) {
	key := historyKey(network.Name, address, query)

	var cached []entities.RawTransaction
	if c.lookup(ctx, "history", key, &cached) && cached != nil {
		return cached, nil
	}

	txs, err := c.inner.GetAddressHistory(ctx, network, address, query)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, txs)
	return txs, nil
}

// GetTransaction implements repositories.ChainRepository.
// Unknown hashes are not cached, they may still be pending.
func (c *ChainCache) GetTransaction(ctx context.Context, network entities.Network, hash string) (*entities.RawTransaction, error) {
	key := transactionKey(network.Name, hash)

	var cached entities.RawTransaction
	if c.lookup(ctx, "transaction", key, &cached) && cached.Hash != "" {
		return &cached, nil
	}

	tx, err := c.inner.GetTransaction(ctx, network, hash)
	if err != nil || tx == nil {
		return tx, err
	}
	// Pending transactions change once mined
	if tx.BlockNumber != "" {
		c.save(ctx, key, tx)
	}
	return tx, nil
}
