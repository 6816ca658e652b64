// Package gateway assembles the indexer access stack: the HTTP client,
// bounded retries and the optional Redis response cache.
package gateway

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/config"
	"github.com/bimakw/chain-analytics/internal/domain/repositories"
	"github.com/bimakw/chain-analytics/internal/infrastructure/cache"
	"github.com/bimakw/chain-analytics/internal/infrastructure/etherscan"
	"github.com/bimakw/chain-analytics/internal/infrastructure/metrics"
)

// Gateway is the assembled indexer access stack
type Gateway struct {
	// Repository is the outermost layer, the one services should use
	Repository repositories.ChainRepository

	// Client talks to the indexer directly and doubles as its health check
	Client *etherscan.Client

	// Cache is nil when caching is disabled or Redis is unreachable
	Cache *cache.RedisCache
}

// New builds the stack described by cfg. An unreachable Redis is logged
// and the gateway runs uncached.
func New(cfg *config.Config, reg prometheus.Registerer, logger *zap.Logger) *Gateway {
	m := metrics.NewGatewayMetrics(reg)

	client := etherscan.NewClient(cfg.Etherscan, m, logger)
	g := &Gateway{Client: client}

	g.Repository = etherscan.NewRetryingRepository(client, etherscan.PoliciesFromConfig(cfg.Etherscan), m, logger)

	if !cfg.Cache.Enabled {
		logger.Info("Response cache disabled")
		return g
	}

	redisCache, err := cache.NewRedisCache(cfg.Redis, cfg.Cache.TTL, logger)
	if err != nil {
		logger.Warn("Failed to connect to Redis, running without cache", zap.Error(err))
		return g
	}

	g.Cache = redisCache
	g.Repository = cache.NewChainCache(g.Repository, redisCache, cfg.Cache.TTL, m, logger)
	return g
}

// HealthCheck reports whether the indexer answers
func (g *Gateway) HealthCheck(ctx context.Context) error {
	return g.Client.HealthCheck(ctx)
}

// Close releases the Redis connection, if any
func (g *Gateway) Close() error {
	if g.Cache == nil {
		return nil
	}
	return g.Cache.Close()
}
