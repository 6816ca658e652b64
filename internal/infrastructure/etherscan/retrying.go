package etherscan

import (
	"context"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/config"
	"github.com/bimakw/chain-analytics/internal/domain/apperrors"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
	"github.com/bimakw/chain-analytics/internal/domain/repositories"
	"github.com/bimakw/chain-analytics/internal/infrastructure/metrics"
	"github.com/bimakw/chain-analytics/internal/infrastructure/retry"
)

// Operation names, used for retry policies and metric labels
const (
	OpBalance     = "balance"
	OpHistory     = "history"
	OpTransaction = "transaction"
)

// RetryPolicies holds one retry policy per operation. Operations without
// their own policy use Default.
type RetryPolicies struct {
	Default      retry.Policy
	PerOperation map[string]retry.Policy
}

// For returns the policy for op
func (p RetryPolicies) For(op string) retry.Policy {
	if policy, ok := p.PerOperation[op]; ok {
		return policy
	}
	return p.Default
}

// PoliciesFromConfig builds retry policies from indexer settings.
// History pulls are larger, so they back off twice as long at the cap.
func PoliciesFromConfig(cfg config.EtherscanConfig) RetryPolicies {
	base := retry.Policy{
		MaxAttempts: cfg.MaxRetries + 1,
		BaseDelay:   cfg.RetryDelay,
		MaxDelay:    cfg.MaxRetryDelay,
		Jitter:      cfg.RetryJitter,
	}
	history := base
	history.MaxDelay = 2 * cfg.MaxRetryDelay

	return RetryPolicies{
		Default: base,
		PerOperation: map[string]retry.Policy{
			OpBalance:     base,
			OpHistory:     history,
			OpTransaction: base,
		},
	}
}

// RetryingRepository retries transient failures of another ChainRepository.
// Connection failures and indexer rate-limit rejections are retried,
// everything else is returned at once.
type RetryingRepository struct {
	inner    repositories.ChainRepository
	policies RetryPolicies
	metrics  *metrics.GatewayMetrics
	logger   *zap.Logger
}

// NewRetryingRepository wraps inner with bounded retries
func NewRetryingRepository(inner repositories.ChainRepository, policies RetryPolicies, m *metrics.GatewayMetrics, logger *zap.Logger) *RetryingRepository {
	if m == nil {
		m = metrics.NewGatewayMetrics(nil)
	}
	return &RetryingRepository{
		inner:    inner,
		policies: policies,
		metrics:  m,
		logger:   logger.With(zap.String("component", "retry")),
	}
}

func (r *RetryingRepository) policy(op string, network entities.Network) retry.Policy {
	p := r.policies.For(op)
	p.Classify = classifyRetry
	p.OnRetry = func(attempt int, wait time.Duration, err error) {
		r.metrics.Retries.WithLabelValues(op).Inc()
		r.logger.Warn("Retrying indexer call",
			zap.String("operation", op),
			zap.String("network", network.Name),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.String("kind", apperrors.Kind(err)),
			zap.Error(err),
		)
	}
	return p
}

func classifyRetry(err error) retry.Class {
	if apperrors.IsRetryable(err) {
		return retry.Retryable
	}
	return retry.Fatal
}

// GetBalance implements repositories.ChainRepository
func (r *RetryingRepository) GetBalance(ctx context.Context, network entities.Network, address string) (*big.Int, error) {
	var balance *big.Int
	err := retry.Do(ctx, r.policy(OpBalance, network), func(ctx context.Context) error {
		var err error
		balance, err = r.inner.GetBalance(ctx, network, address)
		return err
	})
	if err != nil {
		return nil, err
	}
	return balance, nil
}

// GetAddressHistory implements repositories.ChainRepository
func (r *RetryingRepository) GetAddressHistory(ctx context.Context, network entities.Network, address string, query entities.HistoryQuery) ([]entities.RawTransaction, error) {
	var txs []entities.RawTransaction
	err := retry.Do(ctx, r.policy(OpHistory, network), func(ctx context.Context) error {
		var err error
		txs, err = r.inner.GetAddressHistory(ctx, network, address, query)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// GetTransaction implements repositories.ChainRepository
func (r *RetryingRepository) GetTransaction(ctx context.Context, network entities.Network, hash string) (*entities.RawTransaction, error) {
	var tx *entities.RawTransaction
	err := retry.Do(ctx, r.policy(OpTransaction, network), func(ctx context.Context) error {
		var err error
		tx, err = r.inner.GetTransaction(ctx, network, hash)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}
