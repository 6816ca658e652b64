package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bimakw/chain-analytics/internal/config"
	"github.com/bimakw/chain-analytics/internal/domain/apperrors"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
	"github.com/bimakw/chain-analytics/internal/infrastructure/metrics"
)

// ChainReader is the lookup surface the portfolio needs
type ChainReader interface {
	GetBalance(ctx context.Context, address, network string) (*entities.Balance, error)
	GetAddressHistory(ctx context.Context, address, network string, query entities.HistoryQuery) ([]entities.Transaction, error)
}

// PortfolioService tracks addresses across networks and refreshes a
// summary entry for each of them.
type PortfolioService struct {
	chain   ChainReader
	workers int
	metrics *metrics.ServiceMetrics
	logger  *zap.Logger

	mu        sync.RWMutex
	addresses map[string][]string
	entries   map[entities.PortfolioKey]entities.PortfolioEntry

	now func() time.Time
}

// NewPortfolioService creates a portfolio tracking cfg.Addresses. Items
// are "network:address" or a bare address on cfg.DefaultNetwork; invalid
// items are logged and skipped.
func NewPortfolioService(chain ChainReader, cfg config.PortfolioConfig, m *metrics.ServiceMetrics, logger *zap.Logger) *PortfolioService {
	if m == nil {
		m = metrics.NewServiceMetrics(nil)
	}
	workers := cfg.WorkerCount
	if workers < 1 {
		workers = 1
	}

	s := &PortfolioService{
		chain:     chain,
		workers:   workers,
		metrics:   m,
		logger:    logger.With(zap.String("component", "portfolio")),
		addresses: make(map[string][]string),
		entries:   make(map[entities.PortfolioKey]entities.PortfolioEntry),
		now:       time.Now,
	}

	defaultNetwork := cfg.DefaultNetwork
	if defaultNetwork == "" {
		defaultNetwork = entities.DefaultNetwork
	}
	for _, item := range cfg.Addresses {
		network, address := ParseTrackedAddress(item, defaultNetwork)
		s.AddAddress(address, network)
	}

	return s
}

// ParseTrackedAddress splits "network:address" into its parts. A bare
// address belongs to defaultNetwork.
func ParseTrackedAddress(item, defaultNetwork string) (network, address string) {
	item = strings.TrimSpace(item)
	if i := strings.Index(item, ":"); i >= 0 {
		return strings.TrimSpace(item[:i]), strings.TrimSpace(item[i+1:])
	}
	return defaultNetwork, item
}

// AddAddress starts tracking address on network. It returns false, without
// changing state, when the address is invalid or already tracked.
func (s *PortfolioService) AddAddress(address, network string) bool {
	network = strings.ToLower(network)
	if _, err := resolveAddress(address, network); err != nil {
		s.logger.Warn("Rejected address",
			zap.String("network", network),
			zap.String("address", address),
			zap.Error(err),
		)
		return false
	}
	address = strings.ToLower(address)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tracked := range s.addresses[network] {
		if tracked == address {
			s.logger.Warn("Address already tracked",
				zap.String("network", network),
				zap.String("address", address),
			)
			return false
		}
	}
	s.addresses[network] = append(s.addresses[network], address)

	s.logger.Info("Tracking address",
		zap.String("network", network),
		zap.String("address", address),
	)
	return true
}

// RemoveAddress stops tracking address on network and drops its entry.
// It returns false when the network or address is not tracked.
func (s *PortfolioService) RemoveAddress(address, network string) bool {
	network = strings.ToLower(network)
	address = strings.ToLower(address)

	s.mu.Lock()
	defer s.mu.Unlock()

	tracked, ok := s.addresses[network]
	if !ok {
		s.logger.Warn("Network not tracked", zap.String("network", network))
		return false
	}
	for i, a := range tracked {
		if a != address {
			continue
		}
		remaining := append(append([]string{}, tracked[:i]...), tracked[i+1:]...)
		if len(remaining) == 0 {
			delete(s.addresses, network)
		} else {
			s.addresses[network] = remaining
		}
		delete(s.entries, entities.PortfolioKey{Network: network, Address: address})

		s.logger.Info("Stopped tracking address",
			zap.String("network", network),
			zap.String("address", address),
		)
		return true
	}

	s.logger.Warn("Address not tracked",
		zap.String("network", network),
		zap.String("address", address),
	)
	return false
}

// ListAddresses returns the tracked addresses per network, in insertion
// order. With a network name it returns a single-key map, holding an
// empty list when nothing is tracked there.
func (s *PortfolioService) ListAddresses(network string) map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if network != "" {
		network = strings.ToLower(network)
		return map[string][]string{network: append([]string{}, s.addresses[network]...)}
	}

	out := make(map[string][]string, len(s.addresses))
	for n, addrs := range s.addresses {
		out[n] = append([]string{}, addrs...)
	}
	return out
}

// trackedKeys returns every tracked pair, networks sorted by name
func (s *PortfolioService) trackedKeys() []entities.PortfolioKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	networks := make([]string, 0, len(s.addresses))
	for n := range s.addresses {
		networks = append(networks, n)
	}
	sort.Strings(networks)

	var keys []entities.PortfolioKey
	for _, n := range networks {
		for _, a := range s.addresses[n] {
			keys = append(keys, entities.PortfolioKey{Network: n, Address: a})
		}
	}
	return keys
}

// GetPortfolioSummary refreshes every tracked address concurrently and
// returns one entry per address. A failure on one address is recorded in
// its entry and never stops the others. Addresses not yet started when ctx
// is done get an entry carrying the context error.
func (s *PortfolioService) GetPortfolioSummary(ctx context.Context) map[entities.PortfolioKey]entities.PortfolioEntry {
	keys := s.trackedKeys()
	batchID := uuid.NewString()
	start := time.Now()

	s.logger.Info("Refreshing portfolio",
		zap.String("batch_id", batchID),
		zap.Int("addresses", len(keys)),
		zap.Int("workers", s.workers),
	)

	results := make(map[entities.PortfolioKey]entities.PortfolioEntry, len(keys))
	var resultsMu sync.Mutex
	collect := func(entry entities.PortfolioEntry) {
		resultsMu.Lock()
		results[entry.Key()] = entry
		resultsMu.Unlock()
	}

	// Workers never return errors, so one failure cannot cancel siblings
	var g errgroup.Group
	g.SetLimit(s.workers)
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			collect(s.failedEntry(key, err, batchID))
			continue
		}
		g.Go(func() error {
			collect(s.refreshEntry(ctx, key, batchID))
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	for key, entry := range results {
		if s.isTrackedLocked(key) {
			s.entries[key] = entry
		}
	}
	s.mu.Unlock()

	failed := 0
	for _, entry := range results {
		if entry.Failed() {
			failed++
		}
	}

	s.metrics.PortfolioRefreshes.Inc()
	s.metrics.RefreshLatency.Observe(time.Since(start).Seconds())
	s.logger.Info("Portfolio refreshed",
		zap.String("batch_id", batchID),
		zap.Int("entries", len(results)),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(start)),
	)

	return results
}

func (s *PortfolioService) isTrackedLocked(key entities.PortfolioKey) bool {
	for _, a := range s.addresses[key.Network] {
		if a == key.Address {
			return true
		}
	}
	return false
}

// refreshEntry recomputes the whole entry for one address
func (s *PortfolioService) refreshEntry(ctx context.Context, key entities.PortfolioKey, batchID string) entities.PortfolioEntry {
	if err := ctx.Err(); err != nil {
		return s.failedEntry(key, err, batchID)
	}

	balance, err := s.chain.GetBalance(ctx, key.Address, key.Network)
	if err != nil {
		return s.failedEntry(key, err, batchID)
	}

	history, err := s.chain.GetAddressHistory(ctx, key.Address, key.Network, entities.DefaultHistoryQuery())
	if err != nil {
		return s.failedEntry(key, err, batchID)
	}

	return entities.PortfolioEntry{
		Network:          key.Network,
		Address:          key.Address,
		Balance:          balance.Value,
		TransactionCount: len(history),
		LastUpdated:      s.now(),
	}
}

func (s *PortfolioService) failedEntry(key entities.PortfolioKey, err error, batchID string) entities.PortfolioEntry {
	kind := apperrors.Kind(err)
	s.metrics.PortfolioEntryErrors.WithLabelValues(kind).Inc()
	s.logger.Warn("Failed to refresh portfolio entry",
		zap.String("batch_id", batchID),
		zap.String("network", key.Network),
		zap.String("address", key.Address),
		zap.String("kind", kind),
		zap.Error(err),
	)

	return entities.PortfolioEntry{
		Network:     key.Network,
		Address:     key.Address,
		LastUpdated: s.now(),
		Error:       err.Error(),
	}
}

// GetTransactionHistory returns the normalized history of address.
// Validation and indexer errors are returned to the caller.
func (s *PortfolioService) GetTransactionHistory(ctx context.Context, address, network string, query entities.HistoryQuery) ([]entities.Transaction, error) {
	if _, err := resolveAddress(address, network); err != nil {
		return nil, err
	}
	return s.chain.GetAddressHistory(ctx, address, strings.ToLower(network), query)
}

// Entries returns the entries of the last refresh, sorted by network and
// then address
func (s *PortfolioService) Entries() []entities.PortfolioEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]entities.PortfolioEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Network != entries[j].Network {
			return entries[i].Network < entries[j].Network
		}
		return entries[i].Address < entries[j].Address
	})
	return entries
}
