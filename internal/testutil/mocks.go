package testutil

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"

	"github.com/bimakw/chain-analytics/internal/domain/entities"
)

// MockChainRepository is a mock implementation of ChainRepository
type MockChainRepository struct {
	mu           sync.RWMutex
	balances     map[string]*big.Int
	histories    map[string][]entities.RawTransaction
	transactions map[string]*entities.RawTransaction

	// Function hooks for custom behavior
	GetBalanceFunc        func(ctx context.Context, network entities.Network, address string) (*big.Int, error)
	GetAddressHistoryFunc func(ctx context.Context, network entities.Network, address string, query entities.HistoryQuery) ([]entities.RawTransaction, error)
	GetTransactionFunc    func(ctx context.Context, network entities.Network, hash string) (*entities.RawTransaction, error)

	// Call tracking
	Calls []MockCall
}

type MockCall struct {
	Method string
	Args   []interface{}
}

func NewMockChainRepository() *MockChainRepository {
	return &MockChainRepository{
		balances:     make(map[string]*big.Int),
		histories:    make(map[string][]entities.RawTransaction),
		transactions: make(map[string]*entities.RawTransaction),
		Calls:        make([]MockCall, 0),
	}
}

func key(network, value string) string {
	return strings.ToLower(network) + ":" + strings.ToLower(value)
}

func (m *MockChainRepository) record(method string, args ...interface{}) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
	m.mu.Unlock()
}

func (m *MockChainRepository) GetBalance(ctx context.Context, network entities.Network, address string) (*big.Int, error) {
	m.record("GetBalance", network.Name, address)

	if m.GetBalanceFunc != nil {
		return m.GetBalanceFunc(ctx, network, address)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if b, ok := m.balances[key(network.Name, address)]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (m *MockChainRepository) GetAddressHistory(ctx context.Context, network entities.Network, address string, query entities.HistoryQuery) ([]entities.RawTransaction, error) {
	m.record("GetAddressHistory", network.Name, address, query)

	if m.GetAddressHistoryFunc != nil {
		return m.GetAddressHistoryFunc(ctx, network, address, query)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.histories[key(network.Name, address)]
	result := make([]entities.RawTransaction, len(history))
	copy(result, history)
	return result, nil
}

func (m *MockChainRepository) GetTransaction(ctx context.Context, network entities.Network, hash string) (*entities.RawTransaction, error) {
	m.record("GetTransaction", network.Name, hash)

	if m.GetTransactionFunc != nil {
		return m.GetTransactionFunc(ctx, network, hash)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if tx, ok := m.transactions[key(network.Name, hash)]; ok {
		copied := *tx
		return &copied, nil
	}
	return nil, nil
}

// SetBalance sets the balance returned for an address, in base units
func (m *MockChainRepository) SetBalance(network, address string, wei *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[key(network, address)] = new(big.Int).Set(wei)
}

// AddHistory appends raw transactions to an address history
func (m *MockChainRepository) AddHistory(network, address string, txs ...entities.RawTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(network, address)
	m.histories[k] = append(m.histories[k], txs...)
}

// AddTransaction makes a transaction retrievable by hash
func (m *MockChainRepository) AddTransaction(network string, tx entities.RawTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[key(network, tx.Hash)] = &tx
}

// CallCount returns how many times method was called
func (m *MockChainRepository) CallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, c := range m.Calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

func (m *MockChainRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances = make(map[string]*big.Int)
	m.histories = make(map[string][]entities.RawTransaction)
	m.transactions = make(map[string]*entities.RawTransaction)
	m.Calls = make([]MockCall, 0)
}

// MockHealthChecker is a mock implementation of HealthChecker
type MockHealthChecker struct {
	mu sync.RWMutex

	Healthy bool
	Error   error
	Calls   []MockCall
}

func NewMockHealthChecker(healthy bool) *MockHealthChecker {
	var err error
	if !healthy {
		err = errors.New("health check failed")
	}
	return &MockHealthChecker{
		Healthy: healthy,
		Error:   err,
		Calls:   make([]MockCall, 0),
	}
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: "HealthCheck", Args: nil})
	return m.Error
}

func (m *MockHealthChecker) SetHealthy(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Healthy = healthy
	if healthy {
		m.Error = nil
	} else {
		m.Error = errors.New("health check failed")
	}
}
