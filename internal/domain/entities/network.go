package entities

import (
	"math/big"
	"sort"
	"strings"
)

// Network describes an EVM chain reachable through the indexer
type Network struct {
	Name     string `json:"name"`
	ChainID  int64  `json:"chain_id"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// DefaultNetwork is the reference network
const DefaultNetwork = "ethereum"

var networks = map[string]Network{
	"ethereum": {Name: "ethereum", ChainID: 1, Symbol: "ETH", Decimals: 18},
	"polygon":  {Name: "polygon", ChainID: 137, Symbol: "POL", Decimals: 18},
	"bsc":      {Name: "bsc", ChainID: 56, Symbol: "BNB", Decimals: 18},
	"arbitrum": {Name: "arbitrum", ChainID: 42161, Symbol: "ETH", Decimals: 18},
	"optimism": {Name: "optimism", ChainID: 10, Symbol: "ETH", Decimals: 18},
	"base":     {Name: "base", ChainID: 8453, Symbol: "ETH", Decimals: 18},
}

// LookupNetwork finds a supported network by name (case-insensitive)
func LookupNetwork(name string) (Network, bool) {
	n, ok := networks[strings.ToLower(name)]
	return n, ok
}

// SupportedNetworks returns the names of all supported networks, sorted
func SupportedNetworks() []string {
	names := make([]string, 0, len(networks))
	for name := range networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Divisor returns the number of base units in one whole coin
func (n Network) Divisor() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.Decimals)), nil)
}

// ToDecimal converts a base-unit amount to a human-scale value.
// The result is approximate (float64).
func (n Network) ToDecimal(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	q := new(big.Float).Quo(new(big.Float).SetInt(amount), new(big.Float).SetInt(n.Divisor()))
	f, _ := q.Float64()
	return f
}
