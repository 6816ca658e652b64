package entities

import (
	"time"
)

// PortfolioKey identifies a tracked address on a network
type PortfolioKey struct {
	Network string `json:"network"`
	Address string `json:"address"`
}

// PortfolioEntry is the latest refresh result for one tracked address.
// A failed refresh leaves Balance and TransactionCount at zero and sets Error.
type PortfolioEntry struct {
	Network          string    `json:"network"`
	Address          string    `json:"address"`
	Balance          float64   `json:"balance"`
	TransactionCount int       `json:"tx_count"`
	LastUpdated      time.Time `json:"last_updated"`
	Error            string    `json:"error,omitempty"`
}

// Key returns the entry's portfolio key
func (e PortfolioEntry) Key() PortfolioKey {
	return PortfolioKey{Network: e.Network, Address: e.Address}
}

// Failed reports whether the last refresh of this entry failed
func (e PortfolioEntry) Failed() bool {
	return e.Error != ""
}
