// Package validation gates every address and hash before it reaches the indexer.
package validation

import (
	"regexp"

	"github.com/bimakw/chain-analytics/internal/domain/entities"
)

var (
	evmAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	evmTxHashPattern  = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
)

// ValidateAddress reports whether address is well-formed on network.
// Malformed input and unknown networks yield false.
func ValidateAddress(address, network string) bool {
	if _, ok := entities.LookupNetwork(network); !ok {
		return false
	}
	// Every supported network uses the EVM address format
	return evmAddressPattern.MatchString(address)
}

// ValidateTxHash reports whether hash is a well-formed transaction hash on network
func ValidateTxHash(hash, network string) bool {
	if _, ok := entities.LookupNetwork(network); !ok {
		return false
	}
	return evmTxHashPattern.MatchString(hash)
}
