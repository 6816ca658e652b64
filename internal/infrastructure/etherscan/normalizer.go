package etherscan

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/bimakw/chain-analytics/internal/domain/apperrors"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
	"github.com/bimakw/chain-analytics/internal/domain/validation"
)

// NormalizeFailure records a raw transaction that could not be normalized
type NormalizeFailure struct {
	Index int
	Hash  string
	Err   error
}

// NormalizeTransaction maps one raw indexer record into a Transaction.
// Only the hash is mandatory; other fields default to zero or empty.
// A field that is present but not a non-negative integer is an error.
func NormalizeTransaction(raw entities.RawTransaction, network entities.Network) (*entities.Transaction, error) {
	if raw.Hash == "" {
		return nil, normalizeError("hash", raw.Hash, "missing", nil)
	}
	if !validation.ValidateTxHash(raw.Hash, network.Name) {
		return nil, normalizeError("hash", raw.Hash, "malformed", nil)
	}

	tx := &entities.Transaction{
		Network: network.Name,
		Hash:    raw.Hash,
		From:    raw.From,
		To:      raw.To,
		Status:  raw.ReceiptStatus,
		IsError: raw.IsError == "1",
	}

	wei, err := parseAmount("value", raw.Value)
	if err != nil {
		return nil, err
	}
	tx.ValueWei = wei
	tx.Value = network.ToDecimal(wei)

	if tx.GasUsed, err = parseUint("gasUsed", raw.GasUsed); err != nil {
		return nil, err
	}
	if tx.GasPrice, err = parseUint("gasPrice", raw.GasPrice); err != nil {
		return nil, err
	}
	if tx.BlockNumber, err = parseUint("blockNumber", raw.BlockNumber); err != nil {
		return nil, err
	}

	ts, err := parseUint("timeStamp", raw.TimeStamp)
	if err != nil {
		return nil, err
	}
	if ts > math.MaxInt64 {
		return nil, normalizeError("timeStamp", raw.TimeStamp, "out of range", nil)
	}
	if ts > 0 {
		t := time.Unix(int64(ts), 0).UTC()
		tx.Timestamp = &t
	}

	return tx, nil
}

// NormalizeTransactions normalizes a batch. Records that fail are left out
// of the result and reported by input index.
func NormalizeTransactions(raws []entities.RawTransaction, network entities.Network) ([]entities.Transaction, []NormalizeFailure) {
	txs := make([]entities.Transaction, 0, len(raws))
	var failed []NormalizeFailure

	for i, raw := range raws {
		tx, err := NormalizeTransaction(raw, network)
		if err != nil {
			failed = append(failed, NormalizeFailure{Index: i, Hash: raw.Hash, Err: err})
			continue
		}
		txs = append(txs, *tx)
	}
	return txs, failed
}

func parseUint(field, s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, normalizeError(field, s, "not a non-negative integer", err)
	}
	return n, nil
}

// parseAmount parses a base-unit amount, which may exceed 64 bits
func parseAmount(field, s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, normalizeError(field, s, "not a non-negative integer", nil)
	}
	return n, nil
}

func normalizeError(field, value, reason string, err error) error {
	return &apperrors.ProtocolError{
		Op:     "normalize",
		Detail: fmt.Sprintf("%s %q: %s", field, value, reason),
		Err:    err,
	}
}
