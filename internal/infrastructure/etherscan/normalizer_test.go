package etherscan

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bimakw/chain-analytics/internal/domain/apperrors"
	"github.com/bimakw/chain-analytics/internal/testutil"
)

func TestNormalizeTransaction_Success(t *testing.T) {
	raw := testutil.CreateRawTransaction()

	tx, err := NormalizeTransaction(raw, testutil.Network("ethereum"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tx.Value != 1.0 {
		t.Errorf("expected value 1.0, got %v", tx.Value)
	}
	if tx.ValueWei.String() != testutil.OneEther {
		t.Errorf("expected wei %s, got %s", testutil.OneEther, tx.ValueWei)
	}
	if tx.GasUsed != 21000 {
		t.Errorf("expected gas used 21000, got %d", tx.GasUsed)
	}
	if tx.GasPrice != 20000000000 {
		t.Errorf("expected gas price 20000000000, got %d", tx.GasPrice)
	}
	if tx.BlockNumber != 19000000 {
		t.Errorf("expected block 19000000, got %d", tx.BlockNumber)
	}
	if tx.Timestamp == nil || !tx.Timestamp.Equal(testutil.BaseTimestamp) {
		t.Errorf("expected timestamp %v, got %v", testutil.BaseTimestamp, tx.Timestamp)
	}
	if tx.Timestamp.Location() != time.UTC {
		t.Errorf("expected UTC timestamp, got %v", tx.Timestamp.Location())
	}
	if tx.Status != "1" || tx.IsError {
		t.Errorf("expected successful status, got %q (isError=%v)", tx.Status, tx.IsError)
	}
	if tx.Network != "ethereum" {
		t.Errorf("expected network ethereum, got %s", tx.Network)
	}
}

func TestNormalizeTransaction_MissingFieldsDefault(t *testing.T) {
	raw := testutil.CreateRawTransaction(
		testutil.WithoutTimestamp(),
		testutil.WithValue(""),
		testutil.WithGas("", ""),
		testutil.WithBlockNumber(""),
		testutil.WithStatus(""),
	)

	tx, err := NormalizeTransaction(raw, testutil.Network("ethereum"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tx.Timestamp != nil {
		t.Errorf("expected nil timestamp, got %v", tx.Timestamp)
	}
	if tx.Value != 0 || tx.GasUsed != 0 || tx.GasPrice != 0 || tx.BlockNumber != 0 {
		t.Errorf("expected zero defaults, got %+v", tx)
	}
	if tx.Status != "" {
		t.Errorf("expected empty status to pass through, got %q", tx.Status)
	}
}

func TestNormalizeTransaction_ZeroTimestamp(t *testing.T) {
	raw := testutil.CreateRawTransaction()
	raw.TimeStamp = "0"

	tx, err := NormalizeTransaction(raw, testutil.Network("ethereum"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.Timestamp != nil {
		t.Errorf("expected nil timestamp for epoch zero, got %v", tx.Timestamp)
	}
}

func TestNormalizeTransaction_StatusVerbatim(t *testing.T) {
	raw := testutil.CreateRawTransaction(testutil.WithStatus("0"))
	raw.IsError = "1"

	tx, err := NormalizeTransaction(raw, testutil.Network("ethereum"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.Status != "0" || !tx.IsError {
		t.Errorf("expected failed status passed through, got %q (isError=%v)", tx.Status, tx.IsError)
	}
}

func TestNormalizeTransaction_LargeValue(t *testing.T) {
	// 1,000,000 ETH does not fit in 64 bits of wei
	raw := testutil.CreateRawTransaction(testutil.WithValue("1000000" + strings.Repeat("0", 18)))

	tx, err := NormalizeTransaction(raw, testutil.Network("ethereum"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.Value != 1e6 {
		t.Errorf("expected 1e6, got %v", tx.Value)
	}
}

func TestNormalizeTransaction_Errors(t *testing.T) {
	tests := []struct {
		name string
		opts []testutil.RawTransactionOption
	}{
		{"missing hash", []testutil.RawTransactionOption{testutil.WithHash("")}},
		{"malformed hash", []testutil.RawTransactionOption{testutil.WithHash("0x1234")}},
		{"negative value", []testutil.RawTransactionOption{testutil.WithValue("-1")}},
		{"non-numeric value", []testutil.RawTransactionOption{testutil.WithValue("1e18")}},
		{"negative gas", []testutil.RawTransactionOption{testutil.WithGas("-21000", "1")}},
		{"hex gas price", []testutil.RawTransactionOption{testutil.WithGas("21000", "0x10")}},
		{"non-numeric block", []testutil.RawTransactionOption{testutil.WithBlockNumber("latest")}},
		{"timestamp beyond int64", []testutil.RawTransactionOption{testutil.WithRawTimestamp("9223372036854775808")}},
		{"timestamp at uint64 max", []testutil.RawTransactionOption{testutil.WithRawTimestamp("18446744073709551615")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := testutil.CreateRawTransaction(tt.opts...)

			tx, err := NormalizeTransaction(raw, testutil.Network("ethereum"))
			if err == nil {
				t.Fatalf("expected error, got %+v", tx)
			}
			var protoErr *apperrors.ProtocolError
			if !errors.As(err, &protoErr) {
				t.Errorf("expected ProtocolError, got %T", err)
			}
		})
	}
}

func TestNormalizeTransactions_ReportsFailures(t *testing.T) {
	raws := testutil.CreateRawHistory(4)
	raws[1].GasUsed = "abc"
	raws[3].Hash = ""

	txs, failed := NormalizeTransactions(raws, testutil.Network("ethereum"))

	if len(txs) != 2 {
		t.Fatalf("expected 2 normalized transactions, got %d", len(txs))
	}
	if len(failed) != 2 || failed[0].Index != 1 || failed[1].Index != 3 {
		t.Errorf("expected failures at indices 1 and 3, got %+v", failed)
	}
	if txs[0].Hash != raws[0].Hash || txs[1].Hash != raws[2].Hash {
		t.Error("expected input order to be preserved")
	}
}
