package testutil

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bimakw/chain-analytics/internal/domain/entities"
)

// Common test addresses
const (
	AliceAddress   = "0x1111111111111111111111111111111111111111"
	BobAddress     = "0x2222222222222222222222222222222222222222"
	CharlieAddress = "0x3333333333333333333333333333333333333333"
	VitalikAddress = "0xd8da6bf26964af9d7eed9e03e53415d37aa96045"
)

// OneEther is 10^18 wei as a decimal string
const OneEther = "1000000000000000000"

// BaseTimestamp is the timestamp of the default test transaction
var BaseTimestamp = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// Network returns a supported network by name and panics on unknown names
func Network(name string) entities.Network {
	n, ok := entities.LookupNetwork(name)
	if !ok {
		panic(fmt.Sprintf("unknown test network %q", name))
	}
	return n
}

// CreateRawTransaction creates a raw indexer record with default values
func CreateRawTransaction(opts ...RawTransactionOption) entities.RawTransaction {
	tx := entities.RawTransaction{
		Hash:          GenerateTxHash(0),
		From:          AliceAddress,
		To:            BobAddress,
		Value:         OneEther,
		TimeStamp:     strconv.FormatInt(BaseTimestamp.Unix(), 10),
		ReceiptStatus: "1",
		IsError:       "0",
		GasUsed:       "21000",
		GasPrice:      "20000000000",
		BlockNumber:   "19000000",
	}

	for _, opt := range opts {
		opt(&tx)
	}

	return tx
}

type RawTransactionOption func(*entities.RawTransaction)

func WithHash(hash string) RawTransactionOption {
	return func(tx *entities.RawTransaction) {
		tx.Hash = hash
	}
}

func WithFrom(addr string) RawTransactionOption {
	return func(tx *entities.RawTransaction) {
		tx.From = addr
	}
}

func WithTo(addr string) RawTransactionOption {
	return func(tx *entities.RawTransaction) {
		tx.To = addr
	}
}

func WithValue(wei string) RawTransactionOption {
	return func(tx *entities.RawTransaction) {
		tx.Value = wei
	}
}

func WithTimestamp(ts time.Time) RawTransactionOption {
	return func(tx *entities.RawTransaction) {
		tx.TimeStamp = strconv.FormatInt(ts.Unix(), 10)
	}
}

// WithRawTimestamp sets the timestamp field verbatim
func WithRawTimestamp(raw string) RawTransactionOption {
	return func(tx *entities.RawTransaction) {
		tx.TimeStamp = raw
	}
}

// WithoutTimestamp drops the timestamp field
func WithoutTimestamp() RawTransactionOption {
	return func(tx *entities.RawTransaction) {
		tx.TimeStamp = ""
	}
}

func WithGas(used, price string) RawTransactionOption {
	return func(tx *entities.RawTransaction) {
		tx.GasUsed = used
		tx.GasPrice = price
	}
}

func WithBlockNumber(num string) RawTransactionOption {
	return func(tx *entities.RawTransaction) {
		tx.BlockNumber = num
	}
}

func WithStatus(status string) RawTransactionOption {
	return func(tx *entities.RawTransaction) {
		tx.ReceiptStatus = status
	}
}

// CreateRawHistory creates count raw transactions, one per day from
// BaseTimestamp, with distinct hashes and block numbers
func CreateRawHistory(count int, opts ...RawTransactionOption) []entities.RawTransaction {
	txs := make([]entities.RawTransaction, count)
	for i := 0; i < count; i++ {
		tx := CreateRawTransaction(opts...)
		tx.Hash = GenerateTxHash(i)
		tx.BlockNumber = strconv.Itoa(19000000 + i*7200)
		tx.TimeStamp = strconv.FormatInt(BaseTimestamp.AddDate(0, 0, i).Unix(), 10)
		txs[i] = tx
	}
	return txs
}

// GenerateTxHash returns a well-formed transaction hash unique to index
func GenerateTxHash(index int) string {
	return fmt.Sprintf("0x%064x", index+1)
}

// PointerTo returns a pointer to the given value
func PointerTo[T any](v T) *T {
	return &v
}
