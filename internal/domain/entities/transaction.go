package entities

import (
	"math/big"
	"time"
)

// RawTransaction is a single indexer transaction record in wire form.
// Numeric fields are base-10 strings; empty means the field was absent.
type RawTransaction struct {
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	TimeStamp       string `json:"timeStamp"`
	ReceiptStatus   string `json:"txreceipt_status"`
	IsError         string `json:"isError"`
	GasUsed         string `json:"gasUsed"`
	GasPrice        string `json:"gasPrice"`
	BlockNumber     string `json:"blockNumber"`
	Nonce           string `json:"nonce"`
	Input           string `json:"input"`
	ContractAddress string `json:"contractAddress"`
}

// Transaction is the canonical, network-independent transaction
type Transaction struct {
	Network     string     `json:"network"`
	Hash        string     `json:"hash"`
	From        string     `json:"from"`
	To          string     `json:"to"`
	Value       float64    `json:"value"`
	ValueWei    *big.Int   `json:"-"`
	Timestamp   *time.Time `json:"timestamp"`
	Status      string     `json:"status"`
	IsError     bool       `json:"is_error"`
	GasUsed     uint64     `json:"gas_used"`
	GasPrice    uint64     `json:"gas_price"`
	BlockNumber uint64     `json:"block_number"`
}

// Fee returns gas_used * gas_price in base units
func (t *Transaction) Fee() *big.Int {
	return new(big.Int).Mul(
		new(big.Int).SetUint64(t.GasUsed),
		new(big.Int).SetUint64(t.GasPrice),
	)
}

// Record flattens the transaction into a detector input record
func (t *Transaction) Record() Record {
	r := Record{
		"hash":         t.Hash,
		"from":         t.From,
		"to":           t.To,
		"value":        t.Value,
		"gas_used":     t.GasUsed,
		"gas_price":    t.GasPrice,
		"block_number": t.BlockNumber,
	}
	if t.Timestamp != nil {
		r["timestamp"] = t.Timestamp.Unix()
	}
	return r
}

// HistoryQuery narrows an address history lookup
type HistoryQuery struct {
	StartBlock uint64
	EndBlock   uint64
	Sort       string // asc or desc
	Page       int
	Offset     int

	// Since drops transactions older than the given time (applied after fetching)
	Since *time.Time
}

// DefaultHistoryQuery returns the full-range ascending query
func DefaultHistoryQuery() HistoryQuery {
	return HistoryQuery{
		StartBlock: 0,
		EndBlock:   99999999,
		Sort:       "asc",
	}
}

// Balance is an address balance on one network
type Balance struct {
	Network string   `json:"network"`
	Address string   `json:"address"`
	Wei     *big.Int `json:"-"`
	Value   float64  `json:"value"`
}
