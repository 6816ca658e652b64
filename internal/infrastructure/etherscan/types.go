package etherscan

import (
	"encoding/json"
)

// response covers both envelopes the indexer speaks: the account module
// envelope {status, message, result} and the JSON-RPC envelope of the
// proxy module {jsonrpc, id, result | error}.
type response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// rpcTransaction is the eth_getTransactionByHash result. Quantities are
// 0x-prefixed hex.
type rpcTransaction struct {
	Hash        string  `json:"hash"`
	From        string  `json:"from"`
	To          *string `json:"to"`
	Value       string  `json:"value"`
	Gas         string  `json:"gas"`
	GasPrice    string  `json:"gasPrice"`
	BlockNumber *string `json:"blockNumber"`
	Nonce       string  `json:"nonce"`
	Input       string  `json:"input"`
}

// rpcReceipt is the subset of eth_getTransactionReceipt we read
type rpcReceipt struct {
	Status          string  `json:"status"`
	GasUsed         string  `json:"gasUsed"`
	ContractAddress *string `json:"contractAddress"`
}

// rpcBlockHeader is the subset of eth_getBlockByNumber we read
type rpcBlockHeader struct {
	Number    string `json:"number"`
	Timestamp string `json:"timestamp"`
}

// Messages the indexer uses for an empty result under status "0"
var emptyMessages = []string{
	"No transactions found",
	"No records found",
}
