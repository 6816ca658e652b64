package etherscan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bimakw/chain-analytics/internal/config"
	"github.com/bimakw/chain-analytics/internal/domain/apperrors"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
	"github.com/bimakw/chain-analytics/internal/infrastructure/metrics"
)

// Request outcomes, used as metric labels
const (
	outcomeOK         = "ok"
	outcomeEmpty      = "empty"
	outcomeAPIError   = "api_error"
	outcomeConnection = "connection_error"
	outcomeProtocol   = "protocol_error"
)

// Client talks to an Etherscan-compatible multichain indexer.
// All calls, from every goroutine, share one token-bucket limiter.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *metrics.GatewayMetrics
	logger     *zap.Logger
}

// NewClient creates a new indexer client. A nil metrics value gets
// unregistered collectors.
func NewClient(cfg config.EtherscanConfig, m *metrics.GatewayMetrics, logger *zap.Logger) *Client {
	if m == nil {
		m = metrics.NewGatewayMetrics(nil)
	}
	burst := cfg.RateLimitBurst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst),
		metrics: m,
		logger:  logger.With(zap.String("component", "etherscan")),
	}
}

// Request performs one indexer call and returns the untouched result
// payload. The empty classification yields "[]" for list actions and nil
// for proxy lookups of unknown objects.
func (c *Client) Request(ctx context.Context, network entities.Network, params url.Values) (json.RawMessage, error) {
	op := operationName(params)
	start := time.Now()

	payload, outcome, err := c.do(ctx, op, network, params)

	c.metrics.Requests.WithLabelValues(op, outcome).Inc()
	c.metrics.Latency.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		c.logger.Warn("Indexer request failed",
			zap.String("action", op),
			zap.String("network", network.Name),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
		return nil, err
	}

	c.logger.Debug("Indexer request completed",
		zap.String("action", op),
		zap.String("network", network.Name),
		zap.String("outcome", outcome),
		zap.Duration("duration", time.Since(start)),
	)
	return payload, nil
}

func (c *Client) do(ctx context.Context, op string, network entities.Network, params url.Values) (json.RawMessage, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, outcomeConnection, &apperrors.ConnectionError{Op: op, Err: err}
	}

	query := url.Values{}
	for k, v := range params {
		query[k] = append([]string(nil), v...)
	}
	query.Set("chainid", strconv.FormatInt(network.ChainID, 10))
	query.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, outcomeConnection, &apperrors.ConnectionError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, outcomeConnection, &apperrors.ConnectionError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, outcomeConnection, &apperrors.ConnectionError{
			Op:  op,
			Err: fmt.Errorf("unexpected HTTP status %d", resp.StatusCode),
		}
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, outcomeProtocol, &apperrors.ProtocolError{Op: op, Detail: "undecodable body", Err: err}
	}

	return classify(op, &body)
}

// classify turns a decoded envelope into a payload or a typed error
func classify(op string, body *response) (json.RawMessage, string, error) {
	if body.JSONRPC != "" {
		if body.Error != nil {
			return nil, outcomeAPIError, &apperrors.APIError{
				Op:      op,
				Message: body.Error.Message,
				Detail:  fmt.Sprintf("rpc code %d", body.Error.Code),
			}
		}
		if len(body.Result) == 0 {
			return nil, outcomeProtocol, &apperrors.ProtocolError{Op: op, Detail: "rpc response without result"}
		}
		if bytes.Equal(bytes.TrimSpace(body.Result), []byte("null")) {
			return nil, outcomeEmpty, nil
		}
		return body.Result, outcomeOK, nil
	}

	switch body.Status {
	case "1":
		if len(body.Result) == 0 {
			return nil, outcomeProtocol, &apperrors.ProtocolError{Op: op, Detail: "response without result"}
		}
		return body.Result, outcomeOK, nil
	case "0":
		for _, msg := range emptyMessages {
			if strings.HasPrefix(body.Message, msg) {
				return json.RawMessage("[]"), outcomeEmpty, nil
			}
		}
		var detail string
		_ = json.Unmarshal(body.Result, &detail)
		return nil, outcomeAPIError, &apperrors.APIError{Op: op, Message: body.Message, Detail: detail}
	default:
		return nil, outcomeProtocol, &apperrors.ProtocolError{
			Op:     op,
			Detail: fmt.Sprintf("unknown status %q", body.Status),
		}
	}
}

func operationName(params url.Values) string {
	if action := params.Get("action"); action != "" {
		return action
	}
	return "unknown"
}

// GetBalance returns the latest balance of address in base units
func (c *Client) GetBalance(ctx context.Context, network entities.Network, address string) (*big.Int, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "balance")
	params.Set("address", address)
	params.Set("tag", "latest")

	payload, err := c.Request(ctx, network, params)
	if err != nil {
		return nil, err
	}

	var raw string
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &apperrors.ProtocolError{Op: "balance", Detail: "balance is not a string", Err: err}
	}
	balance, ok := new(big.Int).SetString(raw, 10)
	if !ok || balance.Sign() < 0 {
		return nil, &apperrors.ProtocolError{Op: "balance", Detail: fmt.Sprintf("malformed balance %q", raw)}
	}
	return balance, nil
}

// GetAddressHistory returns the raw transaction list of address
func (c *Client) GetAddressHistory(ctx context.Context, network entities.Network, address string, query entities.HistoryQuery) ([]entities.RawTransaction, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "txlist")
	params.Set("address", address)
	params.Set("startblock", strconv.FormatUint(query.StartBlock, 10))
	params.Set("endblock", strconv.FormatUint(query.EndBlock, 10))
	if query.Sort != "" {
		params.Set("sort", query.Sort)
	}
	if query.Page > 0 {
		params.Set("page", strconv.Itoa(query.Page))
	}
	if query.Offset > 0 {
		params.Set("offset", strconv.Itoa(query.Offset))
	}

	payload, err := c.Request(ctx, network, params)
	if err != nil {
		return nil, err
	}

	txs := []entities.RawTransaction{}
	if err := json.Unmarshal(payload, &txs); err != nil {
		return nil, &apperrors.ProtocolError{Op: "txlist", Detail: "transaction list is not an array of records", Err: err}
	}
	return txs, nil
}

// GetTransaction looks a transaction up by hash through the proxy module.
// The receipt supplies status and gas used, the block supplies the
// timestamp. Returns nil when the indexer does not know the hash.
func (c *Client) GetTransaction(ctx context.Context, network entities.Network, hash string) (*entities.RawTransaction, error) {
	var tx rpcTransaction
	found, err := c.proxy(ctx, network, "eth_getTransactionByHash", url.Values{"txhash": {hash}}, &tx)
	if err != nil || !found {
		return nil, err
	}

	raw := &entities.RawTransaction{
		Hash:  tx.Hash,
		From:  tx.From,
		Input: tx.Input,
	}
	if tx.To != nil {
		raw.To = *tx.To
	}
	if raw.Value, err = hexToDecimal("eth_getTransactionByHash", "value", tx.Value); err != nil {
		return nil, err
	}
	if raw.GasPrice, err = hexToDecimal("eth_getTransactionByHash", "gasPrice", tx.GasPrice); err != nil {
		return nil, err
	}
	if raw.Nonce, err = hexToDecimal("eth_getTransactionByHash", "nonce", tx.Nonce); err != nil {
		return nil, err
	}

	// Pending transactions have neither a block nor a receipt yet
	if tx.BlockNumber == nil {
		return raw, nil
	}
	if raw.BlockNumber, err = hexToDecimal("eth_getTransactionByHash", "blockNumber", *tx.BlockNumber); err != nil {
		return nil, err
	}

	var receipt rpcReceipt
	found, err = c.proxy(ctx, network, "eth_getTransactionReceipt", url.Values{"txhash": {hash}}, &receipt)
	if err != nil {
		return nil, err
	}
	if found {
		if raw.ReceiptStatus, err = hexToDecimal("eth_getTransactionReceipt", "status", receipt.Status); err != nil {
			return nil, err
		}
		if raw.GasUsed, err = hexToDecimal("eth_getTransactionReceipt", "gasUsed", receipt.GasUsed); err != nil {
			return nil, err
		}
		if receipt.ContractAddress != nil {
			raw.ContractAddress = *receipt.ContractAddress
		}
		if raw.ReceiptStatus == "0" {
			raw.IsError = "1"
		} else if raw.ReceiptStatus == "1" {
			raw.IsError = "0"
		}
	}

	var header rpcBlockHeader
	found, err = c.proxy(ctx, network, "eth_getBlockByNumber", url.Values{"tag": {*tx.BlockNumber}, "boolean": {"false"}}, &header)
	if err != nil {
		return nil, err
	}
	if found {
		if raw.TimeStamp, err = hexToDecimal("eth_getBlockByNumber", "timestamp", header.Timestamp); err != nil {
			return nil, err
		}
	}

	return raw, nil
}

// HealthCheck checks the indexer is reachable and the API key accepted
func (c *Client) HealthCheck(ctx context.Context) error {
	network, _ := entities.LookupNetwork(entities.DefaultNetwork)
	var head string
	if _, err := c.proxy(ctx, network, "eth_blockNumber", nil, &head); err != nil {
		return err
	}
	return nil
}

// proxy runs a proxy-module action and decodes its result into out.
// found is false when the result was null.
func (c *Client) proxy(ctx context.Context, network entities.Network, action string, extra url.Values, out interface{}) (bool, error) {
	params := url.Values{}
	params.Set("module", "proxy")
	params.Set("action", action)
	for k, v := range extra {
		params[k] = v
	}

	payload, err := c.Request(ctx, network, params)
	if err != nil {
		return false, err
	}
	if payload == nil {
		return false, nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return false, &apperrors.ProtocolError{Op: action, Detail: "unexpected result shape", Err: err}
	}
	return true, nil
}

// hexToDecimal converts a 0x quantity to the base-10 string form the
// account module uses. Empty input stays empty.
func hexToDecimal(op, field, quantity string) (string, error) {
	if quantity == "" {
		return "", nil
	}
	n, err := hexutil.DecodeBig(quantity)
	if err != nil {
		return "", &apperrors.ProtocolError{Op: op, Detail: fmt.Sprintf("malformed %s %q", field, quantity), Err: err}
	}
	return n.String(), nil
}
