package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsHexAddress reports whether s is a well-formed 20-byte hex address.
func IsHexAddress(s string) bool {
	return addressPattern.MatchString(strings.TrimSpace(s))
}

// NormalizeAddress lowercases an address for case-insensitive comparison.
func NormalizeAddress(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type LogFilter struct {
	FromBlock uint64
	ToBlock   uint64
	Address   string
	Topics    []string
}

type LogEntry struct {
	Address         string
	Topics          []string
	Data            string
	BlockNumber     uint64
	TransactionHash string
	LogIndex        uint64
	Removed         bool
}

type TxArgs struct {
	From  string
	To    string
	Gas   uint64
	Value string // hex wei, empty means 0x0
	Data  string
}

type Receipt struct {
	TransactionHash string
	BlockNumber     uint64
	Status          uint64
}

type AddChainParams struct {
	ChainID           string   `json:"chainId"`
	ChainName         string   `json:"chainName"`
	RPCURLs           []string `json:"rpcUrls"`
	NativeCurrency    Currency `json:"nativeCurrency"`
	BlockExplorerURLs []string `json:"blockExplorerUrls"`
}

type Currency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// RPC is the wallet-backed JSON-RPC provider surface the dashboard needs:
// contract reads, transaction submission, receipt polling, event logs and
// the EIP-1193 wallet methods for account and chain management.
type RPC interface {
	ChainID(ctx context.Context) (uint64, error)
	BlockNumber(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, to, data string) (string, error)
	SendTransaction(ctx context.Context, tx TxArgs) (string, error)
	TransactionReceipt(ctx context.Context, txHash string) (*Receipt, bool, error)
	GetLogs(ctx context.Context, filter LogFilter) ([]LogEntry, error)
	RequestAccounts(ctx context.Context) ([]string, error)
	SwitchChain(ctx context.Context, chainID uint64) error
	AddChain(ctx context.Context, params AddChainParams) error
}

type HTTPClient struct {
	httpURL    string
	httpClient *http.Client
}

func NewHTTPClient(httpURL string) (*HTTPClient, error) {
	if strings.TrimSpace(httpURL) == "" {
		return nil, fmt.Errorf("missing CHAIN_HTTP_RPC")
	}
	return &HTTPClient{
		httpURL:    strings.TrimSpace(httpURL),
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}, nil
}

func (c *HTTPClient) ChainID(ctx context.Context) (uint64, error) {
	var out string
	if err := c.rpc(ctx, "eth_chainId", []any{}, &out); err != nil {
		return 0, err
	}
	return parseHexUint64(out)
}

func (c *HTTPClient) BlockNumber(ctx context.Context) (uint64, error) {
	var out string
	if err := c.rpc(ctx, "eth_blockNumber", []any{}, &out); err != nil {
		return 0, err
	}
	return parseHexUint64(out)
}

func (c *HTTPClient) CallContract(ctx context.Context, to, data string) (string, error) {
	var out string
	err := c.rpc(ctx, "eth_call", []any{map[string]string{"to": to, "data": data}, "latest"}, &out)
	if err != nil {
		return "", err
	}
	return out, nil
}

func (c *HTTPClient) SendTransaction(ctx context.Context, tx TxArgs) (string, error) {
	txObj := map[string]string{
		"from": tx.From,
		"to":   tx.To,
		"gas":  fmt.Sprintf("0x%x", tx.Gas),
		"data": tx.Data,
	}
	if tx.Value != "" {
		txObj["value"] = tx.Value
	} else {
		txObj["value"] = "0x0"
	}

	var txHash string
	if err := c.rpc(ctx, "eth_sendTransaction", []any{txObj}, &txHash); err != nil {
		return "", err
	}
	if !strings.HasPrefix(txHash, "0x") {
		return "", fmt.Errorf("invalid tx hash response")
	}
	return txHash, nil
}

func (c *HTTPClient) TransactionReceipt(ctx context.Context, txHash string) (*Receipt, bool, error) {
	var raw *struct {
		TransactionHash string `json:"transactionHash"`
		BlockNumber     string `json:"blockNumber"`
		Status          string `json:"status"`
	}
	if err := c.rpc(ctx, "eth_getTransactionReceipt", []any{txHash}, &raw); err != nil {
		return nil, false, err
	}
	if raw == nil {
		return nil, false, nil
	}
	blockNum, err := parseHexUint64(raw.BlockNumber)
	if err != nil {
		return nil, false, fmt.Errorf("invalid blockNumber in receipt: %w", err)
	}
	status, err := parseHexUint64(raw.Status)
	if err != nil {
		return nil, false, fmt.Errorf("invalid status in receipt: %w", err)
	}
	return &Receipt{
		TransactionHash: raw.TransactionHash,
		BlockNumber:     blockNum,
		Status:          status,
	}, true, nil
}

func (c *HTTPClient) GetLogs(ctx context.Context, filter LogFilter) ([]LogEntry, error) {
	reqFilter := map[string]any{
		"fromBlock": fmt.Sprintf("0x%x", filter.FromBlock),
		"toBlock":   fmt.Sprintf("0x%x", filter.ToBlock),
		"address":   filter.Address,
		"topics":    []any{filter.Topics},
	}
	var rawLogs []struct {
		Address         string   `json:"address"`
		Topics          []string `json:"topics"`
		Data            string   `json:"data"`
		BlockNumber     string   `json:"blockNumber"`
		TransactionHash string   `json:"transactionHash"`
		LogIndex        string   `json:"logIndex"`
		Removed         bool     `json:"removed"`
	}
	if err := c.rpc(ctx, "eth_getLogs", []any{reqFilter}, &rawLogs); err != nil {
		return nil, err
	}

	out := make([]LogEntry, 0, len(rawLogs))
	for _, item := range rawLogs {
		blockNum, err := parseHexUint64(item.BlockNumber)
		if err != nil {
			return nil, fmt.Errorf("invalid blockNumber in log: %w", err)
		}
		logIndex, err := parseHexUint64(item.LogIndex)
		if err != nil {
			return nil, fmt.Errorf("invalid logIndex in log: %w", err)
		}
		out = append(out, LogEntry{
			Address:         item.Address,
			Topics:          item.Topics,
			Data:            item.Data,
			BlockNumber:     blockNum,
			TransactionHash: item.TransactionHash,
			LogIndex:        logIndex,
			Removed:         item.Removed,
		})
	}
	return out, nil
}

func (c *HTTPClient) RequestAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := c.rpc(ctx, "eth_requestAccounts", []any{}, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (c *HTTPClient) SwitchChain(ctx context.Context, chainID uint64) error {
	params := map[string]string{"chainId": fmt.Sprintf("0x%x", chainID)}
	var out any
	return c.rpc(ctx, "wallet_switchEthereumChain", []any{params}, &out)
}

func (c *HTTPClient) AddChain(ctx context.Context, params AddChainParams) error {
	var out any
	return c.rpc(ctx, "wallet_addEthereumChain", []any{params}, &out)
}

// WaitMined polls for a transaction receipt until the transaction is mined
// or ctx expires. A single confirmation is sufficient for the dashboard.
func WaitMined(ctx context.Context, rpc RPC, txHash string, interval time.Duration) (*Receipt, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, found, err := rpc.TransactionReceipt(ctx, txHash)
		if err != nil {
			return nil, err
		}
		if found {
			if receipt.Status == 0 {
				return receipt, &CallError{Kind: KindContractRevert}
			}
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, &CallError{Kind: KindTransport, Reason: "timed out waiting for confirmation", err: ctx.Err()}
		case <-ticker.C:
		}
	}
}

func (c *HTTPClient) rpc(ctx context.Context, method string, params []any, out any) error {
	reqBody, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.httpURL, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var payload struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int             `json:"code"`
			Message string          `json:"message"`
			Data    json.RawMessage `json:"data"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return err
	}
	if payload.Error != nil {
		rpcErr := &RPCError{Code: payload.Error.Code, Message: payload.Error.Message}
		// Revert data arrives either as a bare hex string or nested
		// under a provider-specific object; keep the hex if present.
		var dataStr string
		if len(payload.Error.Data) > 0 && json.Unmarshal(payload.Error.Data, &dataStr) == nil {
			rpcErr.Data = dataStr
		}
		return rpcErr
	}
	if len(payload.Result) == 0 {
		return fmt.Errorf("rpc empty result")
	}
	if err := json.Unmarshal(payload.Result, out); err != nil {
		return err
	}
	return nil
}

func parseHexUint64(v string) (uint64, error) {
	clean := strings.TrimSpace(strings.ToLower(v))
	clean = strings.TrimPrefix(clean, "0x")
	if clean == "" {
		return 0, fmt.Errorf("empty hex value")
	}
	return strconv.ParseUint(clean, 16, 64)
}
