package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

func (c *Client) GetBlockNumber(ctx context.Context) (int64, error) {
	result, err := c.call(ctx, "eth_blockNumber", []interface{}{})
	if err != nil {
		return 0, fmt.Errorf("eth_blockNumber: %w", err)
	}

	var hexNum string
	if err := json.Unmarshal(result, &hexNum); err != nil {
		return 0, fmt.Errorf("unmarshal block number: %w", err)
	}

	blockNumber, err := ParseHexInt64(hexNum)
	if err != nil {
		return 0, fmt.Errorf("parse block number: %w", err)
	}
	return blockNumber, nil
}

func (c *Client) GetBlockByNumber(ctx context.Context, blockNumber int64, includeFullTx bool) (*Block, error) {
	params := []interface{}{FormatHexInt64(blockNumber), includeFullTx}
	result, err := c.call(ctx, "eth_getBlockByNumber", params)
	if err != nil {
		return nil, fmt.Errorf("eth_getBlockByNumber(%d): %w", blockNumber, err)
	}
	return unmarshalBlock(result)
}

func (c *Client) GetBlockByHash(ctx context.Context, hash string, includeFullTx bool) (*Block, error) {
	result, err := c.call(ctx, "eth_getBlockByHash", []interface{}{hash, includeFullTx})
	if err != nil {
		return nil, fmt.Errorf("eth_getBlockByHash(%s): %w", hash, err)
	}
	return unmarshalBlock(result)
}

func unmarshalBlock(result json.RawMessage) (*Block, error) {
	if string(result) == "null" {
		return nil, nil
	}
	var block Block
	if err := json.Unmarshal(result, &block); err != nil {
		return nil, fmt.Errorf("unmarshal block: %w", err)
	}
	return &block, nil
}

func (c *Client) GetTransactionByHash(ctx context.Context, hash string) (*Transaction, error) {
	result, err := c.call(ctx, "eth_getTransactionByHash", []interface{}{hash})
	if err != nil {
		return nil, fmt.Errorf("eth_getTransactionByHash(%s): %w", hash, err)
	}
	if string(result) == "null" {
		return nil, nil
	}

	var tx Transaction
	if err := json.Unmarshal(result, &tx); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}
	return &tx, nil
}

func (c *Client) GetTransactionReceipt(ctx context.Context, hash string) (*TransactionReceipt, error) {
	result, err := c.call(ctx, "eth_getTransactionReceipt", []interface{}{hash})
	if err != nil {
		return nil, fmt.Errorf("eth_getTransactionReceipt(%s): %w", hash, err)
	}
	if string(result) == "null" {
		return nil, nil
	}

	var receipt TransactionReceipt
	if err := json.Unmarshal(result, &receipt); err != nil {
		return nil, fmt.Errorf("unmarshal transaction receipt: %w", err)
	}
	return &receipt, nil
}

// GetTransactionsByHash fetches multiple transactions in one JSON-RPC batch.
// Results keep input order; nil entries are transactions the node does not know.
func (c *Client) GetTransactionsByHash(ctx context.Context, hashes []string) ([]*Transaction, error) {
	if len(hashes) == 0 {
		return []*Transaction{}, nil
	}

	requests := make([]Request, len(hashes))
	for i, hash := range hashes {
		requests[i] = c.newRequest("eth_getTransactionByHash", []interface{}{hash})
	}

	responses, err := c.callBatch(ctx, requests)
	if err != nil {
		return nil, fmt.Errorf("eth_getTransactionByHash batch: %w", err)
	}

	results := make([]*Transaction, len(hashes))
	for i, response := range responses {
		if response.Error != nil {
			return nil, fmt.Errorf("eth_getTransactionByHash(%s): %w", hashes[i], response.Error)
		}
		if string(response.Result) == "null" {
			continue
		}

		var tx Transaction
		if err := json.Unmarshal(response.Result, &tx); err != nil {
			return nil, fmt.Errorf("unmarshal transaction %s: %w", hashes[i], err)
		}
		results[i] = &tx
	}
	return results, nil
}

// GetTransactionReceiptsByHash fetches multiple receipts in one JSON-RPC
// batch. A per-hash error or missing receipt yields a nil entry rather than
// failing the batch; receipts are a degradable input to aggregation.
func (c *Client) GetTransactionReceiptsByHash(ctx context.Context, hashes []string) ([]*TransactionReceipt, error) {
	if len(hashes) == 0 {
		return []*TransactionReceipt{}, nil
	}

	requests := make([]Request, len(hashes))
	for i, hash := range hashes {
		requests[i] = c.newRequest("eth_getTransactionReceipt", []interface{}{hash})
	}

	responses, err := c.callBatch(ctx, requests)
	if err != nil {
		return nil, fmt.Errorf("eth_getTransactionReceipt batch: %w", err)
	}

	results := make([]*TransactionReceipt, len(hashes))
	for i, response := range responses {
		if response.Error != nil || string(response.Result) == "null" {
			continue
		}

		var receipt TransactionReceipt
		if err := json.Unmarshal(response.Result, &receipt); err != nil {
			continue
		}
		results[i] = &receipt
	}
	return results, nil
}

// GetCode returns the runtime bytecode at an address; "0x" means the
// account holds no code.
func (c *Client) GetCode(ctx context.Context, address string) (string, error) {
	result, err := c.call(ctx, "eth_getCode", []interface{}{address, "latest"})
	if err != nil {
		return "", fmt.Errorf("eth_getCode(%s): %w", address, err)
	}

	var code string
	if err := json.Unmarshal(result, &code); err != nil {
		return "", fmt.Errorf("unmarshal code: %w", err)
	}
	return code, nil
}

// Call performs eth_call against the latest block and returns the
// hex-encoded return data.
func (c *Client) Call(ctx context.Context, to string, data string) (string, error) {
	params := []interface{}{map[string]string{"to": to, "data": data}, "latest"}
	result, err := c.call(ctx, "eth_call", params)
	if err != nil {
		return "", fmt.Errorf("eth_call(%s): %w", to, err)
	}

	var out string
	if err := json.Unmarshal(result, &out); err != nil {
		return "", fmt.Errorf("unmarshal call result: %w", err)
	}
	return out, nil
}

func ParseHexInt64(value string) (int64, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return 0, fmt.Errorf("empty hex value")
	}
	raw = strings.TrimPrefix(strings.ToLower(raw), "0x")
	if raw == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseUint(raw, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse hex %q: %w", value, err)
	}
	return int64(parsed), nil
}

// ParseHexBig parses a 0x-prefixed hex quantity of arbitrary width.
// Returns nil for empty or malformed input.
func ParseHexBig(value string) *big.Int {
	raw := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(value), "0x"), "0X")
	if raw == "" {
		return nil
	}
	parsed, ok := new(big.Int).SetString(raw, 16)
	if !ok {
		return nil
	}
	return parsed
}

func FormatHexInt64(value int64) string {
	return fmt.Sprintf("0x%x", value)
}
