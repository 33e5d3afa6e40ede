package ingest

import (
	"encoding/json"
	"math/big"
	"strings"

	"github.com/raubrey2014/tempo-explorer/internal/chain/rpc"
	"github.com/raubrey2014/tempo-explorer/internal/domain/model"
)

// NormalizeTransaction maps a raw transaction and its (possibly nil) receipt
// into the storage model. The mapping is total: missing or malformed fields
// degrade to defaults instead of failing, so one odd transaction never blocks
// a block from being persisted.
//
// Defaults: value and gasPrice fall back to zero, input to "0x", and an
// unparsable status stays nil. The block number comes from the receipt when
// one exists, otherwise zero.
func NormalizeTransaction(tx *rpc.Transaction, receipt *rpc.TransactionReceipt, blockTime *int64) *model.Transaction {
	out := &model.Transaction{
		Hash:      strings.ToLower(tx.Hash),
		From:      strings.ToLower(tx.From),
		Input:     "0x",
		Value:     new(big.Int),
		GasPrice:  new(big.Int),
		BlockTime: blockTime,
	}

	if tx.Input != "" {
		out.Input = tx.Input
	}
	if v := rpc.ParseHexBig(tx.Value); v != nil {
		out.Value = v
	}
	if v := rpc.ParseHexBig(tx.GasPrice); v != nil {
		out.GasPrice = v
	}
	if v, err := rpc.ParseHexInt64(tx.Nonce); err == nil {
		out.Nonce = v
	}
	if v, err := rpc.ParseHexInt64(tx.Gas); err == nil {
		out.Gas = v
	}
	if tx.To != "" {
		to := strings.ToLower(tx.To)
		out.To = &to
	}
	if raw, err := json.Marshal(tx); err == nil {
		out.RawTx = raw
	}

	if receipt == nil {
		return out
	}

	if v, err := rpc.ParseHexInt64(receipt.BlockNumber); err == nil {
		out.BlockNumber = v
	}
	if receipt.BlockHash != "" {
		blockHash := strings.ToLower(receipt.BlockHash)
		out.BlockHash = &blockHash
	}
	if v, err := rpc.ParseHexInt64(receipt.TransactionIndex); err == nil && receipt.TransactionIndex != "" {
		out.TxIndex = &v
	}
	if receipt.ContractAddress != "" {
		addr := strings.ToLower(receipt.ContractAddress)
		out.ContractAddress = &addr
	}
	if receipt.GasUsed != "" {
		if v, err := rpc.ParseHexInt64(receipt.GasUsed); err == nil {
			out.GasUsed = &v
		}
	}
	if status := normalizeStatus(receipt.Status); status != nil {
		out.Status = status
	}
	if raw, err := json.Marshal(receipt); err == nil {
		out.RawReceipt = raw
	}
	return out
}

// normalizeStatus accepts both the hex wire form and already-normalized
// string forms seen from non-standard nodes.
func normalizeStatus(raw string) *model.TxStatus {
	var status model.TxStatus
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "0x1", "1", "success":
		status = model.TxStatusSuccess
	case "0x0", "0", "reverted", "failed":
		status = model.TxStatusFailed
	default:
		return nil
	}
	return &status
}
