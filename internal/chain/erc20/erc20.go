package erc20

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Precomputed 4-byte function selectors for the minimal token interface.
const (
	selDecimals    = "0x313ce567"
	selSymbol      = "0x95d89b41"
	selTotalSupply = "0x18160ddd"
)

// caller is the subset of the chain client the reader needs.
type caller interface {
	Call(ctx context.Context, to string, data string) (string, error)
}

// Reader issues the three read calls used as the stablecoin detection
// heuristic: decimals(), symbol(), totalSupply().
type Reader struct {
	client caller
}

func NewReader(client caller) *Reader {
	return &Reader{client: client}
}

func (r *Reader) Decimals(ctx context.Context, token string) (uint8, error) {
	out, err := r.client.Call(ctx, token, selDecimals)
	if err != nil {
		return 0, fmt.Errorf("decimals(%s): %w", token, err)
	}
	return parseUint8(out)
}

func (r *Reader) Symbol(ctx context.Context, token string) (string, error) {
	out, err := r.client.Call(ctx, token, selSymbol)
	if err != nil {
		return "", fmt.Errorf("symbol(%s): %w", token, err)
	}

	// Standard tokens return an ABI-encoded string; some older contracts
	// return a fixed bytes32 instead.
	if s, strErr := parseStringOutput(out); strErr == nil && s != "" {
		return s, nil
	}
	s, err := parseBytes32String(out)
	if err != nil {
		return "", fmt.Errorf("symbol(%s): %w", token, err)
	}
	return s, nil
}

func (r *Reader) TotalSupply(ctx context.Context, token string) (*big.Int, error) {
	out, err := r.client.Call(ctx, token, selTotalSupply)
	if err != nil {
		return nil, fmt.Errorf("totalSupply(%s): %w", token, err)
	}
	return parseUint256(out)
}

func decodeHex(hexData string) ([]byte, error) {
	if len(hexData) < 2 || hexData[:2] != "0x" {
		return nil, errors.New("missing 0x prefix")
	}
	data, err := hex.DecodeString(hexData[2:])
	if err != nil {
		return nil, err
	}
	return data, nil
}

// parseStringOutput decodes an ABI-encoded dynamic string return value:
// 32-byte offset, 32-byte length, then the bytes.
func parseStringOutput(hexData string) (string, error) {
	data, err := decodeHex(hexData)
	if err != nil {
		return "", err
	}
	if len(data) < 64 {
		return "", errors.New("short string output")
	}
	length := new(big.Int).SetBytes(data[32:64]).Int64()
	if length < 0 || int64(len(data)) < 64+length {
		return "", errors.New("truncated string output")
	}
	return cleanString(string(data[64 : 64+length])), nil
}

// parseBytes32String decodes a fixed bytes32 return value, dropping NUL padding.
func parseBytes32String(hexData string) (string, error) {
	data, err := decodeHex(hexData)
	if err != nil {
		return "", err
	}
	if len(data) < 32 {
		return "", errors.New("short bytes32 output")
	}
	return cleanString(string(data[len(data)-32:])), nil
}

func parseUint256(hexData string) (*big.Int, error) {
	data, err := decodeHex(hexData)
	if err != nil {
		return nil, err
	}
	if len(data) < 32 {
		return nil, errors.New("short uint256 output")
	}
	return new(big.Int).SetBytes(data[len(data)-32:]), nil
}

func parseUint8(hexData string) (uint8, error) {
	n, err := parseUint256(hexData)
	if err != nil {
		return 0, err
	}
	return uint8(n.Uint64() & 0xff), nil
}

func cleanString(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
