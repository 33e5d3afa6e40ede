package erc20

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	results map[string]string // selector -> return data
	err     error
}

func (f *fakeCaller) Call(_ context.Context, _ string, data string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.results[data], nil
}

func TestDecimals(t *testing.T) {
	client := &fakeCaller{results: map[string]string{
		// uint256 value 6
		selDecimals: "0x0000000000000000000000000000000000000000000000000000000000000006",
	}}

	decimals, err := NewReader(client).Decimals(context.Background(), "0xtoken")
	require.NoError(t, err)
	assert.Equal(t, uint8(6), decimals)
}

func TestSymbol_ABIString(t *testing.T) {
	// offset=0x20, length=4, "PUSD" padded to 32 bytes
	client := &fakeCaller{results: map[string]string{
		selSymbol: "0x" +
			"0000000000000000000000000000000000000000000000000000000000000020" +
			"0000000000000000000000000000000000000000000000000000000000000004" +
			"5055534400000000000000000000000000000000000000000000000000000000",
	}}

	symbol, err := NewReader(client).Symbol(context.Background(), "0xtoken")
	require.NoError(t, err)
	assert.Equal(t, "PUSD", symbol)
}

func TestSymbol_Bytes32Fallback(t *testing.T) {
	// "MKR" as bytes32, NUL-padded
	client := &fakeCaller{results: map[string]string{
		selSymbol: "0x4d4b520000000000000000000000000000000000000000000000000000000000",
	}}

	symbol, err := NewReader(client).Symbol(context.Background(), "0xtoken")
	require.NoError(t, err)
	assert.Equal(t, "MKR", symbol)
}

func TestTotalSupply(t *testing.T) {
	client := &fakeCaller{results: map[string]string{
		// 1_000_000
		selTotalSupply: "0x00000000000000000000000000000000000000000000000000000000000f4240",
	}}

	supply, err := NewReader(client).TotalSupply(context.Background(), "0xtoken")
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), supply.Int64())
}

func TestReads_PropagateCallErrors(t *testing.T) {
	client := &fakeCaller{err: errors.New("execution reverted")}
	reader := NewReader(client)

	_, err := reader.Decimals(context.Background(), "0xtoken")
	assert.Error(t, err)
	_, err = reader.Symbol(context.Background(), "0xtoken")
	assert.Error(t, err)
	_, err = reader.TotalSupply(context.Background(), "0xtoken")
	assert.Error(t, err)
}

func TestReads_RejectShortOutput(t *testing.T) {
	client := &fakeCaller{results: map[string]string{
		selDecimals:    "0x01",
		selSymbol:      "0x01",
		selTotalSupply: "0x01",
	}}
	reader := NewReader(client)

	_, err := reader.Decimals(context.Background(), "0xtoken")
	assert.Error(t, err)
	_, err = reader.Symbol(context.Background(), "0xtoken")
	assert.Error(t, err)
	_, err = reader.TotalSupply(context.Background(), "0xtoken")
	assert.Error(t, err)
}
