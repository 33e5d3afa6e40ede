package model

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBigIntString_RoundTrip(t *testing.T) {
	// 2^256 - 1, the largest value a native token amount can take.
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	stored := BigIntString(max)
	assert.Equal(t, "115792089237316195423570985008687907853269984665640564039457584007913129639935", stored)

	restored := ParseBigInt(stored)
	assert.Zero(t, max.Cmp(restored))
}

func TestBigIntString_Nil(t *testing.T) {
	assert.Equal(t, "0", BigIntString(nil))
}

func TestParseBigInt_Malformed(t *testing.T) {
	assert.Zero(t, ParseBigInt("").Sign())
	assert.Zero(t, ParseBigInt("not-a-number").Sign())
	assert.Zero(t, ParseBigInt("0x10").Sign())
}

func TestBlockStablecoinStats_HasActivity(t *testing.T) {
	stats := NewBlockStablecoinStats()
	assert.False(t, stats.HasActivity())

	stats.TransferCount = 1
	assert.True(t, stats.HasActivity())

	stats = NewBlockStablecoinStats()
	stats.FeePaymentCount = 2
	assert.True(t, stats.HasActivity())
}
