package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raubrey2014/tempo-explorer/internal/chain/rpc"
)

const (
	coinA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	coinB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func transferLog(address, amountHex string) *rpc.Log {
	return &rpc.Log{
		Address: address,
		Topics:  []string{transferTopic, "0x" + word("1"), "0x" + word("2")},
		Data:    "0x" + word(amountHex),
	}
}

func TestCalculateStablecoinStatsTransfers(t *testing.T) {
	repo := newFakeStableRepo(coinA, coinB)
	agg := NewAggregator(nil, repo, nil, discardLogger())

	receipts := []*rpc.TransactionReceipt{
		{Logs: []*rpc.Log{
			transferLog(coinA, "3e8"),              // 1000
			transferLog(strings.ToUpper(coinA), "64"), // 100, mixed case
			transferLog(coinB, "5"),
			transferLog("0xcccccccccccccccccccccccccccccccccccccccc", "ff"), // unknown
		}},
		nil, // degraded receipt
		{Logs: []*rpc.Log{
			{Address: coinA, Topics: []string{"0xsomeothertopic"}, Data: "0x" + word("1")},
		}},
	}

	stats, err := agg.CalculateStablecoinStats(context.Background(), receipts)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	a := stats[coinA]
	require.NotNil(t, a)
	assert.Equal(t, int64(2), a.TransferCount)
	assert.Equal(t, "1100", a.TransferVolume.String())

	b := stats[coinB]
	require.NotNil(t, b)
	assert.Equal(t, int64(1), b.TransferCount)
	assert.Equal(t, "5", b.TransferVolume.String())
}

func TestCalculateStablecoinStatsShortDataCountsOnly(t *testing.T) {
	repo := newFakeStableRepo(coinA)
	agg := NewAggregator(nil, repo, nil, discardLogger())

	receipts := []*rpc.TransactionReceipt{
		{Logs: []*rpc.Log{
			{Address: coinA, Topics: []string{transferTopic}, Data: "0x1234"},
		}},
	}

	stats, err := agg.CalculateStablecoinStats(context.Background(), receipts)
	require.NoError(t, err)
	require.Contains(t, stats, coinA)
	assert.Equal(t, int64(1), stats[coinA].TransferCount)
	assert.Equal(t, "0", stats[coinA].TransferVolume.String())
}

func TestCalculateStablecoinStatsFeeToken(t *testing.T) {
	repo := newFakeStableRepo(coinA)
	agg := NewAggregator(nil, repo, nil, discardLogger())

	receipts := []*rpc.TransactionReceipt{
		{
			FeeToken:          strings.ToUpper(coinA),
			GasUsed:           "0x5208",     // 21000
			EffectiveGasPrice: "0x3b9aca00", // 1e9
		},
		{
			FeeToken: coinA, // gas fields absent: count but no volume
		},
		{
			FeeToken: "0xdddddddddddddddddddddddddddddddddddddddd", // unknown
			GasUsed:  "0x1",
		},
	}

	stats, err := agg.CalculateStablecoinStats(context.Background(), receipts)
	require.NoError(t, err)
	require.Len(t, stats, 1)

	a := stats[coinA]
	require.NotNil(t, a)
	assert.Equal(t, int64(2), a.FeePaymentCount)
	assert.Equal(t, "21000000000000", a.FeeVolume.String())
	assert.Equal(t, int64(0), a.TransferCount)
}

func TestCalculateStablecoinStatsDropsZeroActivity(t *testing.T) {
	// A known stablecoin with receipts that never touch it must not appear
	// in the result at all.
	repo := newFakeStableRepo(coinA)
	agg := NewAggregator(nil, repo, nil, discardLogger())

	receipts := []*rpc.TransactionReceipt{
		{
			FeeToken: "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee",
			GasUsed:  "0x5208",
			Logs: []*rpc.Log{
				transferLog("0xcccccccccccccccccccccccccccccccccccccccc", "3e8"),
				{Address: coinA, Topics: []string{"0xsomeothertopic"}, Data: "0x" + word("1")},
			},
		},
	}

	stats, err := agg.CalculateStablecoinStats(context.Background(), receipts)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestCalculateStablecoinStatsNoKnownCoins(t *testing.T) {
	agg := NewAggregator(nil, newFakeStableRepo(), nil, discardLogger())

	receipts := []*rpc.TransactionReceipt{
		{Logs: []*rpc.Log{transferLog(coinA, "3e8")}},
	}
	stats, err := agg.CalculateStablecoinStats(context.Background(), receipts)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestCalculateStablecoinStatsListError(t *testing.T) {
	repo := newFakeStableRepo()
	repo.listErr = errors.New("db down")
	agg := NewAggregator(nil, repo, nil, discardLogger())

	_, err := agg.CalculateStablecoinStats(context.Background(), nil)
	require.Error(t, err)
}

func TestUpdateStablecoinStatsEmptyIsNoop(t *testing.T) {
	agg := NewAggregator(nil, newFakeStableRepo(), nil, discardLogger())
	require.NoError(t, agg.UpdateStablecoinStats(context.Background(), nil, 1))
}

func TestTransferAmount(t *testing.T) {
	assert.Equal(t, "1000", transferAmount("0x"+word("3e8")).String())
	assert.Nil(t, transferAmount("0x1234"))
	assert.Nil(t, transferAmount(""))
	assert.Nil(t, transferAmount("0x"+strings.Repeat("zz", 32)))

	// Extra words beyond the first are ignored.
	assert.Equal(t, "7", transferAmount("0x"+word("7")+word("ff")).String())
}
