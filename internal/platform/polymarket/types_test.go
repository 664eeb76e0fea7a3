package polymarket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantish/clobtrade/internal/domain"
	"github.com/quantish/clobtrade/internal/pricing"
)

func TestBookToDomainSnapshot_NormalizesLevelOrdering(t *testing.T) {
	msg := &BookMessage{
		AssetID: "tok-1",
		Bids: []WSPriceLevel{
			{Price: "0.52", Size: "30"},
			{Price: "0.58", Size: "100"},
			{Price: "0.55", Size: "20"},
		},
		Asks: []WSPriceLevel{
			{Price: "0.70", Size: "10"},
			{Price: "0.60", Size: "50"},
			{Price: "0.65", Size: "25"},
		},
		Timestamp: "1700000000",
	}

	snap := BookToDomainSnapshot(msg)

	require.Len(t, snap.Bids, 3)
	require.Len(t, snap.Asks, 3)

	for i := 1; i < len(snap.Bids); i++ {
		assert.Greater(t, snap.Bids[i-1].Price, snap.Bids[i].Price)
	}
	for i := 1; i < len(snap.Asks); i++ {
		assert.Less(t, snap.Asks[i-1].Price, snap.Asks[i].Price)
	}

	assert.Equal(t, 0.58, snap.BestBid())
	assert.Equal(t, 0.60, snap.BestAsk())
}

func TestBookToDomainSnapshot_WalkableWhenWireOrderIsBestLast(t *testing.T) {
	msg := &BookMessage{
		AssetID: "tok-1",
		Asks: []WSPriceLevel{
			{Price: "0.70", Size: "10"},
			{Price: "0.60", Size: "50"},
		},
		Timestamp: "1700000000",
	}

	snap := BookToDomainSnapshot(msg)

	res := pricing.WalkBook(snap, domain.SideBuy, 30)
	assert.True(t, res.CanFill)
	assert.Equal(t, 0.60, res.WorstPrice)
	assert.InDelta(t, 18.0, res.TotalNotional, 1e-9)
}

func TestBookToDomainSnapshot_SkipsUnparseableLevels(t *testing.T) {
	msg := &BookMessage{
		AssetID: "tok-1",
		Bids: []WSPriceLevel{
			{Price: "not-a-number", Size: "10"},
			{Price: "0.55", Size: "20"},
		},
		Timestamp: "1700000000",
	}

	snap := BookToDomainSnapshot(msg)

	require.Len(t, snap.Bids, 1)
	assert.Equal(t, 0.55, snap.BestBid())
}
