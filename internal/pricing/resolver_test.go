package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantish/clobtrade/internal/domain"
	"github.com/quantish/clobtrade/internal/pricing"
)

func newResolver() pricing.Resolver {
	return pricing.Resolver{
		TickSize:        0.01,
		MarketBufferBps: 50,  // 0.5%
		MaxSlippageBps:  200, // 2%
	}
}

func limitIntent(price float64) domain.OrderIntent {
	return domain.OrderIntent{
		TokenID:     "tok-1",
		Side:        domain.SideBuy,
		Size:        10,
		Kind:        domain.KindLimit,
		LimitPrice:  price,
		TimeInForce: domain.TIFGoodTillCancelled,
	}
}

func marketIntent(side domain.Side, size float64) domain.OrderIntent {
	return domain.OrderIntent{
		TokenID:     "tok-1",
		Side:        side,
		Size:        size,
		Kind:        domain.KindMarket,
		TimeInForce: domain.TIFFillAndKill,
	}
}

func TestResolve_LimitRoundsToTick(t *testing.T) {
	q, err := newResolver().Resolve(limitIntent(0.555), nil, nil)

	require.NoError(t, err)
	assert.InDelta(t, 0.56, q.Price, 1e-12)
	assert.InDelta(t, 5.6, q.Notional, 1e-9)
	assert.Nil(t, q.Slippage)
}

func TestResolve_MarketBuyPadsWorstPrice(t *testing.T) {
	book := domain.OrderbookSnapshot{
		AssetID: "tok-1",
		Asks:    []domain.PriceLevel{{Price: 0.60, Size: 50}},
	}

	q, err := newResolver().Resolve(marketIntent(domain.SideBuy, 30), &book, nil)

	require.NoError(t, err)
	// 0.60 * 1.005 = 0.603, rounded up to 0.61.
	assert.InDelta(t, 0.61, q.Price, 1e-12)
	// Notional is the walker's exact consumed value, not price*size.
	assert.InDelta(t, 18.0, q.Notional, 1e-9)
	require.NotNil(t, q.Slippage)
	assert.True(t, q.Slippage.CanFill)
}

func TestResolve_MarketSellPadsDown(t *testing.T) {
	book := domain.OrderbookSnapshot{
		AssetID: "tok-1",
		Bids:    []domain.PriceLevel{{Price: 0.40, Size: 100}},
	}

	q, err := newResolver().Resolve(marketIntent(domain.SideSell, 10), &book, nil)

	require.NoError(t, err)
	// 0.40 * 0.995 = 0.398, rounded down to 0.39.
	assert.InDelta(t, 0.39, q.Price, 1e-12)
	assert.InDelta(t, 4.0, q.Notional, 1e-9)
}

func TestResolve_MarketFallsBackToQuote(t *testing.T) {
	// Book too thin: walker cannot fill, reference quote takes over.
	book := domain.OrderbookSnapshot{
		AssetID: "tok-1",
		Asks:    []domain.PriceLevel{{Price: 0.60, Size: 5}},
	}
	quote := domain.OutcomeQuote{TokenID: "tok-1", ReferencePrice: 0.50}

	q, err := newResolver().Resolve(marketIntent(domain.SideBuy, 30), &book, &quote)

	require.NoError(t, err)
	// 0.50 * 1.02 = 0.51.
	assert.InDelta(t, 0.51, q.Price, 1e-12)
	assert.InDelta(t, 0.51*30, q.Notional, 1e-9)
	// Walker result is preserved so the gate can see the partial fill.
	require.NotNil(t, q.Slippage)
	assert.False(t, q.Slippage.CanFill)
	assert.InDelta(t, 5, q.Slippage.FilledSize, 1e-9)
}

func TestResolve_MarketNoBookNoQuote(t *testing.T) {
	_, err := newResolver().Resolve(marketIntent(domain.SideBuy, 30), nil, nil)

	assert.ErrorIs(t, err, domain.ErrNoPriceSource)
}

func TestResolve_InvalidIntent(t *testing.T) {
	bad := limitIntent(0.5)
	bad.Size = 0

	_, err := newResolver().Resolve(bad, nil, nil)

	assert.ErrorIs(t, err, domain.ErrInvalidIntent)
}
