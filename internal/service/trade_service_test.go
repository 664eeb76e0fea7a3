package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantish/clobtrade/internal/domain"
	"github.com/quantish/clobtrade/internal/lifecycle"
	"github.com/quantish/clobtrade/internal/pricing"
)

// ---------------------------------------------------------------------------
// In-memory fakes
// ---------------------------------------------------------------------------

type memFundsCache struct {
	funds       map[string]domain.Funds
	invalidated int
}

func newMemFundsCache() *memFundsCache {
	return &memFundsCache{funds: map[string]domain.Funds{}}
}

func (m *memFundsCache) SetFunds(_ context.Context, owner string, funds domain.Funds) error {
	m.funds[owner] = funds
	return nil
}

func (m *memFundsCache) GetFunds(_ context.Context, owner string) (domain.Funds, error) {
	f, ok := m.funds[owner]
	if !ok {
		return domain.Funds{}, domain.ErrNotFound
	}
	return f, nil
}

func (m *memFundsCache) Invalidate(_ context.Context, owner string) error {
	delete(m.funds, owner)
	m.invalidated++
	return nil
}

type memPositionCache struct {
	positions   map[string][]domain.Position
	invalidated int
}

func newMemPositionCache() *memPositionCache {
	return &memPositionCache{positions: map[string][]domain.Position{}}
}

func (m *memPositionCache) SetPositions(_ context.Context, owner string, positions []domain.Position) error {
	m.positions[owner] = positions
	return nil
}

func (m *memPositionCache) GetPosition(_ context.Context, owner, tokenID string) (domain.Position, error) {
	ps, ok := m.positions[owner]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	for _, p := range ps {
		if p.TokenID == tokenID {
			return p, nil
		}
	}
	return domain.Position{TokenID: tokenID}, nil
}

func (m *memPositionCache) Invalidate(_ context.Context, owner string) error {
	delete(m.positions, owner)
	m.invalidated++
	return nil
}

type memBookCache struct {
	snaps map[string]domain.OrderbookSnapshot
}

func newMemBookCache() *memBookCache {
	return &memBookCache{snaps: map[string]domain.OrderbookSnapshot{}}
}

func (m *memBookCache) SetSnapshot(_ context.Context, snap domain.OrderbookSnapshot) error {
	m.snaps[snap.AssetID] = snap
	return nil
}

func (m *memBookCache) GetSnapshot(_ context.Context, tokenID string) (domain.OrderbookSnapshot, error) {
	s, ok := m.snaps[tokenID]
	if !ok {
		return domain.OrderbookSnapshot{}, domain.ErrNotFound
	}
	return s, nil
}

func (m *memBookCache) Invalidate(_ context.Context, tokenID string) error {
	delete(m.snaps, tokenID)
	return nil
}

type memQuoteCache struct {
	quotes map[string]domain.OutcomeQuote
}

func newMemQuoteCache() *memQuoteCache {
	return &memQuoteCache{quotes: map[string]domain.OutcomeQuote{}}
}

func (m *memQuoteCache) SetQuote(_ context.Context, quote domain.OutcomeQuote) error {
	m.quotes[quote.TokenID] = quote
	return nil
}

func (m *memQuoteCache) GetQuote(_ context.Context, tokenID string) (domain.OutcomeQuote, error) {
	q, ok := m.quotes[tokenID]
	if !ok {
		return domain.OutcomeQuote{}, domain.ErrNotFound
	}
	return q, nil
}

type fakeChain struct {
	balance      float64
	allowance    float64
	allowanceErr error
	balanceCalls int
}

func (f *fakeChain) Balance(_ context.Context, _ string) (float64, error) {
	f.balanceCalls++
	return f.balance, nil
}

func (f *fakeChain) Allowance(_ context.Context, _, _ string) (float64, error) {
	if f.allowanceErr != nil {
		return 0, f.allowanceErr
	}
	return f.allowance, nil
}

type fakePositionReader struct {
	positions []domain.Position
	calls     int
}

func (f *fakePositionReader) Positions(_ context.Context, _ string) ([]domain.Position, error) {
	f.calls++
	return f.positions, nil
}

type fakeSubmitter struct {
	state   lifecycle.State
	err     error
	orderID string
	intents []domain.OrderIntent
	prices  []float64
}

func (f *fakeSubmitter) Submit(_ context.Context, intent domain.OrderIntent, price float64) (lifecycle.State, error) {
	f.intents = append(f.intents, intent)
	f.prices = append(f.prices, price)
	return f.state, f.err
}

func (f *fakeSubmitter) OrderID() string { return f.orderID }

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

const owner = "0xmaker"

type fixture struct {
	trade     *TradeService
	books     *memBookCache
	quotes    *memQuoteCache
	chain     *fakeChain
	reader    *fakePositionReader
	submitter *fakeSubmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	chain := &fakeChain{balance: 1000, allowance: 1000}
	reader := &fakePositionReader{}
	submitter := &fakeSubmitter{state: lifecycle.StateConfirmed, orderID: "ord-1"}
	books := newMemBookCache()
	quotes := newMemQuoteCache()

	funds := NewFundsService(chain, newMemFundsCache(), "0xspender", logger)
	positions := NewPositionService(reader, newMemPositionCache(), nil, logger)

	trade := NewTradeService(
		pricing.Resolver{TickSize: 0.01, MarketBufferBps: 50, MaxSlippageBps: 200},
		books, quotes, funds, positions, submitter,
		MarketRules{TickSize: 0.01, MinNotional: 1, MinSize: 5},
		owner, logger,
	)

	return &fixture{trade: trade, books: books, quotes: quotes, chain: chain, reader: reader, submitter: submitter}
}

func askBook(tokenID string) domain.OrderbookSnapshot {
	return domain.OrderbookSnapshot{
		AssetID: tokenID,
		Bids:    []domain.PriceLevel{{Price: 0.58, Size: 100}},
		Asks:    []domain.PriceLevel{{Price: 0.60, Size: 50}},
	}
}

// ---------------------------------------------------------------------------
// Preview
// ---------------------------------------------------------------------------

func TestPreview_LimitOrder(t *testing.T) {
	f := newFixture(t)
	intent := lifecycle.NewLimitIntent("tok-1", domain.SideBuy, 10, 0.555)

	p, err := f.trade.Preview(context.Background(), intent)

	require.NoError(t, err)
	assert.InDelta(t, 0.56, p.Price, 1e-12)
	assert.InDelta(t, 5.6, p.Notional, 1e-9)
	assert.Nil(t, p.Slippage)
	assert.False(t, p.Eligibility.Blocked())
}

func TestPreview_MarketOrderWalksBook(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.books.SetSnapshot(context.Background(), askBook("tok-1")))
	intent := lifecycle.NewMarketIntent("tok-1", domain.SideBuy, 30, false)

	p, err := f.trade.Preview(context.Background(), intent)

	require.NoError(t, err)
	// Worst fill 0.60 padded by 50 bps and rounded up.
	assert.InDelta(t, 0.61, p.Price, 1e-12)
	assert.InDelta(t, 18.0, p.Notional, 1e-9)
	require.NotNil(t, p.Slippage)
	assert.True(t, p.Slippage.CanFill)
}

func TestPreview_MarketOrderQuoteFallback(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.quotes.SetQuote(context.Background(), domain.OutcomeQuote{
		TokenID:        "tok-1",
		ReferencePrice: 0.50,
		Timestamp:      time.Now(),
	}))
	intent := lifecycle.NewMarketIntent("tok-1", domain.SideBuy, 30, false)

	p, err := f.trade.Preview(context.Background(), intent)

	require.NoError(t, err)
	// 0.50 padded by 200 bps and rounded up.
	assert.InDelta(t, 0.51, p.Price, 1e-12)
}

func TestPreview_NoPriceSource(t *testing.T) {
	f := newFixture(t)
	intent := lifecycle.NewMarketIntent("tok-1", domain.SideBuy, 30, false)

	_, err := f.trade.Preview(context.Background(), intent)

	assert.ErrorIs(t, err, domain.ErrNoPriceSource)
}

func TestPreview_SellUsesPositionCeiling(t *testing.T) {
	f := newFixture(t)
	f.reader.positions = []domain.Position{{TokenID: "tok-1", Size: 10}}
	intent := lifecycle.NewLimitIntent("tok-1", domain.SideSell, 15, 0.40)

	p, err := f.trade.Preview(context.Background(), intent)

	require.NoError(t, err)
	assert.True(t, p.Eligibility.ExceedsPosition)
	assert.True(t, p.Eligibility.Blocked())
}

func TestPreview_InsufficientBalance(t *testing.T) {
	f := newFixture(t)
	f.chain.balance = 2
	intent := lifecycle.NewLimitIntent("tok-1", domain.SideBuy, 10, 0.55)

	p, err := f.trade.Preview(context.Background(), intent)

	require.NoError(t, err)
	assert.True(t, p.Eligibility.InsufficientBalance)
	assert.Equal(t, "insufficient balance", p.Eligibility.Reason())
}

func TestPreview_UnknownAllowanceDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	f.chain.allowanceErr = domain.ErrProviderUnavailable
	intent := lifecycle.NewLimitIntent("tok-1", domain.SideBuy, 10, 0.55)

	p, err := f.trade.Preview(context.Background(), intent)

	require.NoError(t, err)
	assert.False(t, p.Eligibility.NoAllowance)
	assert.False(t, p.Eligibility.InsufficientAllowance)
}

// ---------------------------------------------------------------------------
// Execute
// ---------------------------------------------------------------------------

func TestExecute_SubmitsAtResolvedPrice(t *testing.T) {
	f := newFixture(t)
	intent := lifecycle.NewLimitIntent("tok-1", domain.SideBuy, 10, 0.555)

	res, err := f.trade.Execute(context.Background(), intent)

	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateConfirmed, res.State)
	assert.Equal(t, "ord-1", res.OrderID)
	require.Len(t, f.submitter.prices, 1)
	assert.InDelta(t, 0.56, f.submitter.prices[0], 1e-12)
}

func TestExecute_BlockedTradeNeverSubmits(t *testing.T) {
	f := newFixture(t)
	f.chain.balance = 0
	intent := lifecycle.NewLimitIntent("tok-1", domain.SideBuy, 10, 0.55)

	res, err := f.trade.Execute(context.Background(), intent)

	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateIdle, res.State)
	assert.Equal(t, "insufficient balance", res.BlockedReason)
	assert.Empty(t, f.submitter.intents)
}

func TestExecute_SubmissionFailurePropagates(t *testing.T) {
	f := newFixture(t)
	f.submitter.state = lifecycle.StateFailed
	f.submitter.err = domain.ErrRejectedByExchange
	intent := lifecycle.NewLimitIntent("tok-1", domain.SideBuy, 10, 0.55)

	res, err := f.trade.Execute(context.Background(), intent)

	assert.ErrorIs(t, err, domain.ErrRejectedByExchange)
	assert.Equal(t, lifecycle.StateFailed, res.State)
}

// ---------------------------------------------------------------------------
// Read-through behavior
// ---------------------------------------------------------------------------

func TestFundsService_ReadThrough(t *testing.T) {
	f := newFixture(t)
	intent := lifecycle.NewLimitIntent("tok-1", domain.SideBuy, 10, 0.55)

	_, err := f.trade.Preview(context.Background(), intent)
	require.NoError(t, err)
	_, err = f.trade.Preview(context.Background(), intent)
	require.NoError(t, err)

	// Second preview hits the cache.
	assert.Equal(t, 1, f.chain.balanceCalls)
}
