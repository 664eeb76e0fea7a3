package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantish/clobtrade/internal/domain"
)

// immediateClock fires every After without waiting and records the requested
// durations.
type immediateClock struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (c *immediateClock) Now() time.Time { return time.Unix(1_700_000_000, 0) }

func (c *immediateClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}

func TestOnFill_InvalidatesAndRefetches(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	chain := &fakeChain{balance: 42, allowance: 100}
	reader := &fakePositionReader{positions: []domain.Position{{TokenID: "tok-1", Size: 5}}}
	fundsCache := newMemFundsCache()
	posCache := newMemPositionCache()

	funds := NewFundsService(chain, fundsCache, "0xspender", logger)
	positions := NewPositionService(reader, posCache, nil, logger)
	clock := &immediateClock{}
	offsets := []time.Duration{time.Second, 3 * time.Second, 5 * time.Second}

	refresh := NewRefreshService(funds, positions, clock, offsets, logger)

	// Seed stale entries so invalidation is observable.
	require.NoError(t, fundsCache.SetFunds(context.Background(), owner, domain.Funds{Balance: 1}))
	require.NoError(t, posCache.SetPositions(context.Background(), owner, nil))

	refresh.OnFill(context.Background(), owner)
	refresh.Wait()

	// One immediate round plus one per offset.
	assert.Equal(t, 4, fundsCache.invalidated)
	assert.Equal(t, 4, posCache.invalidated)
	assert.Equal(t, 4, chain.balanceCalls)
	assert.Equal(t, 4, reader.calls)

	// Waits are deltas between consecutive offsets.
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 2 * time.Second}, clock.waits)

	// Caches hold the fresh values afterwards.
	got, err := fundsCache.GetFunds(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 42.0, got.Balance)

	pos, err := posCache.GetPosition(context.Background(), owner, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, 5.0, pos.Size)
}

func TestOnFill_SynchronousRoundBeforeReturn(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	chain := &fakeChain{balance: 42}
	fundsCache := newMemFundsCache()
	funds := NewFundsService(chain, fundsCache, "0xspender", logger)
	positions := NewPositionService(&fakePositionReader{}, newMemPositionCache(), nil, logger)

	// A clock that never fires keeps the delayed rounds parked.
	refresh := NewRefreshService(funds, positions, blockedClock{}, nil, logger)

	require.NoError(t, fundsCache.SetFunds(context.Background(), owner, domain.Funds{Balance: 1}))

	ctx, cancel := context.WithCancel(context.Background())
	refresh.OnFill(ctx, owner)

	// The immediate round completed before OnFill returned.
	got, err := fundsCache.GetFunds(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 42.0, got.Balance)
	assert.Equal(t, 1, chain.balanceCalls)

	cancel()
	refresh.Wait()
}

type blockedClock struct{}

func (blockedClock) Now() time.Time                       { return time.Unix(1_700_000_000, 0) }
func (blockedClock) After(time.Duration) <-chan time.Time { return make(chan time.Time) }
