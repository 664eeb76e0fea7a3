package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantish/clobtrade/internal/domain"
)

type downPositionReader struct {
	err error
}

func (d *downPositionReader) Positions(_ context.Context, _ string) ([]domain.Position, error) {
	return nil, d.err
}

type fakeTokenBalances struct {
	size  float64
	err   error
	calls int
}

func (f *fakeTokenBalances) TokenBalance(_ context.Context, _, _ string) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.size, nil
}

func TestPositionSize_ChainFallbackWhenIndexerDown(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reader := &downPositionReader{err: domain.ErrProviderUnavailable}
	chain := &fakeTokenBalances{size: 7}

	svc := NewPositionService(reader, newMemPositionCache(), chain, logger)

	size, err := svc.PositionSize(context.Background(), owner, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, 7.0, size)
	assert.Equal(t, 1, chain.calls)
}

func TestPositionSize_IndexerDownWithoutChainFallback(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reader := &downPositionReader{err: domain.ErrProviderUnavailable}

	svc := NewPositionService(reader, newMemPositionCache(), nil, logger)

	_, err := svc.PositionSize(context.Background(), owner, "tok-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestPositionSize_ChainFallbackAlsoDown(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reader := &downPositionReader{err: domain.ErrProviderUnavailable}
	chain := &fakeTokenBalances{err: errors.New("rpc timeout")}

	svc := NewPositionService(reader, newMemPositionCache(), chain, logger)

	_, err := svc.PositionSize(context.Background(), owner, "tok-1")
	require.Error(t, err)
	// The indexer error is the one reported, not the fallback's.
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestPositionSize_WarmCacheSkipsReaders(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reader := &downPositionReader{err: domain.ErrProviderUnavailable}
	chain := &fakeTokenBalances{size: 7}
	cache := newMemPositionCache()

	require.NoError(t, cache.SetPositions(context.Background(), owner, []domain.Position{{TokenID: "tok-1", Size: 3}}))

	svc := NewPositionService(reader, cache, chain, logger)

	size, err := svc.PositionSize(context.Background(), owner, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, 3.0, size)
	assert.Zero(t, chain.calls)
}
