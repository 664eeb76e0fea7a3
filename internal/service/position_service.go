package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quantish/clobtrade/internal/domain"
)

// TokenBalanceReader reads a single outcome-token balance directly from the
// chain. It backs up the indexer when the latter is unreachable.
type TokenBalanceReader interface {
	TokenBalance(ctx context.Context, owner, tokenID string) (float64, error)
}

// PositionService is a read-through cache over the positions indexer, with a
// direct on-chain balance read as the degraded path.
type PositionService struct {
	reader domain.PositionReader
	chain  TokenBalanceReader // optional
	cache  domain.PositionCache
	logger *slog.Logger
}

// NewPositionService creates a PositionService. chain may be nil; without it
// an indexer outage surfaces as an error instead of falling back.
func NewPositionService(reader domain.PositionReader, cache domain.PositionCache, chain TokenBalanceReader, logger *slog.Logger) *PositionService {
	return &PositionService{
		reader: reader,
		chain:  chain,
		cache:  cache,
		logger: logger.With(slog.String("component", "position_service")),
	}
}

// PositionSize returns the owner's holding of one token, from cache when
// warm. An owner with no position in the token gets zero, not an error.
// When the indexer is down the size is read from the chain directly; that
// read bypasses the cache since it covers only one token.
func (s *PositionService) PositionSize(ctx context.Context, owner, tokenID string) (float64, error) {
	pos, err := s.cache.GetPosition(ctx, owner, tokenID)
	if err == nil {
		return pos.Size, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "position cache read failed",
			slog.String("owner", owner),
			slog.String("error", err.Error()),
		)
	}

	positions, err := s.Refresh(ctx, owner)
	if err != nil {
		if s.chain == nil {
			return 0, err
		}
		size, chainErr := s.chain.TokenBalance(ctx, owner, tokenID)
		if chainErr != nil {
			return 0, fmt.Errorf("service: position size: %w", err)
		}
		s.logger.WarnContext(ctx, "indexer unavailable, using on-chain token balance",
			slog.String("owner", owner),
			slog.String("token_id", tokenID),
			slog.String("error", err.Error()),
		)
		return size, nil
	}
	for _, p := range positions {
		if p.TokenID == tokenID {
			return p.Size, nil
		}
	}
	return 0, nil
}

// Refresh fetches the owner's positions from the indexer and repopulates
// the cache.
func (s *PositionService) Refresh(ctx context.Context, owner string) ([]domain.Position, error) {
	positions, err := s.reader.Positions(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("service: refresh positions: %w", err)
	}

	if err := s.cache.SetPositions(ctx, owner, positions); err != nil {
		s.logger.WarnContext(ctx, "position cache write failed",
			slog.String("owner", owner),
			slog.String("error", err.Error()),
		)
	}

	return positions, nil
}

// Invalidate drops the owner's cached positions.
func (s *PositionService) Invalidate(ctx context.Context, owner string) error {
	return s.cache.Invalidate(ctx, owner)
}
