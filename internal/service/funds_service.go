// Package service composes the pricing core, the eligibility gate, and the
// order lifecycle into the operations callers actually invoke: preview a
// trade, execute it, and keep the funding caches honest after fills.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quantish/clobtrade/internal/domain"
)

// FundsService is a read-through cache over the chain reader: collateral
// balance and exchange spender allowance per owner.
type FundsService struct {
	chain   domain.ChainReader
	cache   domain.FundsCache
	spender string
	logger  *slog.Logger
}

// NewFundsService creates a FundsService. spender is the exchange contract
// whose allowance gates order submission.
func NewFundsService(chain domain.ChainReader, cache domain.FundsCache, spender string, logger *slog.Logger) *FundsService {
	return &FundsService{
		chain:   chain,
		cache:   cache,
		spender: spender,
		logger:  logger.With(slog.String("component", "funds_service")),
	}
}

// Funds returns the owner's balance and allowance, from cache when warm.
func (s *FundsService) Funds(ctx context.Context, owner string) (domain.Funds, error) {
	funds, err := s.cache.GetFunds(ctx, owner)
	if err == nil {
		return funds, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		// A broken cache must not block trading; fall through to the chain.
		s.logger.WarnContext(ctx, "funds cache read failed",
			slog.String("owner", owner),
			slog.String("error", err.Error()),
		)
	}

	return s.Refresh(ctx, owner)
}

// Refresh fetches balance and allowance from the chain and repopulates the
// cache. A failed allowance read degrades to nil (unknown) rather than
// failing the whole refresh; a failed balance read is fatal because nothing
// downstream can proceed without it.
func (s *FundsService) Refresh(ctx context.Context, owner string) (domain.Funds, error) {
	balance, err := s.chain.Balance(ctx, owner)
	if err != nil {
		return domain.Funds{}, fmt.Errorf("service: refresh funds: %w", err)
	}

	funds := domain.Funds{Balance: balance}
	if allowance, err := s.chain.Allowance(ctx, owner, s.spender); err != nil {
		s.logger.WarnContext(ctx, "allowance read failed",
			slog.String("owner", owner),
			slog.String("error", err.Error()),
		)
	} else {
		funds.Allowance = &allowance
	}

	if err := s.cache.SetFunds(ctx, owner, funds); err != nil {
		s.logger.WarnContext(ctx, "funds cache write failed",
			slog.String("owner", owner),
			slog.String("error", err.Error()),
		)
	}

	return funds, nil
}

// Invalidate drops the owner's cached funds.
func (s *FundsService) Invalidate(ctx context.Context, owner string) error {
	return s.cache.Invalidate(ctx, owner)
}
