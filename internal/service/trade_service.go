package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quantish/clobtrade/internal/domain"
	"github.com/quantish/clobtrade/internal/eligibility"
	"github.com/quantish/clobtrade/internal/lifecycle"
	"github.com/quantish/clobtrade/internal/pricing"
)

// MarketRules holds the per-market order constraints enforced by the
// eligibility gate.
type MarketRules struct {
	TickSize    float64
	MinNotional float64
	MinSize     float64
}

// Preview is everything known about a trade before submission: the resolved
// execution price, its notional, the depth walk (market orders with a book),
// and the eligibility verdict.
type Preview struct {
	Price       float64
	Notional    float64
	Slippage    *pricing.SlippageResult
	Eligibility eligibility.Result
}

// ExecuteResult reports a submission attempt. A blocked trade is a normal
// outcome: State stays Idle and BlockedReason names the condition.
type ExecuteResult struct {
	Preview       Preview
	State         lifecycle.State
	OrderID       string
	BlockedReason string
}

// orderSubmitter is the slice of the lifecycle controller the trade service
// uses.
type orderSubmitter interface {
	Submit(ctx context.Context, intent domain.OrderIntent, price float64) (lifecycle.State, error)
	OrderID() string
}

// TradeService wires price resolution, eligibility, and the order lifecycle
// into the preview/execute flow for a single trading wallet.
type TradeService struct {
	resolver  pricing.Resolver
	books     domain.BookCache
	quotes    domain.QuoteCache
	funds     *FundsService
	positions *PositionService
	submitter orderSubmitter
	rules     MarketRules
	owner     string
	logger    *slog.Logger
}

// NewTradeService creates a TradeService for the given owner address.
func NewTradeService(
	resolver pricing.Resolver,
	books domain.BookCache,
	quotes domain.QuoteCache,
	funds *FundsService,
	positions *PositionService,
	submitter orderSubmitter,
	rules MarketRules,
	owner string,
	logger *slog.Logger,
) *TradeService {
	return &TradeService{
		resolver:  resolver,
		books:     books,
		quotes:    quotes,
		funds:     funds,
		positions: positions,
		submitter: submitter,
		rules:     rules,
		owner:     owner,
		logger:    logger.With(slog.String("component", "trade_service")),
	}
}

// Preview resolves the execution price for intent and evaluates eligibility
// without submitting anything. Blocked trades return normally; only missing
// price sources and unreadable funding state are errors.
func (s *TradeService) Preview(ctx context.Context, intent domain.OrderIntent) (Preview, error) {
	book := s.bookSnapshot(ctx, intent.TokenID)
	quote := s.referenceQuote(ctx, intent.TokenID)

	resolved, err := s.resolver.Resolve(intent, book, quote)
	if err != nil {
		return Preview{}, fmt.Errorf("service: preview: %w", err)
	}

	funds, err := s.funds.Funds(ctx, s.owner)
	if err != nil {
		return Preview{}, fmt.Errorf("service: preview: %w", err)
	}

	snap := domain.EligibilitySnapshot{
		CollateralBalance: funds.Balance,
		SpenderAllowance:  funds.Allowance,
		RequiredNotional:  resolved.Notional,
		MinNotional:       s.rules.MinNotional,
		MinSize:           s.rules.MinSize,
	}

	if intent.Side == domain.SideSell {
		size, err := s.positions.PositionSize(ctx, s.owner, intent.TokenID)
		if err != nil {
			return Preview{}, fmt.Errorf("service: preview: %w", err)
		}
		snap.MaxSellSize = size
	}

	var bestAsk float64
	if book != nil {
		bestAsk = book.BestAsk()
	}

	return Preview{
		Price:       resolved.Price,
		Notional:    resolved.Notional,
		Slippage:    resolved.Slippage,
		Eligibility: eligibility.Evaluate(snap, intent, resolved.Slippage, bestAsk),
	}, nil
}

// Execute previews the trade and, when nothing blocks, drives it through
// the lifecycle controller. A blocked trade returns with State Idle and a
// BlockedReason; submission failures return the Failed state alongside the
// error.
func (s *TradeService) Execute(ctx context.Context, intent domain.OrderIntent) (ExecuteResult, error) {
	preview, err := s.Preview(ctx, intent)
	if err != nil {
		return ExecuteResult{}, err
	}

	result := ExecuteResult{Preview: preview, State: lifecycle.StateIdle}

	if preview.Eligibility.Blocked() {
		result.BlockedReason = preview.Eligibility.Reason()
		s.logger.InfoContext(ctx, "trade blocked",
			slog.String("token_id", intent.TokenID),
			slog.String("side", string(intent.Side)),
			slog.String("reason", result.BlockedReason),
		)
		return result, nil
	}

	state, err := s.submitter.Submit(ctx, intent, preview.Price)
	result.State = state
	result.OrderID = s.submitter.OrderID()
	if err != nil {
		return result, fmt.Errorf("service: execute: %w", err)
	}

	return result, nil
}

// bookSnapshot reads the cached book; a miss or cache failure yields nil so
// the resolver falls back to the reference quote.
func (s *TradeService) bookSnapshot(ctx context.Context, tokenID string) *domain.OrderbookSnapshot {
	snap, err := s.books.GetSnapshot(ctx, tokenID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "book cache read failed",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}
	return &snap
}

// referenceQuote reads the cached last trade price; a miss yields nil.
func (s *TradeService) referenceQuote(ctx context.Context, tokenID string) *domain.OutcomeQuote {
	quote, err := s.quotes.GetQuote(ctx, tokenID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "quote cache read failed",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}
	return &quote
}
