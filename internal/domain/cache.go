package domain

import "context"

// FundsCache caches balance/allowance pairs per owner address. Invalidate
// removes the entry so the next read goes back to the chain.
type FundsCache interface {
	SetFunds(ctx context.Context, owner string, funds Funds) error
	GetFunds(ctx context.Context, owner string) (Funds, error)
	Invalidate(ctx context.Context, owner string) error
}

// PositionCache caches open positions per owner address.
type PositionCache interface {
	SetPositions(ctx context.Context, owner string, positions []Position) error
	GetPosition(ctx context.Context, owner, tokenID string) (Position, error)
	Invalidate(ctx context.Context, owner string) error
}

// BookCache stores the latest orderbook snapshot per token. It doubles as the
// engine's BookSource; a cache miss means no book is available and the caller
// must fall back to a reference quote.
type BookCache interface {
	SetSnapshot(ctx context.Context, snap OrderbookSnapshot) error
	GetSnapshot(ctx context.Context, tokenID string) (OrderbookSnapshot, error)
	Invalidate(ctx context.Context, tokenID string) error
}

// QuoteCache stores the last-known reference price per token.
type QuoteCache interface {
	SetQuote(ctx context.Context, quote OutcomeQuote) error
	GetQuote(ctx context.Context, tokenID string) (OutcomeQuote, error)
}
