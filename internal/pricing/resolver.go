package pricing

import (
	"fmt"

	"github.com/quantish/clobtrade/internal/domain"
)

// Quote is the resolver's output: the single tick-aligned price an order
// will be submitted at, and the notional it implies.
type Quote struct {
	// Price is tick-aligned and clamped to [tick, 1-tick].
	Price float64
	// Notional is the total cost (BUY) or proceeds (SELL). When the book
	// could fill the full size this is the walker's exact consumed value;
	// otherwise it is the Price × Size approximation.
	Notional float64
	// Slippage is set when a book snapshot was walked (market orders only),
	// so the eligibility gate can judge fill feasibility.
	Slippage *SlippageResult
}

// Resolver turns an order intent plus market data into an execution price.
// Market intents become aggressive limit prices: the walker's worst price
// padded directionally by MarketBufferBps to absorb movement between
// snapshot time and execution time. When the book is missing or too thin,
// the reference quote padded by MaxSlippageBps is used instead.
//
// Both paddings are policy knobs, not contracts; tune them in config.
type Resolver struct {
	TickSize        float64
	MarketBufferBps float64
	MaxSlippageBps  float64
}

// Resolve computes the execution price for intent. book and quote may each
// be nil; a market intent with neither returns ErrNoPriceSource.
func (r Resolver) Resolve(intent domain.OrderIntent, book *domain.OrderbookSnapshot, quote *domain.OutcomeQuote) (Quote, error) {
	if err := intent.Validate(); err != nil {
		return Quote{}, err
	}

	if intent.Kind == domain.KindLimit {
		p := RoundToTick(intent.LimitPrice, r.TickSize)
		return Quote{Price: p, Notional: p * intent.Size}, nil
	}

	var slip *SlippageResult
	if book != nil {
		res := WalkBook(*book, intent.Side, intent.Size)
		slip = &res
		if res.CanFill {
			return Quote{
				Price:    r.padBookPrice(res.WorstPrice, intent.Side),
				Notional: res.TotalNotional,
				Slippage: slip,
			}, nil
		}
	}

	if quote == nil || quote.ReferencePrice <= 0 {
		return Quote{}, fmt.Errorf("pricing: resolve %s %s: %w", intent.Side, intent.TokenID, domain.ErrNoPriceSource)
	}

	p := r.padQuotePrice(quote.ReferencePrice, intent.Side)
	return Quote{Price: p, Notional: p * intent.Size, Slippage: slip}, nil
}

// padBookPrice pads the walker's worst price by the market buffer in the
// filling direction, then snaps it outward onto the tick grid.
func (r Resolver) padBookPrice(worst float64, side domain.Side) float64 {
	buffer := r.MarketBufferBps / 10_000
	if side == domain.SideBuy {
		return RoundUpToTick(worst*(1+buffer), r.TickSize)
	}
	return RoundDownToTick(worst*(1-buffer), r.TickSize)
}

// padQuotePrice pads the reference price by the configured maximum slippage
// in the filling direction.
func (r Resolver) padQuotePrice(ref float64, side domain.Side) float64 {
	maxSlip := r.MaxSlippageBps / 10_000
	if side == domain.SideBuy {
		return RoundUpToTick(ref*(1+maxSlip), r.TickSize)
	}
	return RoundDownToTick(ref*(1-maxSlip), r.TickSize)
}
