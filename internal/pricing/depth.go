package pricing

import "github.com/quantish/clobtrade/internal/domain"

// SlippageResult describes what a requested size can extract from one side
// of the book. It is derived from a single snapshot and never cached.
type SlippageResult struct {
	// WorstPrice is the price of the deepest level touched. Meaningless when
	// FilledSize is 0 (empty side); callers must fall back to a quote.
	WorstPrice float64
	// TotalNotional is the exact sum of consumed size × level price.
	TotalNotional float64
	// FilledSize is how much of the request the book can actually absorb.
	FilledSize float64
	// CanFill is true iff the full requested size is available.
	CanFill bool
}

// WalkBook walks the side of the book a taker order would consume (asks for
// a BUY, bids for a SELL) from the best price outward, accumulating size
// until the request is satisfied or the side is exhausted. The walk depends
// only on the snapshot passed in; identical inputs always produce identical
// results.
//
// A size of 0 or less is a caller bug; the walk reports nothing fillable.
func WalkBook(snap domain.OrderbookSnapshot, side domain.Side, size float64) SlippageResult {
	levels := snap.Asks
	if side == domain.SideSell {
		levels = snap.Bids
	}

	var res SlippageResult
	if size <= 0 {
		return res
	}

	remaining := size
	for _, lvl := range levels {
		if remaining <= 0 {
			break
		}
		consumed := lvl.Size
		if consumed > remaining {
			consumed = remaining
		}
		res.FilledSize += consumed
		res.TotalNotional += consumed * lvl.Price
		res.WorstPrice = lvl.Price
		remaining -= consumed
	}

	res.CanFill = res.FilledSize >= size
	return res
}
