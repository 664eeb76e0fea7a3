// Package pricing holds the pure numeric core of the engine: tick rounding,
// book depth walking, and execution price resolution. Nothing here performs
// I/O or observes the clock; every function is deterministic in its inputs
// and safe to call on every book update.
package pricing

import "math"

// gridEps absorbs float64 dust when a price already sits on the tick grid,
// so directional rounding does not jump an extra tick.
const gridEps = 1e-9

// RoundToTick rounds price to the nearest multiple of tick, breaking ties
// upward (0.555 at tick 0.01 rounds to 0.56), then clamps the result to
// [tick, 1-tick]. It is idempotent and total: malformed prices are clamped,
// never rejected.
func RoundToTick(price, tick float64) float64 {
	n := math.Floor(price/tick + 0.5)
	return clampToGrid(n*tick, tick)
}

// RoundUpToTick rounds price up to the tick grid, then clamps. Buyers round
// up so the padded price is guaranteed to cross the ask.
func RoundUpToTick(price, tick float64) float64 {
	n := math.Ceil(price/tick - gridEps)
	return clampToGrid(n*tick, tick)
}

// RoundDownToTick rounds price down to the tick grid, then clamps. Sellers
// round down so the padded price is guaranteed to cross the bid.
func RoundDownToTick(price, tick float64) float64 {
	n := math.Floor(price/tick + gridEps)
	return clampToGrid(n*tick, tick)
}

// clampToGrid forces a price into [tick, 1-tick]. NaN collapses to the lower
// bound so garbage input still yields a usable price.
func clampToGrid(price, tick float64) float64 {
	lo, hi := tick, 1-tick
	if math.IsNaN(price) || price < lo {
		return lo
	}
	if price > hi {
		return hi
	}
	return price
}
