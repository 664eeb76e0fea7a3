// Package eligibility decides whether an order intent may be submitted.
// The gate never returns errors: blocked submissions are a normal outcome,
// expressed as named conditions the caller maps to UI state.
package eligibility

import (
	"github.com/quantish/clobtrade/internal/domain"
	"github.com/quantish/clobtrade/internal/pricing"
)

// Result holds every blocking condition, evaluated independently; several
// can be true at once and the caller decides which to surface. Submission is
// permitted iff Blocked() is false.
type Result struct {
	InsufficientBalance   bool
	NoAllowance           bool
	InsufficientAllowance bool
	BelowMinNotional      bool
	BelowMinSize          bool
	ExceedsPosition       bool
	CannotFullyFill       bool
}

// Blocked reports whether any condition vetoes submission.
func (r Result) Blocked() bool {
	return r.InsufficientBalance ||
		r.NoAllowance ||
		r.InsufficientAllowance ||
		r.BelowMinNotional ||
		r.BelowMinSize ||
		r.ExceedsPosition ||
		r.CannotFullyFill
}

// Reason returns the highest-priority blocking reason for display, or ""
// when nothing blocks. Priority: balance > allowance > minimums > position
// size > fill feasibility.
func (r Result) Reason() string {
	switch {
	case r.InsufficientBalance:
		return "insufficient balance"
	case r.NoAllowance:
		return "no spender allowance set"
	case r.InsufficientAllowance:
		return "insufficient spender allowance"
	case r.BelowMinNotional:
		return "order value below market minimum"
	case r.BelowMinSize:
		return "order size below market minimum"
	case r.ExceedsPosition:
		return "sell size exceeds position"
	case r.CannotFullyFill:
		return "order cannot be fully filled"
	}
	return ""
}

// Evaluate computes all blocking conditions for intent against snap.
//
// slip is the walker result for market intents (nil when no book was
// available; with no depth information, fill feasibility is not judged).
// bestAsk is the current best ask, used to decide whether a limit BUY is
// marketable; pass 0 when unknown.
func Evaluate(snap domain.EligibilitySnapshot, intent domain.OrderIntent, slip *pricing.SlippageResult, bestAsk float64) Result {
	var r Result

	if intent.Side == domain.SideBuy && snap.RequiredNotional > snap.CollateralBalance {
		r.InsufficientBalance = true
	}

	if snap.SpenderAllowance != nil {
		if *snap.SpenderAllowance == 0 {
			r.NoAllowance = true
		}
		if snap.RequiredNotional > *snap.SpenderAllowance {
			r.InsufficientAllowance = true
		}
	}

	if marketable(intent, bestAsk) && snap.RequiredNotional < snap.MinNotional {
		r.BelowMinNotional = true
	}

	if intent.Side == domain.SideBuy && intent.Size < snap.MinSize {
		r.BelowMinSize = true
	}

	if intent.Side == domain.SideSell && intent.Size > snap.MaxSellSize {
		r.ExceedsPosition = true
	}

	if intent.Kind == domain.KindMarket && slip != nil && !slip.CanFill && !intent.AllowPartial {
		r.CannotFullyFill = true
	}

	return r
}

// marketable reports whether a BUY would execute immediately: any market
// buy, or a limit buy priced at or through the best ask.
func marketable(intent domain.OrderIntent, bestAsk float64) bool {
	if intent.Side != domain.SideBuy {
		return false
	}
	if intent.Kind == domain.KindMarket {
		return true
	}
	return bestAsk > 0 && intent.LimitPrice >= bestAsk
}
