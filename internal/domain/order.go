package domain

import (
	"fmt"
	"math/big"
)

// Side indicates whether an order buys or sells outcome tokens.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderKind distinguishes user-facing order types. The exchange has no native
// market order; market intents are expressed as aggressive limit orders with
// an immediate time-in-force.
type OrderKind string

const (
	KindLimit  OrderKind = "LIMIT"
	KindMarket OrderKind = "MARKET"
)

// TimeInForce is the execution policy sent to the exchange.
type TimeInForce string

const (
	TIFGoodTillCancelled TimeInForce = "GTC"
	TIFGoodTillDate      TimeInForce = "GTD"
	TIFFillOrKill        TimeInForce = "FOK"
	TIFFillAndKill       TimeInForce = "FAK"
)

// OrderStatus is the exchange-reported status of a posted order.
type OrderStatus string

const (
	StatusLive      OrderStatus = "live"
	StatusMatched   OrderStatus = "matched"
	StatusDelayed   OrderStatus = "delayed"
	StatusCancelled OrderStatus = "cancelled"
	StatusUnmatched OrderStatus = "unmatched"
	StatusUnknown   OrderStatus = "unknown"
)

// Terminal reports whether the status will not change with further polling.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusLive, StatusMatched, StatusCancelled, StatusUnmatched:
		return true
	}
	return false
}

// Succeeded reports whether a terminal status counts as a successful
// placement: a filled order or a resting order the exchange accepted.
func (s OrderStatus) Succeeded() bool {
	return s == StatusMatched || s == StatusLive
}

// OrderIntent is the immutable description of one submission attempt. Build
// intents through the lifecycle constructors so the time-in-force and
// expiration are always consistent with the order kind; a retry is a new
// intent, never a mutation of an old one.
type OrderIntent struct {
	TokenID      string
	Side         Side
	Size         float64
	Kind         OrderKind
	LimitPrice   float64 // only meaningful for KindLimit
	TimeInForce  TimeInForce
	Expiration   int64 // unix seconds, GTD only, zero otherwise
	AllowPartial bool
}

// Validate checks structural well-formedness. Anything caught here fails
// before a single collaborator is called.
func (i OrderIntent) Validate() error {
	if i.TokenID == "" {
		return fmt.Errorf("%w: token id required", ErrInvalidIntent)
	}
	if i.Side != SideBuy && i.Side != SideSell {
		return fmt.Errorf("%w: side %q", ErrInvalidIntent, i.Side)
	}
	if i.Size <= 0 {
		return fmt.Errorf("%w: size must be positive, got %v", ErrInvalidIntent, i.Size)
	}
	switch i.Kind {
	case KindLimit:
		if i.LimitPrice <= 0 || i.LimitPrice >= 1 {
			return fmt.Errorf("%w: limit price %v outside (0,1)", ErrInvalidIntent, i.LimitPrice)
		}
		if i.TimeInForce != TIFGoodTillCancelled && i.TimeInForce != TIFGoodTillDate {
			return fmt.Errorf("%w: limit order with tif %q", ErrInvalidIntent, i.TimeInForce)
		}
		if i.TimeInForce == TIFGoodTillDate && i.Expiration <= 0 {
			return fmt.Errorf("%w: GTD order without expiration", ErrInvalidIntent)
		}
	case KindMarket:
		if i.TimeInForce != TIFFillOrKill && i.TimeInForce != TIFFillAndKill {
			return fmt.Errorf("%w: market order with tif %q", ErrInvalidIntent, i.TimeInForce)
		}
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidIntent, i.Kind)
	}
	return nil
}

// SignedOrder is a fully-formed, signed exchange order ready for submission.
// Amounts are integer micro-units (1e6) as required by the signed payload.
type SignedOrder struct {
	Intent        OrderIntent
	Price         float64 // resolved, tick-aligned execution price
	Salt          string
	Maker         string
	SignerAddr    string
	Taker         string
	MakerAmount   *big.Int
	TakerAmount   *big.Int
	Nonce         string
	FeeRateBps    string
	SignatureType int
	Signature     string
}

// PostedOrder is the exchange's receipt for an accepted submission.
type PostedOrder struct {
	OrderID string
	Status  OrderStatus
}
