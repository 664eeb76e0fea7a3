package domain

import "time"

// PriceLevel is a single price+size entry on one side of the book.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderbookSnapshot is an immutable snapshot of bids and asks for one token.
// Bids are ordered best-first (descending price), asks best-first (ascending
// price). A fresh snapshot supersedes an old one; snapshots are never mutated.
type OrderbookSnapshot struct {
	AssetID   string
	Bids      []PriceLevel
	Asks      []PriceLevel
	Timestamp time.Time
}

// BestBid returns the highest bid price, or 0 when the bid side is empty.
func (s OrderbookSnapshot) BestBid() float64 {
	if len(s.Bids) == 0 {
		return 0
	}
	return s.Bids[0].Price
}

// BestAsk returns the lowest ask price, or 0 when the ask side is empty.
func (s OrderbookSnapshot) BestAsk() float64 {
	if len(s.Asks) == 0 {
		return 0
	}
	return s.Asks[0].Price
}

// OutcomeQuote is the last-known reference price for an outcome token, used
// as the pricing fallback when no book snapshot is available.
type OutcomeQuote struct {
	TokenID        string
	ReferencePrice float64
	Timestamp      time.Time
}
