package polymarket

import (
	"sort"
	"strconv"
	"time"

	"github.com/quantish/clobtrade/internal/domain"
)

// --------------------------------------------------------------------------
// CLOB REST DTOs
// --------------------------------------------------------------------------

// apiOrderRequest is the JSON body for placing an order.
type apiOrderRequest struct {
	Order     apiOrderPayload `json:"order"`
	Owner     string          `json:"owner"`
	OrderType string          `json:"orderType"` // "GTC", "GTD", "FOK", "FAK"
}

// apiOrderPayload carries the signed order fields. Amounts, salt, nonce, and
// fee rate travel as decimal strings to preserve precision.
type apiOrderPayload struct {
	Salt          string `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenID"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          string `json:"side"` // "BUY" or "SELL"
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

// APIOrderResult is the response from placing an order.
type APIOrderResult struct {
	Success     bool   `json:"success"`
	ErrorMsg    string `json:"errorMsg,omitempty"`
	OrderID     string `json:"orderID,omitempty"`
	Status      string `json:"status,omitempty"`
	TransactID  string `json:"transactID,omitempty"`
	ShouldRetry bool   `json:"shouldRetry,omitempty"`
}

// ToDomainPostedOrder converts an APIOrderResult to a domain.PostedOrder.
func (r *APIOrderResult) ToDomainPostedOrder() domain.PostedOrder {
	return domain.PostedOrder{
		OrderID: r.OrderID,
		Status:  parseStatus(r.Status),
	}
}

// APIOrder is an order as returned by GET /order/{id}.
type APIOrder struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	AssetID      string `json:"asset_id"`
	Side         string `json:"side"`
	OrderType    string `json:"order_type"`
	OriginalSize string `json:"original_size"`
	SizeMatched  string `json:"size_matched"`
	Price        string `json:"price"`
	Owner        string `json:"owner"`
	CreatedAt    string `json:"created_at"`
}

// parseStatus maps the exchange's status strings to domain statuses.
func parseStatus(s string) domain.OrderStatus {
	switch s {
	case "live", "open":
		return domain.StatusLive
	case "matched", "filled":
		return domain.StatusMatched
	case "delayed":
		return domain.StatusDelayed
	case "cancelled", "canceled":
		return domain.StatusCancelled
	case "unmatched":
		return domain.StatusUnmatched
	default:
		return domain.StatusUnknown
	}
}

// --------------------------------------------------------------------------
// Orderbook DTOs (shared by the REST book endpoint and the WebSocket feed)
// --------------------------------------------------------------------------

// BookMessage is a full orderbook snapshot.
type BookMessage struct {
	AssetID   string         `json:"asset_id"`
	Market    string         `json:"market"`
	Bids      []WSPriceLevel `json:"bids"`
	Asks      []WSPriceLevel `json:"asks"`
	Timestamp string         `json:"timestamp"`
	Hash      string         `json:"hash"`
}

// WSPriceLevel is a single bid/ask level; prices and sizes arrive as strings.
type WSPriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// PriceMessage is the most recent trade price for an asset.
type PriceMessage struct {
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Timestamp string `json:"timestamp"`
}

// WSCommand is the JSON payload sent to the WebSocket to subscribe or
// unsubscribe.
type WSCommand struct {
	Type    string   `json:"type"` // "subscribe" or "unsubscribe"
	Channel string   `json:"channel,omitempty"`
	Assets  []string `json:"assets_ids,omitempty"`
	Markets []string `json:"markets,omitempty"`
}

// --------------------------------------------------------------------------
// Conversion helpers: API types -> domain types
// --------------------------------------------------------------------------

// BookToDomainSnapshot converts a BookMessage to a domain.OrderbookSnapshot.
// Unparseable levels are skipped rather than recorded as zero. The exchange
// does not guarantee level ordering on the wire, so both sides are sorted
// best-first here: bids descending, asks ascending.
func BookToDomainSnapshot(b *BookMessage) domain.OrderbookSnapshot {
	snap := domain.OrderbookSnapshot{
		AssetID:   b.AssetID,
		Timestamp: parseTimestamp(b.Timestamp),
	}

	for _, lvl := range b.Bids {
		if l, ok := parseLevel(lvl); ok {
			snap.Bids = append(snap.Bids, l)
		}
	}
	for _, lvl := range b.Asks {
		if l, ok := parseLevel(lvl); ok {
			snap.Asks = append(snap.Asks, l)
		}
	}

	sort.Slice(snap.Bids, func(i, j int) bool { return snap.Bids[i].Price > snap.Bids[j].Price })
	sort.Slice(snap.Asks, func(i, j int) bool { return snap.Asks[i].Price < snap.Asks[j].Price })

	return snap
}

// PriceToDomainQuote converts a PriceMessage to a domain.OutcomeQuote.
func PriceToDomainQuote(p *PriceMessage) domain.OutcomeQuote {
	price, _ := strconv.ParseFloat(p.Price, 64)
	return domain.OutcomeQuote{
		TokenID:        p.AssetID,
		ReferencePrice: price,
		Timestamp:      parseTimestamp(p.Timestamp),
	}
}

func parseLevel(lvl WSPriceLevel) (domain.PriceLevel, bool) {
	p, err := strconv.ParseFloat(lvl.Price, 64)
	if err != nil {
		return domain.PriceLevel{}, false
	}
	s, err := strconv.ParseFloat(lvl.Size, 64)
	if err != nil {
		return domain.PriceLevel{}, false
	}
	return domain.PriceLevel{Price: p, Size: s}, true
}

// parseTimestamp accepts Unix milliseconds, Unix seconds, or RFC3339; falls
// back to now.
func parseTimestamp(s string) time.Time {
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ts > 1e12 {
			return time.UnixMilli(ts)
		}
		return time.Unix(ts, 0)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Now()
}
