package lifecycle

import (
	"time"

	"github.com/quantish/clobtrade/internal/domain"
)

// expirationBuffer is added to every GTD expiration. The exchange enforces
// its own minimum remaining lifetime and rejects orders that expire inside
// that window; the buffer keeps caller-requested durations valid.
const expirationBuffer = 60 * time.Second

// NewLimitIntent builds a good-till-cancelled limit order intent.
func NewLimitIntent(tokenID string, side domain.Side, size, price float64) domain.OrderIntent {
	return domain.OrderIntent{
		TokenID:     tokenID,
		Side:        side,
		Size:        size,
		Kind:        domain.KindLimit,
		LimitPrice:  price,
		TimeInForce: domain.TIFGoodTillCancelled,
	}
}

// NewLimitIntentWithExpiry builds a good-till-date limit order intent that
// the exchange will expire validFor after now, plus the security buffer.
func NewLimitIntentWithExpiry(tokenID string, side domain.Side, size, price float64, validFor time.Duration, now time.Time) domain.OrderIntent {
	return domain.OrderIntent{
		TokenID:     tokenID,
		Side:        side,
		Size:        size,
		Kind:        domain.KindLimit,
		LimitPrice:  price,
		TimeInForce: domain.TIFGoodTillDate,
		Expiration:  now.Add(validFor + expirationBuffer).Unix(),
	}
}

// NewMarketIntent builds a market order intent. Market orders execute
// immediately or not at all: fill-and-kill when partial fills are
// acceptable, fill-or-kill when the full size is required.
func NewMarketIntent(tokenID string, side domain.Side, size float64, allowPartial bool) domain.OrderIntent {
	tif := domain.TIFFillOrKill
	if allowPartial {
		tif = domain.TIFFillAndKill
	}
	return domain.OrderIntent{
		TokenID:      tokenID,
		Side:         side,
		Size:         size,
		Kind:         domain.KindMarket,
		TimeInForce:  tif,
		AllowPartial: allowPartial,
	}
}
