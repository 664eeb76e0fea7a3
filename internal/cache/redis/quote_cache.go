package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantish/clobtrade/internal/domain"
)

// quoteTTL keeps the fallback reference price usable for a while after the
// feed goes quiet; a thinly traded token may not print for minutes.
const quoteTTL = 10 * time.Minute

// QuoteCache implements domain.QuoteCache using Redis hashes. Each token's
// reference price is stored at key "quote:{tokenID}" with fields "price" and
// "ts" (Unix nanosecond timestamp).
type QuoteCache struct {
	rdb *redis.Client
}

var _ domain.QuoteCache = (*QuoteCache)(nil)

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying()}
}

func quoteKey(tokenID string) string {
	return "quote:" + tokenID
}

// SetQuote stores the token's latest reference price.
func (qc *QuoteCache) SetQuote(ctx context.Context, quote domain.OutcomeQuote) error {
	key := quoteKey(quote.TokenID)
	fields := map[string]interface{}{
		"price": strconv.FormatFloat(quote.ReferencePrice, 'f', -1, 64),
		"ts":    strconv.FormatInt(quote.Timestamp.UnixNano(), 10),
	}

	pipe := qc.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, quoteTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", quote.TokenID, err)
	}
	return nil
}

// GetQuote retrieves the token's latest reference price. It returns
// domain.ErrNotFound when the key does not exist.
func (qc *QuoteCache) GetQuote(ctx context.Context, tokenID string) (domain.OutcomeQuote, error) {
	vals, err := qc.rdb.HGetAll(ctx, quoteKey(tokenID)).Result()
	if err != nil {
		return domain.OutcomeQuote{}, fmt.Errorf("redis: get quote %s: %w", tokenID, err)
	}
	if len(vals) == 0 {
		return domain.OutcomeQuote{}, domain.ErrNotFound
	}

	quote := domain.OutcomeQuote{TokenID: tokenID}

	priceStr, ok := vals["price"]
	if !ok {
		return domain.OutcomeQuote{}, domain.ErrNotFound
	}
	quote.ReferencePrice, err = strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return domain.OutcomeQuote{}, fmt.Errorf("redis: parse quote price %s: %w", tokenID, err)
	}

	if tsStr, ok := vals["ts"]; ok {
		if tsNano, err := strconv.ParseInt(tsStr, 10, 64); err == nil {
			quote.Timestamp = time.Unix(0, tsNano)
		}
	}

	return quote, nil
}
