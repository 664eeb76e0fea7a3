package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantish/clobtrade/internal/domain"
)

// bookTTL expires snapshots the feed has stopped refreshing. A stale book is
// worse than no book: the resolver falls back to a reference quote instead.
const bookTTL = 30 * time.Second

// BookCache implements domain.BookCache storing each token's snapshot as a
// JSON blob at key "book:{tokenID}". The depth walker always consumes the
// whole book at once, so a single blob beats per-level structures.
type BookCache struct {
	rdb *redis.Client
}

var _ domain.BookCache = (*BookCache)(nil)

// NewBookCache creates a BookCache backed by the given Client.
func NewBookCache(c *Client) *BookCache {
	return &BookCache{rdb: c.Underlying()}
}

func bookKey(tokenID string) string {
	return "book:" + tokenID
}

// SetSnapshot replaces the token's snapshot.
func (bc *BookCache) SetSnapshot(ctx context.Context, snap domain.OrderbookSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal book %s: %w", snap.AssetID, err)
	}
	if err := bc.rdb.Set(ctx, bookKey(snap.AssetID), data, bookTTL).Err(); err != nil {
		return fmt.Errorf("redis: set book %s: %w", snap.AssetID, err)
	}
	return nil
}

// GetSnapshot retrieves the token's snapshot. It returns domain.ErrNotFound
// when no snapshot exists or the entry has expired.
func (bc *BookCache) GetSnapshot(ctx context.Context, tokenID string) (domain.OrderbookSnapshot, error) {
	data, err := bc.rdb.Get(ctx, bookKey(tokenID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.OrderbookSnapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis: get book %s: %w", tokenID, err)
	}

	var snap domain.OrderbookSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis: unmarshal book %s: %w", tokenID, err)
	}
	return snap, nil
}

// Invalidate removes the token's snapshot.
func (bc *BookCache) Invalidate(ctx context.Context, tokenID string) error {
	if err := bc.rdb.Del(ctx, bookKey(tokenID)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate book %s: %w", tokenID, err)
	}
	return nil
}
