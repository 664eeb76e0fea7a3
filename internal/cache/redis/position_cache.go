package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantish/clobtrade/internal/domain"
)

// positionsTTL bounds staleness when invalidation is missed.
const positionsTTL = 5 * time.Minute

// PositionCache implements domain.PositionCache using Redis hashes. Each
// owner's positions are stored at key "positions:{owner}" as a hash mapping
// token ID to size.
type PositionCache struct {
	rdb *redis.Client
}

var _ domain.PositionCache = (*PositionCache)(nil)

// NewPositionCache creates a PositionCache backed by the given Client.
func NewPositionCache(c *Client) *PositionCache {
	return &PositionCache{rdb: c.Underlying()}
}

func positionsKey(owner string) string {
	return "positions:" + owner
}

// SetPositions atomically replaces the owner's position set. An empty slice
// still writes a marker so GetPosition can distinguish "no positions" from
// "never fetched".
func (pc *PositionCache) SetPositions(ctx context.Context, owner string, positions []domain.Position) error {
	key := positionsKey(owner)

	fields := map[string]interface{}{
		// Marker field; a hash with only this field means a confirmed empty
		// position set.
		"_fetched": "1",
	}
	for _, p := range positions {
		fields[p.TokenID] = strconv.FormatFloat(p.Size, 'f', -1, 64)
	}

	pipe := pc.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, positionsTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set positions %s: %w", owner, err)
	}
	return nil
}

// GetPosition retrieves the owner's position in a single token. A cached
// empty set yields a zero-size position; an absent hash yields
// domain.ErrNotFound.
func (pc *PositionCache) GetPosition(ctx context.Context, owner, tokenID string) (domain.Position, error) {
	vals, err := pc.rdb.HGetAll(ctx, positionsKey(owner)).Result()
	if err != nil {
		return domain.Position{}, fmt.Errorf("redis: get position %s/%s: %w", owner, tokenID, err)
	}
	if len(vals) == 0 {
		return domain.Position{}, domain.ErrNotFound
	}

	pos := domain.Position{TokenID: tokenID}
	if s, ok := vals[tokenID]; ok {
		pos.Size, _ = strconv.ParseFloat(s, 64)
	}
	return pos, nil
}

// Invalidate removes the owner's position entry.
func (pc *PositionCache) Invalidate(ctx context.Context, owner string) error {
	if err := pc.rdb.Del(ctx, positionsKey(owner)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate positions %s: %w", owner, err)
	}
	return nil
}
