package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantish/clobtrade/internal/domain"
)

// fundsTTL bounds staleness when invalidation is missed (process crash
// between fill and invalidate).
const fundsTTL = 5 * time.Minute

// FundsCache implements domain.FundsCache using Redis hashes. Each owner's
// funds are stored at key "funds:{owner}" with fields "balance" and
// "allowance"; the allowance field is absent when unknown.
type FundsCache struct {
	rdb *redis.Client
}

var _ domain.FundsCache = (*FundsCache)(nil)

// NewFundsCache creates a FundsCache backed by the given Client.
func NewFundsCache(c *Client) *FundsCache {
	return &FundsCache{rdb: c.Underlying()}
}

func fundsKey(owner string) string {
	return "funds:" + owner
}

// SetFunds stores the owner's balance and allowance.
func (fc *FundsCache) SetFunds(ctx context.Context, owner string, funds domain.Funds) error {
	key := fundsKey(owner)
	fields := map[string]interface{}{
		"balance": strconv.FormatFloat(funds.Balance, 'f', -1, 64),
	}
	if funds.Allowance != nil {
		fields["allowance"] = strconv.FormatFloat(*funds.Allowance, 'f', -1, 64)
	}

	pipe := fc.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, fundsTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set funds %s: %w", owner, err)
	}
	return nil
}

// GetFunds retrieves the owner's cached balance and allowance. An allowance
// that was never stored comes back nil. It returns domain.ErrNotFound when
// the key does not exist.
func (fc *FundsCache) GetFunds(ctx context.Context, owner string) (domain.Funds, error) {
	vals, err := fc.rdb.HGetAll(ctx, fundsKey(owner)).Result()
	if err != nil {
		return domain.Funds{}, fmt.Errorf("redis: get funds %s: %w", owner, err)
	}
	if len(vals) == 0 {
		return domain.Funds{}, domain.ErrNotFound
	}

	var funds domain.Funds
	if s, ok := vals["balance"]; ok {
		funds.Balance, _ = strconv.ParseFloat(s, 64)
	}
	if s, ok := vals["allowance"]; ok {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			funds.Allowance = &v
		}
	}

	return funds, nil
}

// Invalidate removes the owner's funds entry so the next read goes back to
// the chain.
func (fc *FundsCache) Invalidate(ctx context.Context, owner string) error {
	if err := fc.rdb.Del(ctx, fundsKey(owner)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate funds %s: %w", owner, err)
	}
	return nil
}
