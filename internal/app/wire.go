package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quantish/clobtrade/internal/cache/redis"
	"github.com/quantish/clobtrade/internal/config"
	"github.com/quantish/clobtrade/internal/domain"
	"github.com/quantish/clobtrade/internal/notify"
	"github.com/quantish/clobtrade/internal/platform/chain"
	"github.com/quantish/clobtrade/internal/platform/dataapi"
	"github.com/quantish/clobtrade/internal/service"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Caches
	FundsCache    domain.FundsCache
	PositionCache domain.PositionCache
	BookCache     domain.BookCache
	QuoteCache    domain.QuoteCache

	// Upstream readers
	Chain         domain.ChainReader
	TokenBalances service.TokenBalanceReader
	Positions     domain.PositionReader

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.FundsCache = redis.NewFundsCache(redisClient)
	deps.PositionCache = redis.NewPositionCache(redisClient)
	deps.BookCache = redis.NewBookCache(redisClient)
	deps.QuoteCache = redis.NewQuoteCache(redisClient)

	// --- Chain reader ---
	reader, err := chain.NewReader(cfg.Chain.RPCURL, cfg.Chain.CollateralToken, cfg.Chain.CTFToken)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: chain reader: %w", err)
	}
	deps.Chain = reader
	deps.TokenBalances = reader

	// --- Positions subgraph ---
	deps.Positions = dataapi.NewClient(cfg.Polymarket.DataAPIURL, cfg.Polymarket.DataAPIKey)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
