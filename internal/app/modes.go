package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantish/clobtrade/internal/crypto"
	"github.com/quantish/clobtrade/internal/domain"
	"github.com/quantish/clobtrade/internal/feed"
	"github.com/quantish/clobtrade/internal/lifecycle"
	"github.com/quantish/clobtrade/internal/platform/polymarket"
	"github.com/quantish/clobtrade/internal/pricing"
	"github.com/quantish/clobtrade/internal/service"
)

// FeedMode keeps the book and quote caches warm from the market data
// WebSocket for the configured token IDs. No orders are placed.
func (a *App) FeedMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting feed mode",
		slog.Int("tokens", len(a.cfg.Market.TokenIDs)),
	)

	g, ctx := errgroup.WithContext(ctx)

	bookFeed := feed.NewBookFeed(
		a.cfg.Polymarket.WsHost,
		a.cfg.Market.TokenIDs,
		deps.BookCache,
		deps.QuoteCache,
		a.logger,
	)
	g.Go(func() error {
		defer bookFeed.Close()
		return bookFeed.Run(ctx)
	})

	return g.Wait()
}

// trading bundles the dependencies built only for trade mode.
type trading struct {
	clob       *polymarket.ClobClient
	controller *lifecycle.Controller
	trade      *service.TradeService
	refresh    *service.RefreshService
}

// TradeMode places the single order attached via WithOrder: it primes the
// caches from the REST API, keeps them warm over the WebSocket while the
// order is pending, and runs the preview/execute flow including the
// post-fill cache refresh.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	if a.order == nil {
		return fmt.Errorf("app: trade mode requires an order")
	}

	intent, err := a.buildIntent()
	if err != nil {
		return err
	}

	td, err := a.buildTrading(ctx, deps)
	if err != nil {
		return fmt.Errorf("app: trade mode: %w", err)
	}

	a.logger.InfoContext(ctx, "starting trade mode",
		slog.String("token_id", intent.TokenID),
		slog.String("side", string(intent.Side)),
		slog.String("kind", string(intent.Kind)),
		slog.Float64("size", intent.Size),
	)

	a.primeCaches(ctx, deps, td.clob, intent.TokenID)

	g, ctx := errgroup.WithContext(ctx)

	bookFeed := feed.NewBookFeed(
		a.cfg.Polymarket.WsHost,
		[]string{intent.TokenID},
		deps.BookCache,
		deps.QuoteCache,
		a.logger,
	)
	g.Go(func() error {
		err := bookFeed.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})

	g.Go(func() error {
		defer bookFeed.Close()
		return a.executeOrder(ctx, deps, td, intent)
	})

	return g.Wait()
}

// executeOrder runs one order through the trade service and reports the
// outcome to the notifier. It waits for the post-fill refresh rounds before
// returning.
func (a *App) executeOrder(ctx context.Context, deps *Dependencies, td *trading, intent domain.OrderIntent) error {
	res, err := td.trade.Execute(ctx, intent)
	if err != nil {
		state, reason := td.controller.State()
		_ = deps.Notifier.OrderFailed(ctx, intent, state, reason)
		return err
	}

	if res.BlockedReason != "" {
		a.logger.InfoContext(ctx, "trade blocked",
			slog.String("reason", res.BlockedReason),
		)
		_ = deps.Notifier.TradeBlocked(ctx, intent, res.BlockedReason)
		return nil
	}

	if res.State == lifecycle.StateConfirmed {
		a.logger.InfoContext(ctx, "order confirmed",
			slog.String("order_id", res.OrderID),
			slog.Float64("price", res.Preview.Price),
		)
		_ = deps.Notifier.OrderConfirmed(ctx, intent, res.Preview.Price, res.OrderID)
	} else {
		_, reason := td.controller.State()
		_ = deps.Notifier.OrderFailed(ctx, intent, res.State, reason)
	}

	td.refresh.Wait()
	return nil
}

// buildTrading creates the signing and execution pipeline: key -> signer ->
// CLOB client -> services -> lifecycle controller -> trade service.
func (a *App) buildTrading(ctx context.Context, deps *Dependencies) (*trading, error) {
	key, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    a.cfg.Wallet.PrivateKey,
		EncryptedKeyPath: a.cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      a.cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("load key: %w", err)
	}

	signer, err := crypto.NewSigner(
		key,
		int64(a.cfg.Polymarket.ChainID),
		a.cfg.Polymarket.ExchangeAddress,
		a.cfg.Polymarket.SignatureType,
	)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	clob := polymarket.NewClobClient(a.cfg.Polymarket.ClobHost, signer, nil)
	if err := clob.DeriveAPIKey(ctx); err != nil {
		a.logger.WarnContext(ctx, "derive API key failed; order submission may fail",
			slog.String("error", err.Error()),
		)
	}

	funds := service.NewFundsService(deps.Chain, deps.FundsCache, a.cfg.Polymarket.ExchangeAddress, a.logger)
	positions := service.NewPositionService(deps.Positions, deps.PositionCache, deps.TokenBalances, a.logger)
	refresh := service.NewRefreshService(funds, positions, nil, a.cfg.RefetchOffsetDurations(), a.logger)

	controller := lifecycle.NewController(signer, clob, refresh, nil, lifecycle.Config{
		PollInterval:    a.cfg.Trading.PollInterval.Duration,
		MaxPollAttempts: a.cfg.Trading.MaxPollAttempts,
	}, a.logger)

	resolver := pricing.Resolver{
		TickSize:        a.cfg.Market.TickSize,
		MarketBufferBps: a.cfg.Trading.MarketBufferBps,
		MaxSlippageBps:  a.cfg.Trading.MaxSlippageBps,
	}
	trade := service.NewTradeService(
		resolver,
		deps.BookCache,
		deps.QuoteCache,
		funds,
		positions,
		controller,
		service.MarketRules{
			TickSize:    a.cfg.Market.TickSize,
			MinNotional: a.cfg.Market.MinNotional,
			MinSize:     a.cfg.Market.MinSize,
		},
		signer.Address(),
		a.logger,
	)

	return &trading{
		clob:       clob,
		controller: controller,
		trade:      trade,
		refresh:    refresh,
	}, nil
}

// primeCaches seeds the book and quote caches from the REST API so the
// preview has price sources before the WebSocket delivers its first update.
// Failures are logged and left to the WebSocket feed to repair.
func (a *App) primeCaches(ctx context.Context, deps *Dependencies, clob *polymarket.ClobClient, tokenID string) {
	if snap, err := clob.Book(ctx, tokenID); err != nil {
		a.logger.WarnContext(ctx, "prime book cache failed",
			slog.String("token_id", tokenID),
			slog.String("error", err.Error()),
		)
	} else if err := deps.BookCache.SetSnapshot(ctx, snap); err != nil {
		a.logger.WarnContext(ctx, "prime book cache write failed",
			slog.String("error", err.Error()),
		)
	}

	if quote, err := clob.LastTradePrice(ctx, tokenID); err != nil {
		a.logger.WarnContext(ctx, "prime quote cache failed",
			slog.String("token_id", tokenID),
			slog.String("error", err.Error()),
		)
	} else if err := deps.QuoteCache.SetQuote(ctx, quote); err != nil {
		a.logger.WarnContext(ctx, "prime quote cache write failed",
			slog.String("error", err.Error()),
		)
	}
}

// buildIntent converts the command-line order request into an order intent.
func (a *App) buildIntent() (domain.OrderIntent, error) {
	req := a.order

	var side domain.Side
	switch strings.ToUpper(req.Side) {
	case "BUY":
		side = domain.SideBuy
	case "SELL":
		side = domain.SideSell
	default:
		return domain.OrderIntent{}, fmt.Errorf("app: invalid side %q", req.Side)
	}

	if req.Market {
		return lifecycle.NewMarketIntent(req.TokenID, side, req.Size, req.AllowPartial), nil
	}
	if req.ValidFor > 0 {
		return lifecycle.NewLimitIntentWithExpiry(req.TokenID, side, req.Size, req.Price, req.ValidFor, time.Now()), nil
	}
	return lifecycle.NewLimitIntent(req.TokenID, side, req.Size, req.Price), nil
}
