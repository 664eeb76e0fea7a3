// Package feed keeps the book and quote caches warm from the exchange's
// real-time market data WebSocket.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/quantish/clobtrade/internal/domain"
	"github.com/quantish/clobtrade/internal/platform/polymarket"
)

// BookFeed connects to the CLOB WebSocket, subscribes to book and
// last_trade_price for the given token IDs, and writes every update into
// the caches. It reconnects on disconnect.
type BookFeed struct {
	wsURL    string
	tokenIDs []string
	books    domain.BookCache
	quotes   domain.QuoteCache
	logger   *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewBookFeed creates a feed for the given token IDs.
func NewBookFeed(wsURL string, tokenIDs []string, books domain.BookCache, quotes domain.QuoteCache, logger *slog.Logger) *BookFeed {
	return &BookFeed{
		wsURL:    wsURL,
		tokenIDs: tokenIDs,
		books:    books,
		quotes:   quotes,
		logger:   logger.With(slog.String("component", "book_feed")),
		done:     make(chan struct{}),
	}
}

// Run connects, subscribes, and runs until ctx is cancelled or Close is
// called. Reconnects with a fixed delay on disconnect.
func (f *BookFeed) Run(ctx context.Context) error {
	if len(f.tokenIDs) == 0 {
		f.logger.Info("no token IDs to subscribe, exiting")
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		err := f.runConnection(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("market data ws disconnected, reconnecting", slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(2 * time.Second):
		}
	}
}

// Close stops the feed.
func (f *BookFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}

func (f *BookFeed) runConnection(ctx context.Context) error {
	client := polymarket.NewWSClient(f.wsURL)
	defer client.Close()

	client.OnBook(func(snap domain.OrderbookSnapshot) {
		if err := f.books.SetSnapshot(context.Background(), snap); err != nil {
			f.logger.Warn("book cache write failed",
				slog.String("token_id", snap.AssetID),
				slog.String("error", err.Error()),
			)
		}
	})
	client.OnQuote(func(quote domain.OutcomeQuote) {
		if err := f.quotes.SetQuote(context.Background(), quote); err != nil {
			f.logger.Warn("quote cache write failed",
				slog.String("token_id", quote.TokenID),
				slog.String("error", err.Error()),
			)
		}
	})

	connCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err := client.Connect(connCtx)
	cancel()
	if err != nil {
		return err
	}

	channels := []string{"book", "last_trade_price"}
	if err := client.Subscribe(ctx, channels, f.tokenIDs); err != nil {
		return err
	}
	f.logger.Info("market data ws subscribed", slog.Int("tokens", len(f.tokenIDs)))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.done:
		return nil
	}
}
