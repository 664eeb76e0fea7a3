package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/quantish/clobtrade/internal/lifecycle"
)

// defaultRefetchOffsets re-reads the sources at these offsets after a fill.
// The chain and the positions indexer both lag settlement, so the refetch
// right after confirmation usually still sees pre-fill values.
var defaultRefetchOffsets = []time.Duration{
	1 * time.Second,
	3 * time.Second,
	5 * time.Second,
}

// RefreshService owns the post-fill cache choreography: invalidate funds and
// positions, refetch immediately, then refetch again at configured offsets
// until the lagging sources have caught up. It satisfies
// lifecycle.FillRefresher.
type RefreshService struct {
	funds     *FundsService
	positions *PositionService
	clock     lifecycle.Clock
	offsets   []time.Duration
	logger    *slog.Logger

	wg sync.WaitGroup
}

var _ lifecycle.FillRefresher = (*RefreshService)(nil)

// NewRefreshService creates a RefreshService. offsets are measured from the
// fill; nil selects the defaults.
func NewRefreshService(funds *FundsService, positions *PositionService, clock lifecycle.Clock, offsets []time.Duration, logger *slog.Logger) *RefreshService {
	if clock == nil {
		clock = lifecycle.SystemClock()
	}
	if len(offsets) == 0 {
		offsets = defaultRefetchOffsets
	}
	return &RefreshService{
		funds:     funds,
		positions: positions,
		clock:     clock,
		offsets:   offsets,
		logger:    logger.With(slog.String("component", "refresh_service")),
	}
}

// OnFill invalidates and refetches the owner's funds and positions, then
// schedules the delayed refetch rounds in the background. The synchronous
// part is done when OnFill returns, so a preview issued right after a fill
// never reads the pre-fill cache entries.
func (s *RefreshService) OnFill(ctx context.Context, owner string) {
	s.refreshRound(ctx, owner, 0)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		elapsed := time.Duration(0)
		for _, offset := range s.offsets {
			select {
			case <-ctx.Done():
				return
			case <-s.clock.After(offset - elapsed):
			}
			elapsed = offset

			s.refreshRound(ctx, owner, offset)
		}
	}()
}

// Wait blocks until all scheduled refetch rounds have finished. Used during
// shutdown and in tests.
func (s *RefreshService) Wait() {
	s.wg.Wait()
}

// refreshRound drops and refetches both caches. Failures are logged, not
// propagated: the next round (or the next read-through miss) retries.
func (s *RefreshService) refreshRound(ctx context.Context, owner string, offset time.Duration) {
	if err := s.funds.Invalidate(ctx, owner); err != nil {
		s.logger.WarnContext(ctx, "funds invalidate failed",
			slog.String("owner", owner), slog.String("error", err.Error()))
	}
	if err := s.positions.Invalidate(ctx, owner); err != nil {
		s.logger.WarnContext(ctx, "positions invalidate failed",
			slog.String("owner", owner), slog.String("error", err.Error()))
	}

	if _, err := s.funds.Refresh(ctx, owner); err != nil {
		s.logger.WarnContext(ctx, "funds refetch failed",
			slog.String("owner", owner),
			slog.Duration("offset", offset),
			slog.String("error", err.Error()),
		)
	}
	if _, err := s.positions.Refresh(ctx, owner); err != nil {
		s.logger.WarnContext(ctx, "positions refetch failed",
			slog.String("owner", owner),
			slog.Duration("offset", offset),
			slog.String("error", err.Error()),
		)
	}

	s.logger.DebugContext(ctx, "post-fill refresh round done",
		slog.String("owner", owner),
		slog.Duration("offset", offset),
	)
}
