// Package lifecycle drives a single order attempt through signing,
// submission, and confirmation, and owns the post-fill cache refresh
// choreography.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quantish/clobtrade/internal/domain"
)

// State is the controller's externally visible lifecycle state. The
// controller is its only writer.
type State string

const (
	StateIdle       State = "idle"
	StateSigning    State = "signing"
	StateSubmitting State = "submitting"
	StatePending    State = "pending"
	StateConfirmed  State = "confirmed"
	StateFailed     State = "failed"
)

// zeroAddress is the open-order taker.
const zeroAddress = "0x0000000000000000000000000000000000000000"

// microUnits converts display amounts to the integer 1e6 fixed-point units
// carried in signed payloads.
const microUnits = 1e6

// FillRefresher is notified after a confirmed fill so balance, allowance,
// and position caches can be invalidated and refetched. Implementations must
// not block: the upstream indexer lags settlement by a few seconds, so a
// single immediate refetch is not enough and follow-ups must be scheduled
// internally.
type FillRefresher interface {
	OnFill(ctx context.Context, owner string)
}

// Config bounds the confirmation polling loop. Polling always terminates:
// MaxPollAttempts times PollInterval is the longest a Pending attempt can
// wait before reporting a timeout.
type Config struct {
	PollInterval    time.Duration
	MaxPollAttempts int
}

// Controller runs one order attempt at a time through the state machine
//
//	Idle → Signing → Submitting → Pending → {Confirmed | Failed}
//
// Each Submit is a fresh attempt with a fresh intent; the controller never
// retries on its own. A second Submit while one is in flight returns
// ErrAttemptInFlight.
type Controller struct {
	signer    domain.OrderSigner
	exchange  domain.Exchange
	refresher FillRefresher
	clock     Clock
	cfg       Config
	logger    *slog.Logger

	mu       sync.Mutex
	state    State
	reason   string
	orderID  string
	inFlight bool
	abandon  chan struct{}
}

// NewController creates a controller in the Idle state. refresher may be nil
// when no caches need refreshing (tests, dry runs).
func NewController(signer domain.OrderSigner, exchange domain.Exchange, refresher FillRefresher, clock Clock, cfg Config, logger *slog.Logger) *Controller {
	if clock == nil {
		clock = SystemClock()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = 10
	}
	return &Controller{
		signer:    signer,
		exchange:  exchange,
		refresher: refresher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "lifecycle")),
		state:     StateIdle,
	}
}

// State returns the current lifecycle state and, for Failed, the
// human-readable reason.
func (c *Controller) State() (State, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.reason
}

// OrderID returns the exchange order ID of the current or last attempt. It
// stays readable after Abandon so the caller can still cancel the live
// remote order.
func (c *Controller) OrderID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orderID
}

// Reset returns an idle or terminal controller to Idle. It does not touch
// the remote order.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inFlight {
		c.state = StateIdle
		c.reason = ""
		c.orderID = ""
	}
}

// Abandon stops polling a Pending attempt and resets the local state to
// Idle. The remote order is NOT cancelled: an abandoned local attempt and a
// live exchange order are distinct states, and OrderID remains available for
// an explicit CancelRemote.
func (c *Controller) Abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.abandon != nil {
		close(c.abandon)
		c.abandon = nil
	}
}

// CancelRemote cancels the last posted order on the exchange.
func (c *Controller) CancelRemote(ctx context.Context) error {
	id := c.OrderID()
	if id == "" {
		return fmt.Errorf("lifecycle: cancel remote: %w", domain.ErrNotFound)
	}
	if err := c.exchange.CancelOrder(ctx, id); err != nil {
		return fmt.Errorf("lifecycle: cancel remote %s: %w", id, err)
	}
	return nil
}

// Submit drives intent through the full state machine at the given resolved
// price. It blocks until a terminal state is reached (or the attempt is
// abandoned) and returns that state. The returned error is nil only on
// Confirmed; EligibilityBlocked is the caller's concern and never reaches
// here.
func (c *Controller) Submit(ctx context.Context, intent domain.OrderIntent, price float64) (State, error) {
	if err := intent.Validate(); err != nil {
		return StateIdle, err
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return c.state, domain.ErrAttemptInFlight
	}
	c.inFlight = true
	c.abandon = make(chan struct{})
	abandoned := c.abandon
	c.orderID = ""
	c.reason = ""
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.abandon = nil
		c.mu.Unlock()
	}()

	// Signing.
	c.setState(StateSigning, "")
	signed := c.buildOrder(intent, price)
	sig, err := c.signer.SignOrder(signed)
	if err != nil {
		return c.fail("signing failed", err)
	}
	signed.Signature = sig

	// Submitting.
	c.setState(StateSubmitting, "")
	posted, err := c.exchange.SubmitOrder(ctx, signed)
	if err != nil {
		return c.fail("submission rejected", err)
	}

	// Pending. Every path to Confirmed passes through here, even when the
	// exchange already reported a terminal status in the receipt.
	c.mu.Lock()
	c.orderID = posted.OrderID
	c.mu.Unlock()
	c.setState(StatePending, "")

	c.logger.Info("order pending",
		slog.String("order_id", posted.OrderID),
		slog.String("token_id", intent.TokenID),
		slog.String("side", string(intent.Side)),
		slog.String("tif", string(intent.TimeInForce)),
		slog.Float64("price", price),
		slog.Float64("size", intent.Size),
	)

	status := posted.Status
	if !status.Terminal() {
		status, err = c.pollStatus(ctx, posted.OrderID, abandoned)
		if err != nil {
			if errors.Is(err, domain.ErrAttemptAbandoned) {
				c.setState(StateIdle, "")
				return StateIdle, err
			}
			if errors.Is(err, domain.ErrConfirmationTimeout) {
				return c.fail("status unknown, treat as pending", err)
			}
			return c.fail("status poll failed", err)
		}
	}

	if !status.Succeeded() {
		return c.fail(fmt.Sprintf("terminal status %s", status),
			fmt.Errorf("lifecycle: order %s: %w", posted.OrderID, domain.ErrRejectedByExchange))
	}

	c.setState(StateConfirmed, "")
	c.logger.Info("order confirmed",
		slog.String("order_id", posted.OrderID),
		slog.String("status", string(status)),
	)

	// The refresher schedules its own delayed refetches and must not block
	// the Confirmed transition. Detach from the caller's cancellation so an
	// impatient caller cannot strand the caches stale.
	if c.refresher != nil {
		c.refresher.OnFill(context.WithoutCancel(ctx), c.signer.Address())
	}

	return StateConfirmed, nil
}

// pollStatus polls the exchange until a terminal status, the attempt budget
// runs out, the attempt is abandoned, or ctx is cancelled.
func (c *Controller) pollStatus(ctx context.Context, orderID string, abandoned <-chan struct{}) (domain.OrderStatus, error) {
	for attempt := 0; attempt < c.cfg.MaxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return domain.StatusUnknown, fmt.Errorf("lifecycle: poll %s: %w", orderID, ctx.Err())
		case <-abandoned:
			return domain.StatusUnknown, fmt.Errorf("lifecycle: poll %s: %w", orderID, domain.ErrAttemptAbandoned)
		case <-c.clock.After(c.cfg.PollInterval):
		}

		status, err := c.exchange.OrderStatus(ctx, orderID)
		if err != nil {
			return domain.StatusUnknown, fmt.Errorf("lifecycle: poll %s: %w", orderID, err)
		}
		if status.Terminal() {
			return status, nil
		}
	}
	return domain.StatusUnknown, fmt.Errorf("lifecycle: poll %s after %d attempts: %w",
		orderID, c.cfg.MaxPollAttempts, domain.ErrConfirmationTimeout)
}

// buildOrder assembles the unsigned exchange order. Amounts follow the CTF
// exchange convention: the maker amount is what the maker gives (collateral
// for a BUY, tokens for a SELL), the taker amount what the maker receives.
func (c *Controller) buildOrder(intent domain.OrderIntent, price float64) domain.SignedOrder {
	addr := c.signer.Address()

	collateral := big.NewInt(int64(price*intent.Size*microUnits + 0.5))
	tokens := big.NewInt(int64(intent.Size*microUnits + 0.5))

	maker, taker := collateral, tokens
	if intent.Side == domain.SideSell {
		maker, taker = tokens, collateral
	}

	return domain.SignedOrder{
		Intent:      intent,
		Price:       price,
		Salt:        newSalt(),
		Maker:       addr,
		SignerAddr:  addr,
		Taker:       zeroAddress,
		MakerAmount: maker,
		TakerAmount: taker,
		Nonce:       "0",
		FeeRateBps:  "0",
	}
}

// newSalt returns a random decimal salt. The salt is hashed into the
// EIP-712 digest as a uint256, so it must be a base-10 integer string.
func newSalt() string {
	u := uuid.New()
	return new(big.Int).SetBytes(u[:]).String()
}

func (c *Controller) setState(s State, reason string) {
	c.mu.Lock()
	c.state = s
	c.reason = reason
	c.mu.Unlock()
}

func (c *Controller) fail(reason string, err error) (State, error) {
	c.setState(StateFailed, reason)
	c.logger.Warn("order attempt failed",
		slog.String("reason", reason),
		slog.String("error", err.Error()),
	)
	return StateFailed, err
}
