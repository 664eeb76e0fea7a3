// Package notify pushes trading events to operator channels. Events are
// dispatched to all registered senders (Telegram, Discord) and can be
// filtered by event type so operators receive only the alerts they care
// about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quantish/clobtrade/internal/domain"
	"github.com/quantish/clobtrade/internal/lifecycle"
)

// Event types the trading engine emits.
const (
	EventOrderConfirmed = "order_confirmed"
	EventOrderFailed    = "order_failed"
	EventTradeBlocked   = "trade_blocked"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders. It maintains a
// set of allowed event types; Notify only forwards messages whose event type
// is in the allowed set.
type Notifier struct {
	senders []Sender
	events  map[string]bool // allowed event types
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that will deliver to the given senders.
// Only events whose type appears in the events slice will be forwarded.
// If events is empty, all event types are allowed.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify sends a notification to all senders if the event type is allowed.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}

	return n.dispatch(ctx, title, message)
}

// OrderConfirmed reports a filled or resting order.
func (n *Notifier) OrderConfirmed(ctx context.Context, intent domain.OrderIntent, price float64, orderID string) error {
	title := fmt.Sprintf("Order confirmed: %s %s", intent.Side, intent.TokenID)
	message := fmt.Sprintf("size %.2f at %.4f (%s)\norder %s",
		intent.Size, price, intent.TimeInForce, orderID)
	return n.Notify(ctx, EventOrderConfirmed, title, message)
}

// OrderFailed reports a terminal lifecycle failure with its reason.
func (n *Notifier) OrderFailed(ctx context.Context, intent domain.OrderIntent, state lifecycle.State, reason string) error {
	title := fmt.Sprintf("Order failed: %s %s", intent.Side, intent.TokenID)
	message := fmt.Sprintf("size %.2f, state %s\n%s", intent.Size, state, reason)
	return n.Notify(ctx, EventOrderFailed, title, message)
}

// TradeBlocked reports an eligibility veto.
func (n *Notifier) TradeBlocked(ctx context.Context, intent domain.OrderIntent, reason string) error {
	title := fmt.Sprintf("Trade blocked: %s %s", intent.Side, intent.TokenID)
	return n.Notify(ctx, EventTradeBlocked, title, reason)
}

// dispatch iterates over all senders and sends the notification. Errors from
// individual senders are collected and returned as a combined error; a
// single sender failure does not prevent delivery to the remaining senders.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("title", title),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
