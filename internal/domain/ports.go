package domain

import "context"

// OrderSigner produces an order signature for a payload assembled by the
// lifecycle controller. Implementations report ErrUserRejected when the user
// declines and ErrProviderUnavailable when no signing backend is reachable.
type OrderSigner interface {
	SignOrder(order SignedOrder) (signature string, err error)
	Address() string
}

// Exchange is the remote CLOB the engine trades against.
type Exchange interface {
	// SubmitOrder posts a signed order. Rejections wrap ErrRejectedByExchange
	// with the exchange's reason.
	SubmitOrder(ctx context.Context, order SignedOrder) (PostedOrder, error)
	// OrderStatus returns the current status of a posted order.
	OrderStatus(ctx context.Context, orderID string) (OrderStatus, error)
	// CancelOrder cancels a resting order.
	CancelOrder(ctx context.Context, orderID string) error
}

// ChainReader reads collateral state from the chain. Amounts are returned in
// display units (whole USDC), not micro-units.
type ChainReader interface {
	Balance(ctx context.Context, owner string) (float64, error)
	Allowance(ctx context.Context, owner, spender string) (float64, error)
}

// PositionReader reads open outcome-token positions for an address from the
// upstream indexer.
type PositionReader interface {
	Positions(ctx context.Context, owner string) ([]Position, error)
}
