package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidIntent       = errors.New("invalid order intent")
	ErrNoPriceSource       = errors.New("no book or reference quote available")
	ErrUserRejected        = errors.New("signature rejected by user")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrRejectedByExchange  = errors.New("rejected by exchange")
	ErrConfirmationTimeout = errors.New("confirmation timed out")
	ErrAttemptInFlight     = errors.New("another attempt is in flight")
	ErrAttemptAbandoned    = errors.New("attempt abandoned")
	ErrRateLimited         = errors.New("rate limited")
	ErrUnauthorized        = errors.New("unauthorized")
)
