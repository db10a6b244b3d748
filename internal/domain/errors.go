package domain

import "errors"

var (
	// ErrConfiguration signals an unusable routing configuration
	// (empty category set, missing weight or threshold). Fatal, never retried.
	ErrConfiguration = errors.New("invalid routing configuration")
	// ErrInvalidQuery signals a malformed query rejected before any provider call.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrUnknownStrategy signals an unrecognized routing strategy.
	ErrUnknownStrategy = errors.New("unknown routing strategy")
	// ErrProvider signals an upstream provider failure (transport, auth, bad response).
	ErrProvider = errors.New("provider error")
	// ErrProviderTimeout signals a provider call that exceeded its deadline.
	ErrProviderTimeout = errors.New("provider timeout")
)
