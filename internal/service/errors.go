package service

import "errors"

var (
	// ErrInvalidRequest reports missing or malformed login input.
	ErrInvalidRequest = errors.New("invalid_request")

	// ErrInvalidCredentials is the single client-visible rejection for
	// unknown username, wrong secret and unavailable accounts. The
	// distinguishing detail only appears in server-side logs.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrAccountUnavailable reports a disabled or locked account. Internal
	// only, the login flow collapses it into ErrInvalidCredentials.
	ErrAccountUnavailable = errors.New("account_unavailable")

	// ErrInternal reports a server-side fault (signing failure, broken
	// storage). Never carries detail to the client.
	ErrInternal = errors.New("internal_error")
)
