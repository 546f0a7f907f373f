package session

import "errors"

var (
	// ErrAuthentication is returned when a presented secret does not match
	// the current session
	ErrAuthentication = errors.New("authentication failed")

	// ErrRateLimited is returned when a client has failed authentication too
	// often
	ErrRateLimited = errors.New("too many failed attempts")

	// ErrPortUnavailable is returned when no port in the probe range could be
	// bound
	ErrPortUnavailable = errors.New("no available port")

	// ErrNoSession is returned before the first session has been issued
	ErrNoSession = errors.New("no active session")
)
