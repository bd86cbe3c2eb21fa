package app

import "errors"

// Sentinel kinds for engine errors. Store-layer kinds (not-found,
// conflict) pass through from the repository package.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrBadRequest      = errors.New("bad request")
	ErrBadOrdering     = errors.New("station ordering is not unique")
	ErrNotStarted      = errors.New("service not started")
)
