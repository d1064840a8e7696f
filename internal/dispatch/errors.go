package dispatch

import "errors"

// Caller-facing failure taxonomy. Every lifecycle operation returns one of
// these wrapped with its op; none of them indicates corrupted state and a
// failed transition leaves all entities unchanged.
var (
	ErrInvalidCategory   = errors.New("job category does not admit this action")
	ErrJobNotOpen        = errors.New("job is not open")
	ErrOutOfRange        = errors.New("amount is outside the allowed budget range")
	ErrDuplicateBid      = errors.New("bidder already holds an active bid on this job")
	ErrDuplicateDecision = errors.New("worker already decided on this job")
	ErrNotOwner          = errors.New("actor is not the job poster")
	ErrNotPending        = errors.New("bid is no longer pending")
	ErrMissingLocation   = errors.New("no coordinates supplied and none registered")
	ErrBusy              = errors.New("job is busy, retry later")
	ErrForbidden         = errors.New("role is not allowed to perform this action")
	ErrNotFound          = errors.New("record not found")
)
