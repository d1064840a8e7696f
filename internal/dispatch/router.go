package dispatch

import (
	"log/slog"
	"time"
)

// DefaultLockWait bounds how long a state-changing operation waits for a
// contended job before failing with ErrBusy.
const DefaultLockWait = 2 * time.Second

// Router orchestrates the job dispatch lifecycle. It is the only component
// that moves a job between statuses: an accepted bid or an accepted direct
// dispatch takes it to IN_PROGRESS, the poster cancels it while OPEN or
// completes it while IN_PROGRESS. Every state-changing operation runs under
// a per-job lock.
type Router struct {
	log   *slog.Logger
	store Store
	locks *jobLocks
}

func New(log *slog.Logger, store Store) *Router {
	return &Router{
		log:   log,
		store: store,
		locks: newJobLocks(DefaultLockWait),
	}
}

// NewWithLockWait is New with an explicit lock acquisition bound.
func NewWithLockWait(log *slog.Logger, store Store, wait time.Duration) *Router {
	return &Router{
		log:   log,
		store: store,
		locks: newJobLocks(wait),
	}
}
