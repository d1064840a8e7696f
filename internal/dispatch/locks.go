package dispatch

import (
	"sync"
	"time"
)

// jobLocks serializes state-changing operations per job id. Acquisition
// waits at most the configured bound and then fails with ErrBusy instead
// of queueing indefinitely.
type jobLocks struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
	wait  time.Duration
}

func newJobLocks(wait time.Duration) *jobLocks {
	return &jobLocks{
		locks: make(map[string]chan struct{}),
		wait:  wait,
	}
}

func (l *jobLocks) lock(jobId string) error {
	l.mu.Lock()
	ch, ok := l.locks[jobId]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[jobId] = ch
	}
	l.mu.Unlock()

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBusy
	}
}

func (l *jobLocks) unlock(jobId string) {
	l.mu.Lock()
	ch := l.locks[jobId]
	l.mu.Unlock()
	<-ch
}
