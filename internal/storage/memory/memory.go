package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"mistribazar/internal/dispatch"
	"mistribazar/internal/models/acceptance"
	"mistribazar/internal/models/bid"
	"mistribazar/internal/models/job"
	"mistribazar/internal/models/user"

	"github.com/google/uuid"
)

// Storage is the in-process dispatch.Store. It backs tests and local runs
// without a database. One mutex guards everything, which also makes the two
// Apply transitions atomic.
type Storage struct {
	mu          sync.RWMutex
	jobs        map[string]job.Job
	bids        map[string]bid.Bid
	acceptances map[string]acceptance.JobAcceptance
	users       map[string]user.User
}

func New() *Storage {
	return &Storage{
		jobs:        make(map[string]job.Job),
		bids:        make(map[string]bid.Bid),
		acceptances: make(map[string]acceptance.JobAcceptance),
		users:       make(map[string]user.User),
	}
}

func (s *Storage) SaveJob(j job.Job) (job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j.Id = uuid.NewString()
	j.CreatedAt = time.Now()
	s.jobs[j.Id] = j
	return j, nil
}

func (s *Storage) FetchJob(id string) (job.Job, error) {
	const op = "storage.memory.FetchJob"

	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return job.Job{}, fmt.Errorf("%s: %w", op, dispatch.ErrNotFound)
	}
	return j, nil
}

func (s *Storage) ReadJobs(status job.Status, jobType job.JobType) ([]job.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]job.Job, 0)
	for _, j := range s.jobs {
		if status != "" && j.Status != status {
			continue
		}
		if jobType != "" && j.JobType != jobType {
			continue
		}
		result = append(result, j)
	}
	sortJobsNewestFirst(result)
	return result, nil
}

func (s *Storage) ReadMyJobs(consumerId string) ([]job.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]job.Job, 0)
	for _, j := range s.jobs {
		if j.ConsumerId == consumerId {
			result = append(result, j)
		}
	}
	sortJobsNewestFirst(result)
	return result, nil
}

func (s *Storage) UpdateJob(j job.Job) (job.Job, error) {
	const op = "storage.memory.UpdateJob"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[j.Id]; !ok {
		return job.Job{}, fmt.Errorf("%s: %w", op, dispatch.ErrNotFound)
	}
	s.jobs[j.Id] = j
	return j, nil
}

func (s *Storage) SetJobStatus(id string, status job.Status) (job.Job, error) {
	const op = "storage.memory.SetJobStatus"

	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return job.Job{}, fmt.Errorf("%s: %w", op, dispatch.ErrNotFound)
	}
	j.Status = status
	s.jobs[id] = j
	return j, nil
}

func (s *Storage) SaveBid(b bid.Bid) (bid.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b.Id = uuid.NewString()
	b.CreatedAt = time.Now()
	s.bids[b.Id] = b
	return b, nil
}

func (s *Storage) FetchBid(id string) (bid.Bid, error) {
	const op = "storage.memory.FetchBid"

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bids[id]
	if !ok {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, dispatch.ErrNotFound)
	}
	return b, nil
}

func (s *Storage) ReadJobBids(jobId string) ([]bid.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]bid.Bid, 0)
	for _, b := range s.bids {
		if b.JobId == jobId {
			result = append(result, b)
		}
	}
	sortBids(result)
	return result, nil
}

func (s *Storage) ReadMyBids(bidderId string) ([]bid.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]bid.Bid, 0)
	for _, b := range s.bids {
		if b.BidderId == bidderId {
			result = append(result, b)
		}
	}
	sortBids(result)
	return result, nil
}

func (s *Storage) SetBidStatus(id string, status bid.Status) (bid.Bid, error) {
	const op = "storage.memory.SetBidStatus"

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bids[id]
	if !ok {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, dispatch.ErrNotFound)
	}
	b.Status = status
	s.bids[id] = b
	return b, nil
}

func (s *Storage) ApplyBidAccept(jobId, bidId string) (bid.Bid, error) {
	const op = "storage.memory.ApplyBidAccept"

	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobId]
	if !ok {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, dispatch.ErrNotFound)
	}
	if j.Status != job.StatusOpen {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, dispatch.ErrJobNotOpen)
	}
	winner, ok := s.bids[bidId]
	if !ok || winner.JobId != jobId {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, dispatch.ErrNotFound)
	}

	winner.Status = bid.StatusAccepted
	s.bids[bidId] = winner

	for id, b := range s.bids {
		if id != bidId && b.JobId == jobId && b.Status == bid.StatusPending {
			b.Status = bid.StatusRejected
			s.bids[id] = b
		}
	}

	j.Status = job.StatusInProgress
	j.SelectedProvider = winner.BidderId
	s.jobs[jobId] = j

	return winner, nil
}

func (s *Storage) SaveAcceptance(a acceptance.JobAcceptance) (acceptance.JobAcceptance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.Id = uuid.NewString()
	a.CreatedAt = time.Now()
	s.acceptances[a.Id] = a
	return a, nil
}

func (s *Storage) ReadJobAcceptances(jobId string) ([]acceptance.JobAcceptance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]acceptance.JobAcceptance, 0)
	for _, a := range s.acceptances {
		if a.JobId == jobId {
			result = append(result, a)
		}
	}
	sortAcceptancesNewestFirst(result)
	return result, nil
}

func (s *Storage) ReadMyAcceptances(workerId string) ([]acceptance.JobAcceptance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]acceptance.JobAcceptance, 0)
	for _, a := range s.acceptances {
		if a.WorkerId == workerId {
			result = append(result, a)
		}
	}
	sortAcceptancesNewestFirst(result)
	return result, nil
}

func (s *Storage) ApplyDirectAccept(a acceptance.JobAcceptance) (acceptance.JobAcceptance, error) {
	const op = "storage.memory.ApplyDirectAccept"

	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[a.JobId]
	if !ok {
		return acceptance.JobAcceptance{}, fmt.Errorf("%s: %w", op, dispatch.ErrNotFound)
	}
	if j.Status != job.StatusOpen {
		return acceptance.JobAcceptance{}, fmt.Errorf("%s: %w", op, dispatch.ErrJobNotOpen)
	}

	a.Id = uuid.NewString()
	a.CreatedAt = time.Now()
	s.acceptances[a.Id] = a

	j.Status = job.StatusInProgress
	j.SelectedProvider = a.WorkerId
	s.jobs[a.JobId] = j

	return a, nil
}

func (s *Storage) FetchUser(id string) (user.User, error) {
	const op = "storage.memory.FetchUser"

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("%s: %w", op, dispatch.ErrNotFound)
	}
	return u, nil
}

// PutUser registers a user record. Identity comes from the auth collaborator
// in production; this exists for tests and local seeding.
func (s *Storage) PutUser(u user.User) user.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.Id == "" {
		u.Id = uuid.NewString()
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	s.users[u.Id] = u
	return u
}

func sortJobsNewestFirst(jobs []job.Job) {
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
	})
}

// sortBids matches the listing order posters see: cheapest first, then newest.
func sortBids(bids []bid.Bid) {
	sort.Slice(bids, func(i, k int) bool {
		if bids[i].Amount != bids[k].Amount {
			return bids[i].Amount < bids[k].Amount
		}
		return bids[i].CreatedAt.After(bids[k].CreatedAt)
	})
}

func sortAcceptancesNewestFirst(acc []acceptance.JobAcceptance) {
	sort.Slice(acc, func(i, k int) bool {
		return acc[i].CreatedAt.After(acc[k].CreatedAt)
	})
}
