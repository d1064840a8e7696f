package dispatch

import (
	"mistribazar/internal/models/acceptance"
	"mistribazar/internal/models/bid"
	"mistribazar/internal/models/job"
	"mistribazar/internal/models/user"
)

// Store persists jobs, bids and acceptances. The router performs all rule
// checks itself under the per-job lock; the store is only asked to apply
// already-validated transitions. The two Apply methods must be atomic: either
// every entity involved moves, or none does.
//
// Unknown ids surface ErrNotFound.
type Store interface {
	SaveJob(j job.Job) (job.Job, error)
	FetchJob(id string) (job.Job, error)
	ReadJobs(status job.Status, jobType job.JobType) ([]job.Job, error)
	ReadMyJobs(consumerId string) ([]job.Job, error)
	UpdateJob(j job.Job) (job.Job, error)
	SetJobStatus(id string, status job.Status) (job.Job, error)

	SaveBid(b bid.Bid) (bid.Bid, error)
	FetchBid(id string) (bid.Bid, error)
	ReadJobBids(jobId string) ([]bid.Bid, error)
	ReadMyBids(bidderId string) ([]bid.Bid, error)
	SetBidStatus(id string, status bid.Status) (bid.Bid, error)

	// ApplyBidAccept marks the bid ACCEPTED, rejects every other PENDING bid
	// on the same job, and moves the job to IN_PROGRESS with the bidder
	// recorded as selected provider, all in one atomic step.
	ApplyBidAccept(jobId, bidId string) (bid.Bid, error)

	SaveAcceptance(a acceptance.JobAcceptance) (acceptance.JobAcceptance, error)
	ReadJobAcceptances(jobId string) ([]acceptance.JobAcceptance, error)
	ReadMyAcceptances(workerId string) ([]acceptance.JobAcceptance, error)

	// ApplyDirectAccept creates the ACCEPTED record and moves the job to
	// IN_PROGRESS with the worker as selected provider, atomically. It must
	// fail with ErrJobNotOpen if the job row is no longer OPEN at commit
	// time, so that of two racing workers exactly one wins.
	ApplyDirectAccept(a acceptance.JobAcceptance) (acceptance.JobAcceptance, error)

	FetchUser(id string) (user.User, error)
}
