package dispatch

import (
	"fmt"
	"log/slog"

	"mistribazar/internal/models/bid"
	"mistribazar/internal/models/job"
	"mistribazar/internal/models/user"
)

// SubmitBid places a PENDING bid on an OPEN PROJECT-category job. The amount
// must lie inside the job's budget range; a bidder holds at most one
// non-withdrawn bid per job.
func (rt *Router) SubmitBid(actor user.Actor, req bid.BidRequest) (bid.Bid, error) {
	const op = "dispatch.SubmitBid"

	if err := rt.locks.lock(req.JobId); err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rt.locks.unlock(req.JobId)

	j, err := rt.store.FetchJob(req.JobId)
	if err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}

	if j.Category != job.CategoryProject {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, ErrInvalidCategory)
	}
	if req.Amount < j.BudgetMin || req.Amount > j.BudgetMax {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, ErrOutOfRange)
	}
	if j.Status != job.StatusOpen {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, ErrJobNotOpen)
	}
	if CanAct(actor, j) != CanBid {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, ErrForbidden)
	}
	if req.EstimatedDays < 1 {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, ErrOutOfRange)
	}

	existing, err := rt.store.ReadJobBids(req.JobId)
	if err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}
	for _, b := range existing {
		if b.BidderId == actor.Id && b.Status != bid.StatusWithdrawn {
			return bid.Bid{}, fmt.Errorf("%s: %w", op, ErrDuplicateBid)
		}
	}

	saved, err := rt.store.SaveBid(bid.Bid{
		JobId:         req.JobId,
		BidderId:      actor.Id,
		Amount:        req.Amount,
		EstimatedDays: req.EstimatedDays,
		Message:       req.Message,
		Status:        bid.StatusPending,
	})
	if err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}

	rt.log.Info("bid submitted",
		slog.String("bidId", saved.Id),
		slog.String("jobId", saved.JobId))
	return saved, nil
}

// AcceptBid resolves a PROJECT job: the chosen bid becomes ACCEPTED, every
// other PENDING bid on the job is REJECTED in the same atomic step, and the
// job moves to IN_PROGRESS with the bidder as selected provider.
func (rt *Router) AcceptBid(bidId string, actor user.Actor) (bid.Bid, error) {
	const op = "dispatch.AcceptBid"

	b, err := rt.store.FetchBid(bidId)
	if err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := rt.locks.lock(b.JobId); err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rt.locks.unlock(b.JobId)

	// Re-read under the lock; the bid may have moved while we waited.
	b, err = rt.store.FetchBid(bidId)
	if err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}
	j, err := rt.store.FetchJob(b.JobId)
	if err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}

	if j.ConsumerId != actor.Id {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, ErrNotOwner)
	}
	if b.Status != bid.StatusPending {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, ErrNotPending)
	}
	if j.Status != job.StatusOpen {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, ErrJobNotOpen)
	}

	accepted, err := rt.store.ApplyBidAccept(j.Id, bidId)
	if err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}

	rt.log.Info("bid accepted, job dispatched",
		slog.String("bidId", bidId),
		slog.String("jobId", j.Id),
		slog.String("providerId", accepted.BidderId))
	return accepted, nil
}

// RejectBid declines one bid. The job stays OPEN for the remaining bidders.
func (rt *Router) RejectBid(bidId string, actor user.Actor) (bid.Bid, error) {
	const op = "dispatch.RejectBid"

	b, err := rt.store.FetchBid(bidId)
	if err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := rt.locks.lock(b.JobId); err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rt.locks.unlock(b.JobId)

	b, err = rt.store.FetchBid(bidId)
	if err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}
	j, err := rt.store.FetchJob(b.JobId)
	if err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}

	if j.ConsumerId != actor.Id {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, ErrNotOwner)
	}
	if b.Status != bid.StatusPending {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, ErrNotPending)
	}
	if j.Status != job.StatusOpen {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, ErrJobNotOpen)
	}

	rejected, err := rt.store.SetBidStatus(bidId, bid.StatusRejected)
	if err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}
	return rejected, nil
}

// WithdrawBid lets the bidder pull a PENDING bid.
func (rt *Router) WithdrawBid(bidId string, actor user.Actor) (bid.Bid, error) {
	const op = "dispatch.WithdrawBid"

	b, err := rt.store.FetchBid(bidId)
	if err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := rt.locks.lock(b.JobId); err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rt.locks.unlock(b.JobId)

	b, err = rt.store.FetchBid(bidId)
	if err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}
	if b.BidderId != actor.Id {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, ErrForbidden)
	}
	if b.Status != bid.StatusPending {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, ErrNotPending)
	}

	withdrawn, err := rt.store.SetBidStatus(bidId, bid.StatusWithdrawn)
	if err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}
	return withdrawn, nil
}

// JobBids lists all bids on a job. Poster only; bidders use MyBids.
func (rt *Router) JobBids(jobId string, actor user.Actor) ([]bid.Bid, error) {
	const op = "dispatch.JobBids"

	j, err := rt.store.FetchJob(jobId)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if j.ConsumerId != actor.Id {
		return nil, fmt.Errorf("%s: %w", op, ErrNotOwner)
	}

	result, err := rt.store.ReadJobBids(jobId)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MyBids lists the bidder's own bids.
func (rt *Router) MyBids(actor user.Actor) ([]bid.Bid, error) {
	const op = "dispatch.MyBids"

	result, err := rt.store.ReadMyBids(actor.Id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
