package dispatch

import (
	"fmt"
	"log/slog"

	"mistribazar/internal/models/acceptance"
	"mistribazar/internal/models/job"
	"mistribazar/internal/models/user"
)

// Decide records a worker's terminal decision on an OPEN JOB-category job.
// ACCEPTED dispatches the job immediately (first qualified acceptor wins);
// REJECTED leaves it OPEN for other workers. Either way the worker has spent
// their one decision: resubmission fails with ErrDuplicateDecision.
//
// The job-status check and the record creation happen as one unit under the
// per-job lock, so of two racing ACCEPTED decisions exactly one succeeds and
// the other sees ErrJobNotOpen.
func (rt *Router) Decide(actor user.Actor, req acceptance.AcceptanceRequest) (acceptance.JobAcceptance, error) {
	const op = "dispatch.Decide"

	if !acceptance.ValidDecision(req.Decision) {
		return acceptance.JobAcceptance{}, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	if err := rt.locks.lock(req.JobId); err != nil {
		return acceptance.JobAcceptance{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rt.locks.unlock(req.JobId)

	j, err := rt.store.FetchJob(req.JobId)
	if err != nil {
		return acceptance.JobAcceptance{}, fmt.Errorf("%s: %w", op, err)
	}

	if j.Category != job.CategoryJob {
		return acceptance.JobAcceptance{}, fmt.Errorf("%s: %w", op, ErrInvalidCategory)
	}
	if j.Status != job.StatusOpen {
		return acceptance.JobAcceptance{}, fmt.Errorf("%s: %w", op, ErrJobNotOpen)
	}
	if CanAct(actor, j) != CanAcceptReject {
		return acceptance.JobAcceptance{}, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	prior, err := rt.store.ReadJobAcceptances(req.JobId)
	if err != nil {
		return acceptance.JobAcceptance{}, fmt.Errorf("%s: %w", op, err)
	}
	for _, a := range prior {
		if a.WorkerId == actor.Id {
			return acceptance.JobAcceptance{}, fmt.Errorf("%s: %w", op, ErrDuplicateDecision)
		}
	}

	rec := acceptance.JobAcceptance{
		JobId:    req.JobId,
		WorkerId: actor.Id,
		Status:   req.Decision,
		Note:     req.Note,
	}

	var saved acceptance.JobAcceptance
	if req.Decision == acceptance.DecisionAccepted {
		saved, err = rt.store.ApplyDirectAccept(rec)
	} else {
		saved, err = rt.store.SaveAcceptance(rec)
	}
	if err != nil {
		return acceptance.JobAcceptance{}, fmt.Errorf("%s: %w", op, err)
	}

	rt.log.Info("direct dispatch decision",
		slog.String("jobId", req.JobId),
		slog.String("workerId", actor.Id),
		slog.String("decision", string(req.Decision)))
	return saved, nil
}

// JobAcceptances lists the decisions recorded on a job. Poster only.
func (rt *Router) JobAcceptances(jobId string, actor user.Actor) ([]acceptance.JobAcceptance, error) {
	const op = "dispatch.JobAcceptances"

	j, err := rt.store.FetchJob(jobId)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if j.ConsumerId != actor.Id {
		return nil, fmt.Errorf("%s: %w", op, ErrNotOwner)
	}

	result, err := rt.store.ReadJobAcceptances(jobId)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MyAcceptances lists the worker's own decisions.
func (rt *Router) MyAcceptances(actor user.Actor) ([]acceptance.JobAcceptance, error) {
	const op = "dispatch.MyAcceptances"

	result, err := rt.store.ReadMyAcceptances(actor.Id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
