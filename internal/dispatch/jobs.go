package dispatch

import (
	"fmt"
	"log/slog"

	"mistribazar/internal/models/bid"
	"mistribazar/internal/models/job"
	"mistribazar/internal/models/user"
)

// CreateJob posts a new OPEN job on behalf of a consumer. The category is
// fixed for the job's lifetime and decides whether it is resolved by
// competitive bidding (PROJECT) or direct dispatch (JOB).
func (rt *Router) CreateJob(actor user.Actor, req job.JobRequest) (job.Job, error) {
	const op = "dispatch.CreateJob"

	if actor.Role != user.RoleConsumer {
		return job.Job{}, fmt.Errorf("%s: %w", op, ErrForbidden)
	}
	if !job.ValidCategory(req.Category) || !job.ValidJobType(req.Category, req.JobType) {
		return job.Job{}, fmt.Errorf("%s: %w", op, ErrInvalidCategory)
	}
	if req.BudgetMin < 0 || req.BudgetMax <= req.BudgetMin {
		return job.Job{}, fmt.Errorf("%s: %w", op, ErrOutOfRange)
	}

	saved, err := rt.store.SaveJob(job.Job{
		ConsumerId:  actor.Id,
		Category:    req.Category,
		JobType:     req.JobType,
		Title:       req.Title,
		Description: req.Description,
		BudgetMin:   req.BudgetMin,
		BudgetMax:   req.BudgetMax,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Address:     req.Address,
		Status:      job.StatusOpen,
	})
	if err != nil {
		return job.Job{}, fmt.Errorf("%s: %w", op, err)
	}

	rt.log.Info("job created",
		slog.String("jobId", saved.Id),
		slog.String("category", string(saved.Category)))
	return saved, nil
}

// JobPatch carries poster-editable fields. Nil means unchanged.
type JobPatch struct {
	Title       *string
	Description *string
	BudgetMin   *float64
	BudgetMax   *float64
}

// EditJob lets the poster amend an OPEN job. Budget bounds freeze as soon as
// any non-withdrawn bid exists, so bids already placed within the range
// cannot be invalidated after the fact.
func (rt *Router) EditJob(jobId string, actor user.Actor, patch JobPatch) (job.Job, error) {
	const op = "dispatch.EditJob"

	if err := rt.locks.lock(jobId); err != nil {
		return job.Job{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rt.locks.unlock(jobId)

	j, err := rt.store.FetchJob(jobId)
	if err != nil {
		return job.Job{}, fmt.Errorf("%s: %w", op, err)
	}
	if j.ConsumerId != actor.Id {
		return job.Job{}, fmt.Errorf("%s: %w", op, ErrNotOwner)
	}
	if j.Status != job.StatusOpen {
		return job.Job{}, fmt.Errorf("%s: %w", op, ErrJobNotOpen)
	}

	if patch.BudgetMin != nil || patch.BudgetMax != nil {
		active, err := rt.hasActiveBid(jobId)
		if err != nil {
			return job.Job{}, fmt.Errorf("%s: %w", op, err)
		}
		if active {
			return job.Job{}, fmt.Errorf("%s: %w", op, ErrForbidden)
		}
		if patch.BudgetMin != nil {
			j.BudgetMin = *patch.BudgetMin
		}
		if patch.BudgetMax != nil {
			j.BudgetMax = *patch.BudgetMax
		}
		if j.BudgetMin < 0 || j.BudgetMax <= j.BudgetMin {
			return job.Job{}, fmt.Errorf("%s: %w", op, ErrOutOfRange)
		}
	}
	if patch.Title != nil {
		j.Title = *patch.Title
	}
	if patch.Description != nil {
		j.Description = *patch.Description
	}

	updated, err := rt.store.UpdateJob(j)
	if err != nil {
		return job.Job{}, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// Cancel closes an OPEN job without dispatching it. Poster only.
func (rt *Router) Cancel(jobId string, actor user.Actor) (job.Job, error) {
	const op = "dispatch.Cancel"

	if err := rt.locks.lock(jobId); err != nil {
		return job.Job{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rt.locks.unlock(jobId)

	j, err := rt.store.FetchJob(jobId)
	if err != nil {
		return job.Job{}, fmt.Errorf("%s: %w", op, err)
	}
	if j.ConsumerId != actor.Id {
		return job.Job{}, fmt.Errorf("%s: %w", op, ErrNotOwner)
	}
	if j.Status != job.StatusOpen {
		return job.Job{}, fmt.Errorf("%s: %w", op, ErrJobNotOpen)
	}

	updated, err := rt.store.SetJobStatus(jobId, job.StatusCancelled)
	if err != nil {
		return job.Job{}, fmt.Errorf("%s: %w", op, err)
	}

	rt.log.Info("job cancelled", slog.String("jobId", jobId))
	return updated, nil
}

// Complete marks an IN_PROGRESS job done. A manual poster step; no bid or
// acceptance event triggers it.
func (rt *Router) Complete(jobId string, actor user.Actor) (job.Job, error) {
	const op = "dispatch.Complete"

	if err := rt.locks.lock(jobId); err != nil {
		return job.Job{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rt.locks.unlock(jobId)

	j, err := rt.store.FetchJob(jobId)
	if err != nil {
		return job.Job{}, fmt.Errorf("%s: %w", op, err)
	}
	if j.ConsumerId != actor.Id {
		return job.Job{}, fmt.Errorf("%s: %w", op, ErrNotOwner)
	}
	if j.Status != job.StatusInProgress {
		return job.Job{}, fmt.Errorf("%s: %w", op, ErrJobNotOpen)
	}

	updated, err := rt.store.SetJobStatus(jobId, job.StatusCompleted)
	if err != nil {
		return job.Job{}, fmt.Errorf("%s: %w", op, err)
	}

	rt.log.Info("job completed", slog.String("jobId", jobId))
	return updated, nil
}

// Jobs lists jobs with optional status and type filters. Zero values mean
// no filter.
func (rt *Router) Jobs(status job.Status, jobType job.JobType) ([]job.Job, error) {
	const op = "dispatch.Jobs"

	result, err := rt.store.ReadJobs(status, jobType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MyJobs lists the poster's own jobs.
func (rt *Router) MyJobs(actor user.Actor) ([]job.Job, error) {
	const op = "dispatch.MyJobs"

	result, err := rt.store.ReadMyJobs(actor.Id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// JobStatus reports the current status of a job. Read-only, no lock.
func (rt *Router) JobStatus(jobId string) (job.Status, error) {
	const op = "dispatch.JobStatus"

	j, err := rt.store.FetchJob(jobId)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return j.Status, nil
}

func (rt *Router) hasActiveBid(jobId string) (bool, error) {
	existing, err := rt.store.ReadJobBids(jobId)
	if err != nil {
		return false, err
	}
	for _, b := range existing {
		if b.Status != bid.StatusWithdrawn {
			return true, nil
		}
	}
	return false, nil
}
