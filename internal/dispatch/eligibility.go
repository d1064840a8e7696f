package dispatch

import (
	"mistribazar/internal/models/job"
	"mistribazar/internal/models/user"
)

type Action int

const (
	Forbidden Action = iota
	CanBid
	CanAcceptReject
	CanManage
)

// CanAct is the single role/category eligibility lookup. Consumers manage
// their own jobs, contractors and traders bid on PROJECT work, mistri
// accept or reject JOB work. The poster can never act as a provider on
// their own job, and providers get nothing on a job that is no longer
// OPEN; only the poster retains manage rights after dispatch (for
// completion).
func CanAct(actor user.Actor, j job.Job) Action {
	if actor.Id == j.ConsumerId {
		if actor.Role == user.RoleConsumer {
			return CanManage
		}
		return Forbidden
	}

	if j.Status != job.StatusOpen {
		return Forbidden
	}

	switch actor.Role {
	case user.RoleContractor, user.RoleTrader:
		if j.Category == job.CategoryProject {
			return CanBid
		}
	case user.RoleMistri:
		if j.Category == job.CategoryJob {
			return CanAcceptReject
		}
	}
	return Forbidden
}
