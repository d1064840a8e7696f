package acceptance

import "time"

type Decision string

const (
	DecisionAccepted Decision = "ACCEPTED"
	DecisionRejected Decision = "REJECTED"
)

func ValidDecision(d Decision) bool {
	switch d {
	case DecisionAccepted, DecisionRejected:
		return true
	default:
		return false
	}
}

type AcceptanceRequest struct {
	JobId    string   `json:"jobId" validate:"required"`
	Decision Decision `json:"decision" validate:"required"`
	Note     string   `json:"note"`
}

// JobAcceptance records a worker's terminal decision on a JOB-category
// job. The worker's own action settles it; there is no poster-side
// decide step as there is for bids.
type JobAcceptance struct {
	Id        string    `json:"id"`
	JobId     string    `json:"jobId"`
	WorkerId  string    `json:"workerId"`
	Status    Decision  `json:"status"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"createdAt"`
}
