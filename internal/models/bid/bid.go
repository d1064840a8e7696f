package bid

import "time"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusRejected  Status = "REJECTED"
	StatusWithdrawn Status = "WITHDRAWN"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusWithdrawn:
		return true
	default:
		return false
	}
}

type BidRequest struct {
	JobId         string  `json:"jobId" validate:"required"`
	Amount        float64 `json:"amount" validate:"gt=0"`
	EstimatedDays int     `json:"estimatedDays" validate:"gte=1"`
	Message       string  `json:"message"`
}

type Bid struct {
	Id            string    `json:"id"`
	JobId         string    `json:"jobId"`
	BidderId      string    `json:"bidderId"`
	Amount        float64   `json:"amount"`
	EstimatedDays int       `json:"estimatedDays"`
	Message       string    `json:"message"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}
