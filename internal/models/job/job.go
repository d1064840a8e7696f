package job

import "time"

type Category string

const (
	CategoryProject Category = "PROJECT"
	CategoryJob     Category = "JOB"
)

func ValidCategory(c Category) bool {
	switch c {
	case CategoryProject, CategoryJob:
		return true
	default:
		return false
	}
}

type JobType string

const (
	TypeConstruction JobType = "CONSTRUCTION"
	TypeRenovation   JobType = "RENOVATION"
	TypeRepair       JobType = "REPAIR"
	TypePainting     JobType = "PAINTING"
	TypePlumbing     JobType = "PLUMBING"
	TypeElectrical   JobType = "ELECTRICAL"
	TypeCarpentry    JobType = "CARPENTRY"
)

// ValidJobType reports whether t belongs to category c. PROJECT work is
// construction-scale, JOB work is small repair/maintenance.
func ValidJobType(c Category, t JobType) bool {
	switch c {
	case CategoryProject:
		return t == TypeConstruction || t == TypeRenovation
	case CategoryJob:
		switch t {
		case TypeRepair, TypePainting, TypePlumbing, TypeElectrical, TypeCarpentry:
			return true
		}
	}
	return false
}

type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

type JobRequest struct {
	Category    Category `json:"category" validate:"required"`
	JobType     JobType  `json:"jobType" validate:"required"`
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description" validate:"required"`
	BudgetMin   float64  `json:"budgetMin" validate:"gte=0"`
	BudgetMax   float64  `json:"budgetMax" validate:"gtfield=BudgetMin"`
	Address     string   `json:"address" validate:"required"`
	Latitude    float64  `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude   float64  `json:"longitude" validate:"required,gte=-180,lte=180"`
}

type Job struct {
	Id               string    `json:"id"`
	ConsumerId       string    `json:"consumerId"`
	Category         Category  `json:"category"`
	JobType          JobType   `json:"jobType"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	BudgetMin        float64   `json:"budgetMin"`
	BudgetMax        float64   `json:"budgetMax"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	Address          string    `json:"address"`
	Status           Status    `json:"status"`
	SelectedProvider string    `json:"selectedProvider,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// NearbyJob is a Job plus its haversine distance from the query origin.
type NearbyJob struct {
	Job
	DistanceKm float64 `json:"distanceKm"`
}
