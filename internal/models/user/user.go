package user

import (
	"net/http"
	"time"
)

type Role string

const (
	RoleConsumer   Role = "CONSUMER"
	RoleContractor Role = "CONTRACTOR"
	RoleTrader     Role = "TRADER"
	RoleMistri     Role = "MISTRI"
)

func ValidRole(r Role) bool {
	switch r {
	case RoleConsumer, RoleContractor, RoleTrader, RoleMistri:
		return true
	default:
		return false
	}
}

type User struct {
	Id        string    `json:"id"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Actor is the authenticated identity attached upstream by the auth
// collaborator. The core trusts it and performs no credential checks itself.
type Actor struct {
	Id   string
	Role Role
}

// ActorFromRequest reads the identity headers set by the auth layer.
func ActorFromRequest(r *http.Request) (Actor, bool) {
	id := r.Header.Get("X-User-Id")
	role := Role(r.Header.Get("X-User-Role"))
	if id == "" || !ValidRole(role) {
		return Actor{}, false
	}
	return Actor{Id: id, Role: role}, true
}
