package types

import "time"

// QueryResponse is the assistant's answer envelope. It is both the unit
// stored in the cache and the value returned to the caller, so its shape
// must survive a JSON round trip unchanged.
type QueryResponse struct {
	Success          bool      `json:"success"`
	Answer           string    `json:"answer"`
	InterpretedQuery QueryType `json:"interpretedQuery,omitempty"`
	Data             []Row     `json:"data,omitempty"`
	ChartType        string    `json:"chartType,omitempty"`
	ErrorMessage     string    `json:"errorMessage,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Role is the authorization level of a principal.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// ParseRole validates a role string.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleMember, RoleAdmin:
		return Role(s), true
	default:
		return "", false
	}
}
