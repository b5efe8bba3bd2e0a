package flow

import "strings"

// Policy decides what the dispatcher does when a collaborator fails.
type Policy string

const (
	// BestEffort logs the failure and carries on as if the call worked.
	BestEffort Policy = "best_effort"
	// NotifyUser logs the failure and tells the user something went wrong.
	NotifyUser Policy = "notify_user"
)

// Policies holds the failure policy per collaborator. Transport failures
// are always BestEffort: there is no channel left to tell the user on.
type Policies struct {
	Sink   Policy
	Answer Policy
}

// DefaultPolicies keeps persistence silent and surfaces answer failures.
func DefaultPolicies() Policies {
	return Policies{Sink: BestEffort, Answer: NotifyUser}
}

// ParsePolicy maps a config string to a Policy, falling back to def.
func ParsePolicy(raw string, def Policy) Policy {
	switch Policy(strings.ToLower(strings.TrimSpace(raw))) {
	case BestEffort:
		return BestEffort
	case NotifyUser:
		return NotifyUser
	default:
		return def
	}
}
