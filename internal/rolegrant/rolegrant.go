// Package rolegrant defines the membership collaborator consumed by the
// resolver. Platform failures are values, not errors: the resolver pattern
// matches on the Outcome instead of intercepting SDK exceptions.
package rolegrant

import "context"

type Outcome int

const (
	// Granted means the role was added to the member.
	Granted Outcome = iota
	// AlreadyHeld means the member already carries the role; nothing was
	// changed.
	AlreadyHeld
	// Forbidden means the bot lacks Manage Roles or sits below the role in
	// the hierarchy.
	Forbidden
	// RoleMissing means the configured role id does not exist in the guild.
	RoleMissing
	// TransientError covers any other platform failure; the user may retry.
	TransientError
)

func (o Outcome) String() string {
	switch o {
	case Granted:
		return "granted"
	case AlreadyHeld:
		return "already_held"
	case Forbidden:
		return "forbidden"
	case RoleMissing:
		return "role_missing"
	case TransientError:
		return "transient_error"
	default:
		return "unknown"
	}
}

// Result reports a grant attempt. RoleName is set whenever the role could be
// resolved, so replies can name it.
type Result struct {
	Outcome  Outcome
	RoleName string
}

// Granter performs idempotent role grants and membership lookups for one
// guild. The error return is reserved for caller misuse (empty ids); every
// platform failure maps to an Outcome, and Holds reports a failed lookup as
// not held.
type Granter interface {
	Grant(ctx context.Context, userID, roleID, reason string) (Result, error)
	// Holds reports whether the member already carries the role, with the
	// role name when it could be resolved. It never changes membership.
	Holds(ctx context.Context, userID, roleID string) (bool, string, error)
}
