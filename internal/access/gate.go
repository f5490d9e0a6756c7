// Package access decides who may do what and narrows store queries to the
// rows a principal owns.
package access

import (
	"fmt"
	"strings"

	"farm-backend/internal/response"

	"github.com/samber/lo"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleUser    Role = "USER"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleManager, RoleUser}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// ParseRole accepts any casing and rejects unknown roles.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Principal is the authenticated caller of a single request.
type Principal struct {
	ID   uint `json:"id"`
	Role Role `json:"role"`
}

func (p *Principal) IsAdmin() bool { return p != nil && p.Role == RoleAdmin }

type Reason string

const (
	ReasonUnauthenticated  Reason = "Unauthenticated"
	ReasonInsufficientRole Reason = "InsufficientRole"
	ReasonForbidden        Reason = "Forbidden"
)

// Decision is the result of every gate check. Principal is set only when Authorized.
type Decision struct {
	Authorized bool
	Principal  *Principal
	Reason     Reason
}

func allow(p *Principal) Decision { return Decision{Authorized: true, Principal: p} }

func deny(r Reason) Decision { return Decision{Reason: r} }

// Err converts a denial into the matching HTTP failure. It returns nil when authorized.
func (d Decision) Err() error {
	if d.Authorized {
		return nil
	}
	switch d.Reason {
	case ReasonUnauthenticated:
		return response.Unauthorized("Authentication required")
	case ReasonInsufficientRole:
		return response.Forbidden("Insufficient permissions for this operation")
	default:
		return response.Forbidden("You are not allowed to access this resource")
	}
}

func RequireAuthenticated(p *Principal) Decision {
	if p == nil {
		return deny(ReasonUnauthenticated)
	}
	return allow(p)
}

func RequireRole(p *Principal, allowed ...Role) Decision {
	d := RequireAuthenticated(p)
	if !d.Authorized {
		return d
	}
	if hasRole(p.Role, allowed) {
		return d
	}
	return deny(ReasonInsufficientRole)
}

// RequireSelfOrRole authorizes when the principal is the target itself or holds an allowed role.
func RequireSelfOrRole(p *Principal, targetID uint, allowed ...Role) Decision {
	d := RequireAuthenticated(p)
	if !d.Authorized {
		return d
	}
	if p.ID == targetID || hasRole(p.Role, allowed) {
		return d
	}
	return deny(ReasonForbidden)
}

func hasRole(r Role, allowed []Role) bool {
	return lo.Contains(allowed, r)
}
