package accounts

import (
	"github.com/google/uuid"
)

// Actor is the authenticated caller, loaded once per request and immutable
// for the request's duration. A nil *Actor means no identity was resolved.
type Actor struct {
	ID        uuid.UUID
	Username  string
	Role      UserRole
	Active    bool
	CanInvite bool
}

// PolicyRequest is the input to every policy check: who is acting, which
// resource owner they target, and the requested change (the mutation body,
// keyed by field name). TargetOwnerID is empty for side-action endpoints
// that have no target resource.
type PolicyRequest struct {
	Actor         *Actor
	TargetOwnerID string
	Change        map[string]any
}

// SelfTargeting reports whether the actor targets their own resource.
func (r PolicyRequest) SelfTargeting() bool {
	return r.Actor != nil && r.TargetOwnerID != "" && r.Actor.ID.String() == r.TargetOwnerID
}

// PolicyCheck decides allow (nil) or deny (categorized error) for a request.
// Checks are pure; they never touch storage.
type PolicyCheck func(req PolicyRequest) error

// PolicyChain composes checks in order; the first denial short-circuits.
// Read-only endpoints with optional authentication simply omit
// RequireAuthenticated from their chain and render the restricted view when
// req.Actor is nil.
func PolicyChain(checks ...PolicyCheck) PolicyCheck {
	return func(req PolicyRequest) error {
		for _, check := range checks {
			if check == nil {
				continue
			}
			if err := check(req); err != nil {
				return err
			}
		}
		return nil
	}
}

// RequireAuthenticated denies requests that resolved no actor.
func RequireAuthenticated(req PolicyRequest) error {
	if req.Actor == nil {
		return ErrUnauthenticated
	}
	return nil
}

// RequireActiveAccount denies actors that never activated their account.
// Requests without a resolved actor are deferred to downstream checks.
func RequireActiveAccount(req PolicyRequest) error {
	if req.Actor == nil {
		return nil
	}
	if !req.Actor.Active {
		return ErrAccountInactive
	}
	return nil
}

// RequireSelfOrPrivileged is the ownership/role check for endpoints where an
// actor mutates a target user's resource. Self-targeting requests pass for
// every role. For other targets: ROOT always passes, ADMIN passes unless the
// change touches the role field, USER never passes.
func RequireSelfOrPrivileged(req PolicyRequest) error {
	if req.Actor == nil {
		return ErrUnauthenticated
	}

	if req.SelfTargeting() {
		return nil
	}

	switch req.Actor.Role {
	case RoleRoot:
		return nil
	case RoleAdmin:
		if _, ok := req.Change["role"]; ok {
			return NewForbidden("Admins cannot change user roles. Only ROOT users can modify roles.")
		}
		return nil
	case RoleUser:
		return NewForbidden("Users can only modify their own profile using dedicated endpoints")
	default:
		return NewForbidden("Invalid user role")
	}
}

// RequireInviteCapability gates side-action endpoints such as invitation
// creation: admin tier always passes, regular users only with the canInvite
// flag.
func RequireInviteCapability(req PolicyRequest) error {
	if req.Actor == nil {
		return ErrUnauthenticated
	}

	if IsAdminTier(req.Actor.Role) {
		return nil
	}

	if req.Actor.Role == RoleUser && req.Actor.CanInvite {
		return nil
	}

	return NewForbidden("You do not have permission to create invitations. Only ROOT, ADMIN users, or users with canInvite permission can create invitations.")
}

// RequireAdminTier denies everything below ADMIN; used for admin-only read
// surfaces such as the audit page.
func RequireAdminTier(req PolicyRequest) error {
	if req.Actor == nil {
		return ErrUnauthenticated
	}
	if !IsAdminTier(req.Actor.Role) {
		return NewForbidden("Insufficient permissions. Only ROOT and ADMIN users can access this resource.")
	}
	return nil
}

// MutatePolicy is the standard chain for actor-mutates-user endpoints.
func MutatePolicy() PolicyCheck {
	return PolicyChain(
		RequireAuthenticated,
		RequireActiveAccount,
		RequireSelfOrPrivileged,
	)
}

// InvitePolicy is the standard chain for invitation creation.
func InvitePolicy() PolicyCheck {
	return PolicyChain(
		RequireAuthenticated,
		RequireActiveAccount,
		RequireInviteCapability,
	)
}
