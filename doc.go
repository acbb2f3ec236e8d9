// Package accounts provides the domain core of a multi-tenant account
// service: role-based authorization, change auditing, the friendship graph,
// and one-time-code flows (activation, password reset, invitations).
//
// Policy evaluation:
//   - PolicyCheck functions compose into an ordered chain
//     (authenticated → active → ownership/role → capability) where the first
//     denial short-circuits. Checks are pure: they inspect an Actor, the
//     target owner id, and the requested change, and return categorized
//     errors that carry a human-readable reason.
//
// Change auditing:
//   - Trail wraps mutating operations, snapshots the prior state through a
//     closed per-resource field projection, and persists only the fields that
//     actually changed. Audit persistence runs best-effort: a failed append
//     is logged and never rolls back the primary operation.
//
// One-time codes:
//   - CodeLifecycle is generic over a CodeProfile (entropy, expiry, owner
//     scoping). Issuing an owner-scoped code invalidates the owner's prior
//     outstanding codes; consumption is a single conditional update so a code
//     can never be redeemed twice.
//
// Friendships:
//   - FriendGraph enforces the pending/accepted/declined state machine over
//     an unordered pair of users, with symmetric uniqueness at creation and
//     receiver-only responses.
package accounts
