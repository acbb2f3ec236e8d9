package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccountClaims are the JWT claims minted on login: the subject is the
// user id, plus the username, role, and activation flag the policy chain
// needs to rebuild an Actor without a database round trip.
type AccountClaims struct {
	jwt.RegisteredClaims
	Username  string   `json:"username,omitempty"`
	UserRole  UserRole `json:"role,omitempty"`
	Active    bool     `json:"active"`
	CanInvite bool     `json:"can_invite,omitempty"`
}

// UserID parses the subject claim back into a uuid.
func (c *AccountClaims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.RegisteredClaims.Subject)
	if err != nil {
		return uuid.Nil, ErrTokenMalformed
	}
	return id, nil
}

// Role returns the global role claim.
func (c *AccountClaims) Role() UserRole {
	return c.UserRole
}

// IsAtLeast checks if the role claim meets the minimum required role.
func (c *AccountClaims) IsAtLeast(minRole UserRole) bool {
	return RoleAtLeast(c.UserRole, minRole)
}

// Expires returns the expiration time
func (c *AccountClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// AsActor rebuilds the per-request caller view from the claims. The token
// reflects the account at mint time; callers that need fresh state should
// reload the user instead.
func (c *AccountClaims) AsActor() (*Actor, error) {
	id, err := c.UserID()
	if err != nil {
		return nil, err
	}
	return &Actor{
		ID:        id,
		Username:  c.Username,
		Role:      c.UserRole,
		Active:    c.Active,
		CanInvite: c.CanInvite,
	}, nil
}

func newAccountClaims(user *User, issuer string, audience jwt.ClaimStrings, now time.Time, ttl time.Duration) *AccountClaims {
	return &AccountClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID.String(),
			Audience:  audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Username:  user.Username,
		UserRole:  user.Role,
		Active:    user.Active,
		CanInvite: user.CanInvite,
	}
}
