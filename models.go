package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is a regular account (self-service only)
	RoleUser UserRole = "USER"
	// RoleAdmin is an administrative account (manage others, not roles)
	RoleAdmin UserRole = "ADMIN"
	// RoleRoot is the highest tier (manage others, including roles)
	RoleRoot UserRole = "ROOT"
)

// User is the account model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string         `bun:"username,notnull,unique" json:"username,omitempty"`
	Email         string         `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string         `bun:"password_hash" json:"password_hash,omitempty"`
	Role          UserRole       `bun:"user_role,notnull" json:"user_role,omitempty"`
	Active        bool           `bun:"active" json:"active"`
	CanInvite     bool           `bun:"can_invite" json:"can_invite"`
	Configuration map[string]any `bun:"configuration" json:"configuration,omitempty"`

	LoginAttempts  int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// AsActor projects the user into the immutable per-request caller view.
func (u *User) AsActor() *Actor {
	if u == nil {
		return nil
	}
	return &Actor{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		Active:    u.Active,
		CanInvite: u.CanInvite,
	}
}

// FriendshipStatus is the state of a friendship record
type FriendshipStatus = string

const (
	// FriendshipPending awaits the receiver's response
	FriendshipPending FriendshipStatus = "pending"
	// FriendshipAccepted is a confirmed friendship
	FriendshipAccepted FriendshipStatus = "accepted"
	// FriendshipDeclined was rejected by the receiver
	FriendshipDeclined FriendshipStatus = "declined"
)

// Friendship is a directed record over an unordered user pair: the
// requester initiated it, only the receiver may respond. At most one
// record exists per pair regardless of direction.
type Friendship struct {
	bun.BaseModel `bun:"table:friendships,alias:frd"`
	ID            uuid.UUID        `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	RequesterID   uuid.UUID        `bun:"requester_id,notnull,type:uuid" json:"requester_id,omitempty"`
	ReceiverID    uuid.UUID        `bun:"receiver_id,notnull,type:uuid" json:"receiver_id,omitempty"`
	Status        FriendshipStatus `bun:"status,notnull" json:"status,omitempty"`
	RespondedAt   *time.Time       `bun:"responded_at,nullzero" json:"responded_at,omitempty"`

	Requester *User `bun:"rel:has-one,join:requester_id=id" json:"requester,omitempty"`
	Receiver  *User `bun:"rel:has-one,join:receiver_id=id" json:"receiver,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Involves reports whether the given user is one side of the record.
func (f *Friendship) Involves(userID uuid.UUID) bool {
	return f != nil && (f.RequesterID == userID || f.ReceiverID == userID)
}

// CounterpartOf returns the other side of the pair.
func (f *Friendship) CounterpartOf(userID uuid.UUID) uuid.UUID {
	if f.RequesterID == userID {
		return f.ReceiverID
	}
	return f.RequesterID
}

// CodeKind identifies a one-time-code flow
type CodeKind = string

const (
	// CodeKindActivation activates a freshly registered account
	CodeKindActivation CodeKind = "activation"
	// CodeKindPasswordReset authorizes a password change
	CodeKindPasswordReset CodeKind = "password_reset"
	// CodeKindInvitation admits a new registration
	CodeKindInvitation CodeKind = "invitation"
)

// OneTimeCode is a single-use, time-bounded token. Owner-scoped kinds
// (activation, password reset) bind UserID at issue time; invitations leave
// it nil and bind UsedBy at consumption.
type OneTimeCode struct {
	bun.BaseModel `bun:"table:one_time_codes,alias:otc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Kind          CodeKind   `bun:"kind,notnull" json:"kind,omitempty"`
	Code          string     `bun:"code,notnull,unique" json:"code,omitempty"`
	UserID        *uuid.UUID `bun:"user_id,type:uuid" json:"user_id,omitempty"`
	CreatedBy     *uuid.UUID `bun:"created_by,type:uuid" json:"created_by,omitempty"`
	Used          bool       `bun:"used" json:"used"`
	UsedBy        *uuid.UUID `bun:"used_by,type:uuid" json:"used_by,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Live reports whether the code is still consumable at the given instant.
func (c *OneTimeCode) Live(now time.Time) bool {
	return c != nil && !c.Used && c.ExpiresAt.After(now)
}

// AuditAction labels the mutation recorded by an audit entry
type AuditAction = string

const (
	AuditActionCreate AuditAction = "CREATE"
	AuditActionRead   AuditAction = "READ"
	AuditActionUpdate AuditAction = "UPDATE"
	AuditActionDelete AuditAction = "DELETE"
	AuditActionUse    AuditAction = "USE"
)

// AuditRecord is an immutable change-log entry. OldValues/NewValues hold
// only the fields that actually differ; both empty means no record was
// written in the first place.
type AuditRecord struct {
	bun.BaseModel `bun:"table:audit_records,alias:aud"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	ActorID       string         `bun:"actor_id,notnull" json:"actor_id,omitempty"`
	ActorName     string         `bun:"actor_name,notnull" json:"actor_name,omitempty"`
	Action        AuditAction    `bun:"action,notnull" json:"action,omitempty"`
	Resource      string         `bun:"resource,notnull" json:"resource,omitempty"`
	ResourceID    string         `bun:"resource_id,notnull" json:"resource_id,omitempty"`
	OldValues     map[string]any `bun:"old_values" json:"old_values,omitempty"`
	NewValues     map[string]any `bun:"new_values" json:"new_values,omitempty"`
	ExpiresAt     time.Time      `bun:"expires_at,notnull" json:"expires_at,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// NotificationType is the display category of a notification
type NotificationType = string

const (
	NotificationDefault NotificationType = "notification"
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
	NotificationSuccess NotificationType = "success"
)

// Notification is a persisted per-user event emitted by the domain engines.
// Delivery is fire-and-forget; losing one never fails the operation that
// produced it.
type Notification struct {
	bun.BaseModel `bun:"table:notifications,alias:ntf"`
	ID            uuid.UUID        `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	ReceiverID    uuid.UUID        `bun:"receiver_id,notnull,type:uuid" json:"receiver_id,omitempty"`
	Event         string           `bun:"event,notnull" json:"event,omitempty"`
	Message       string           `bun:"message,notnull" json:"message,omitempty"`
	Type          NotificationType `bun:"type,notnull" json:"type,omitempty"`
	Payload       map[string]any   `bun:"payload" json:"payload,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
