package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// UserResource is the audit resource kind for account mutations.
const UserResource = "users"

// jsonFieldToColumn maps request-body field names to user columns.
var jsonFieldToColumn = map[string]string{
	"username":      "username",
	"email":         "email",
	"role":          "user_role",
	"active":        "active",
	"can_invite":    "can_invite",
	"configuration": "configuration",
}

type UpdateUserMessage struct {
	Actor    *Actor         `json:"-"`
	TargetID uuid.UUID      `json:"target_id"`
	Changes  map[string]any `json:"changes"`
}

func (e UpdateUserMessage) Type() string { return "user.update" }

type DeleteUserMessage struct {
	Actor    *Actor    `json:"-"`
	TargetID uuid.UUID `json:"target_id"`
}

func (e DeleteUserMessage) Type() string { return "user.delete" }

// UpdateUserHandler routes profile mutations through the policy chain and
// the audit trail: policy first, snapshot and diff around the write.
type UpdateUserHandler struct {
	users  Users
	policy PolicyCheck
	trail  *Trail
	logger Logger
}

// UpdateUserOption customizes the handler.
type UpdateUserOption func(*UpdateUserHandler)

// WithUpdatePolicy replaces the default mutation policy chain.
func WithUpdatePolicy(policy PolicyCheck) UpdateUserOption {
	return func(h *UpdateUserHandler) {
		if policy != nil {
			h.policy = policy
		}
	}
}

// WithUpdateLogger overrides the logger.
func WithUpdateLogger(logger Logger) UpdateUserOption {
	return func(h *UpdateUserHandler) {
		h.logger = normalizeLogger(logger)
	}
}

// NewUpdateUserHandler creates the account mutation handler. The trail is
// required; it registers the users snapshot projection on construction.
func NewUpdateUserHandler(users Users, trail *Trail, opts ...UpdateUserOption) *UpdateUserHandler {
	trail.RegisterSnapshot(UserResource, users.Snapshot)

	h := &UpdateUserHandler{
		users:  users,
		policy: MutatePolicy(),
		trail:  trail,
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *UpdateUserHandler) Execute(ctx context.Context, event UpdateUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateUserHandler) execute(ctx context.Context, event UpdateUserMessage) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := h.policy(PolicyRequest{
		Actor:         event.Actor,
		TargetOwnerID: event.TargetID.String(),
		Change:        event.Changes,
	}); err != nil {
		return nil, err
	}

	columns := map[string]any{}
	for field, value := range event.Changes {
		if column, ok := jsonFieldToColumn[field]; ok {
			columns[column] = value
		}
	}

	var updated *User
	err := h.trail.Around(ctx, Mutation{
		Actor:      event.Actor,
		Action:     AuditActionUpdate,
		Resource:   UserResource,
		ResourceID: event.TargetID.String(),
		Body:       event.Changes,
	}, func(ctx context.Context) error {
		var err error
		updated, err = h.users.UpdateFields(ctx, event.TargetID, columns)
		if err != nil {
			if IsNotFound(err) {
				return NewNotFound("User")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("user %s updated by %s", event.TargetID, event.Actor.ID)
	return updated, nil
}

// Delete removes the account permanently, recording a DELETE audit entry
// with the prior snapshot. Admin tier only.
func (h *UpdateUserHandler) Delete(ctx context.Context, event DeleteUserMessage) error {
	chain := PolicyChain(RequireAuthenticated, RequireActiveAccount, RequireAdminTier)
	if err := chain(PolicyRequest{
		Actor:         event.Actor,
		TargetOwnerID: event.TargetID.String(),
	}); err != nil {
		return err
	}

	err := h.trail.Around(ctx, Mutation{
		Actor:      event.Actor,
		Action:     AuditActionDelete,
		Resource:   UserResource,
		ResourceID: event.TargetID.String(),
	}, func(ctx context.Context) error {
		if err := h.users.DeleteByID(ctx, event.TargetID); err != nil {
			if IsNotFound(err) {
				return NewNotFound("User")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	h.logger.Info("user %s deleted by %s", event.TargetID, event.Actor.ID)
	return nil
}
