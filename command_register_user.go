package accounts

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	InvitationCode string `json:"invitation_code"`
	UseHashid      bool
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate will run validation rules
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Username, validation.Length(3, 100)),
		validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&e.Password, validation.Required, validation.Length(10, 100)),
	)
}

// RegisterUserHandler creates accounts: inactive by default, with an
// activation code issued inside the same transaction. When invite-only
// mode is on, registration requires a live invitation code; the code is
// consumed after the account exists so the usedBy binding points at the
// new user.
type RegisterUserHandler struct {
	repo            RepositoryManager
	activationCodes *CodeLifecycle
	invitationCodes *CodeLifecycle
	notify          NotificationSink
	trail           *Trail
	logger          Logger
	inviteOnly      bool
}

// RegisterUserOption customizes the handler.
type RegisterUserOption func(*RegisterUserHandler)

// WithInviteOnly requires a live invitation code for every registration.
func WithInviteOnly(invitations *CodeLifecycle) RegisterUserOption {
	return func(h *RegisterUserHandler) {
		h.invitationCodes = invitations
		h.inviteOnly = invitations != nil
	}
}

// WithRegisterAudit records a USE audit entry whenever an invitation code
// is consumed during registration.
func WithRegisterAudit(trail *Trail) RegisterUserOption {
	return func(h *RegisterUserHandler) {
		h.trail = trail
	}
}

// WithRegisterNotifications sets the sink receiving the activation event.
func WithRegisterNotifications(sink NotificationSink) RegisterUserOption {
	return func(h *RegisterUserHandler) {
		h.notify = normalizeNotificationSink(sink)
	}
}

// WithRegisterLogger overrides the logger.
func WithRegisterLogger(logger Logger) RegisterUserOption {
	return func(h *RegisterUserHandler) {
		h.logger = normalizeLogger(logger)
	}
}

// NewRegisterUserHandler creates the registration handler.
func NewRegisterUserHandler(repo RepositoryManager, activationCodes *CodeLifecycle, opts ...RegisterUserOption) *RegisterUserHandler {
	h := &RegisterUserHandler{
		repo:            repo,
		activationCodes: activationCodes,
		notify:          noopNotificationSink{},
		logger:          defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// RegistrationResult carries the created account and its activation code.
type RegistrationResult struct {
	User           *User
	ActivationCode *OneTimeCode
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*RegistrationResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*RegistrationResult, error) {
	if err := event.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var invitation *OneTimeCode
	if h.inviteOnly {
		record, err := h.invitationCodes.Validate(ctx, event.InvitationCode, nil)
		if err != nil {
			return nil, err
		}
		invitation = record
	}

	result := &RegistrationResult{}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		email := strings.TrimSpace(strings.ToLower(event.Email))
		username := getUsername(event.Username, email)

		if existing, err := h.repo.Users().FindByEmail(ctx, email); err == nil && existing != nil {
			return NewConflict("Email is already registered")
		} else if err != nil && !IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email uniqueness")
		}

		if existing, err := h.repo.Users().FindByUsername(ctx, username); err == nil && existing != nil {
			return NewConflict("Username is already taken")
		} else if err != nil && !IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check username uniqueness")
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user := &User{
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			Role:         RoleUser,
			Active:       false,
		}
		if event.UseHashid {
			if id, err := hashid.NewUUID(email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}
		result.User = user

		if invitation != nil {
			if _, err := h.invitationCodes.Consume(ctx, invitation.Code, user.ID); err != nil {
				return err
			}
		}

		code, err := h.activationCodes.Issue(ctx, IssueOptions{UserID: &user.ID})
		if err != nil {
			return err
		}
		result.ActivationCode = code

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	if invitation != nil && h.trail != nil {
		h.trail.RecordChange(ctx, Mutation{
			Actor:      result.User.AsActor(),
			Action:     AuditActionUse,
			Resource:   InvitationResource,
			ResourceID: invitation.ID.String(),
			Body: map[string]any{
				"used":    true,
				"used_by": result.User.ID.String(),
			},
		}, map[string]any{
			"used":    invitation.Used,
			"used_by": nil,
		})
	}

	h.logger.Info("registered user %s", result.User.ID)
	return result, nil
}

func getUsername(username, email string) string {
	username = strings.TrimSpace(username)
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
