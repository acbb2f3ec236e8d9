package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

type InitializePasswordResetMessage struct {
	Email      string `json:"email"`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (e InitializePasswordResetMessage) Type() string { return "user.password_reset" }

// Validate will run validation rules
func (e InitializePasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
	)
}

type InitializePasswordResetResponse struct {
	Code    *OneTimeCode
	Success bool
}

// InitializePasswordResetHandler starts the recovery flow: outstanding
// reset codes are invalidated and a fresh one issued. Unknown emails
// succeed silently so the endpoint cannot be used to enumerate accounts.
type InitializePasswordResetHandler struct {
	users  UserDirectory
	codes  *CodeLifecycle
	notify NotificationSink
	logger Logger
}

// PasswordResetInitOption customizes the handler.
type PasswordResetInitOption func(*InitializePasswordResetHandler)

// WithResetInitNotifications sets the sink receiving the reset event.
func WithResetInitNotifications(sink NotificationSink) PasswordResetInitOption {
	return func(h *InitializePasswordResetHandler) {
		h.notify = normalizeNotificationSink(sink)
	}
}

// WithResetInitLogger overrides the logger.
func WithResetInitLogger(logger Logger) PasswordResetInitOption {
	return func(h *InitializePasswordResetHandler) {
		h.logger = normalizeLogger(logger)
	}
}

// NewInitializePasswordResetHandler creates the reset-initialize handler.
func NewInitializePasswordResetHandler(users UserDirectory, codes *CodeLifecycle, opts ...PasswordResetInitOption) *InitializePasswordResetHandler {
	h := &InitializePasswordResetHandler{
		users:  users,
		codes:  codes,
		notify: noopNotificationSink{},
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password reset payload")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	resp := &InitializePasswordResetResponse{}

	user, err := h.users.FindByEmail(ctx, event.Email)
	if err != nil {
		if IsNotFound(err) {
			// succeed silently: the caller learns nothing about the email
			resp.Success = true
			h.respond(event, resp)
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	code, err := h.codes.Issue(ctx, IssueOptions{UserID: &user.ID})
	if err != nil {
		return err
	}

	h.logger.Info("password reset initialized for %s", user.ID)
	if err := h.notify.EmitToUser(ctx, user.ID, EventPasswordResetRequested, map[string]any{
		"expires_at": code.ExpiresAt.Format(time.RFC3339),
	}); err != nil {
		h.logger.Warn("notification sink error for %s: %v", EventPasswordResetRequested, err)
	}

	resp.Code = code
	resp.Success = true
	h.respond(event, resp)

	return nil
}

func (h *InitializePasswordResetHandler) respond(event InitializePasswordResetMessage, resp *InitializePasswordResetResponse) {
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}
}
