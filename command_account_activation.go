package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

// Account lifecycle notification events.
const (
	EventAccountActivated       = "account.activated"
	EventPasswordResetRequested = "account.password_reset.requested"
	EventPasswordChanged        = "account.password.changed"
)

type ActivateAccountMessage struct {
	Identifier string `json:"identifier"`
	Code       string `json:"code"`
}

func (e ActivateAccountMessage) Type() string { return "user.activate" }

// Validate will run validation rules
func (e ActivateAccountMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Identifier, validation.Required),
		validation.Field(&e.Code, validation.Required),
	)
}

type ResendActivationMessage struct {
	Email string `json:"email"`
}

func (e ResendActivationMessage) Type() string { return "user.activation_resend" }

// Validate will run validation rules
func (e ResendActivationMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
	)
}

// ActivateAccountHandler consumes an activation code and flips the account
// active, emitting a welcome notification. Resend rejects already-active
// accounts and reissues after invalidating any outstanding codes.
type ActivateAccountHandler struct {
	users  UserDirectory
	codes  *CodeLifecycle
	notify NotificationSink
	logger Logger
}

// ActivateAccountOption customizes the handler.
type ActivateAccountOption func(*ActivateAccountHandler)

// WithActivationNotifications sets the sink receiving the welcome event.
func WithActivationNotifications(sink NotificationSink) ActivateAccountOption {
	return func(h *ActivateAccountHandler) {
		h.notify = normalizeNotificationSink(sink)
	}
}

// WithActivationLogger overrides the logger.
func WithActivationLogger(logger Logger) ActivateAccountOption {
	return func(h *ActivateAccountHandler) {
		h.logger = normalizeLogger(logger)
	}
}

// NewActivateAccountHandler creates the activation handler.
func NewActivateAccountHandler(users UserDirectory, codes *CodeLifecycle, opts ...ActivateAccountOption) *ActivateAccountHandler {
	h := &ActivateAccountHandler{
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

func (h *ActivateAccountHandler) Execute(ctx context.Context, event ActivateAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account activation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateAccountHandler) execute(ctx context.Context, event ActivateAccountMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid activation payload")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.users.FindByEmail(ctx, event.Identifier)
	if err != nil {
		if IsNotFound(err) {
			// same answer as a bad code so accounts cannot be probed
			return ErrCodeInvalidOrExpired
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for activation")
	}

	if user.Active {
		return NewInvalidState("Account is already active")
	}

	if _, err := h.codes.Consume(ctx, event.Code, user.ID); err != nil {
		return err
	}

	if err := h.users.SetActive(ctx, user.ID, true); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate account")
	}

	h.logger.Info("account %s activated", user.ID)
	if err := h.notify.EmitToUser(ctx, user.ID, EventAccountActivated, map[string]any{
		"username": user.Username,
	}); err != nil {
		h.logger.Warn("notification sink error for %s: %v", EventAccountActivated, err)
	}

	return nil
}

// Resend invalidates outstanding activation codes for the account and
// issues a fresh one. Already-active accounts are rejected.
func (h *ActivateAccountHandler) Resend(ctx context.Context, event ResendActivationMessage) (*OneTimeCode, error) {
	if err := event.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid resend payload")
	}

	user, err := h.users.FindByEmail(ctx, event.Email)
	if err != nil {
		if IsNotFound(err) {
			return nil, NewNotFound("User")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for activation resend")
	}

	if user.Active {
		return nil, NewInvalidState("Account is already active")
	}

	code, err := h.codes.Issue(ctx, IssueOptions{UserID: &user.ID})
	if err != nil {
		return nil, err
	}

	h.logger.Info("activation code reissued for %s", user.ID)
	return code, nil
}
