package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

type FinalizePasswordResetMessage struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

func (e FinalizePasswordResetMessage) Type() string { return "user.password_reset_finalize" }

// Validate will run validation rules
func (e FinalizePasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Code, validation.Required),
		validation.Field(&e.Password, validation.Required, validation.Length(10, 100)),
	)
}

// FinalizePasswordResetHandler consumes the reset code and sets the new
// password hash. The code identifies the account; no identifier is taken
// from the caller.
type FinalizePasswordResetHandler struct {
	users  UserDirectory
	codes  *CodeLifecycle
	notify NotificationSink
	logger Logger
}

// PasswordResetFinalizeOption customizes the handler.
type PasswordResetFinalizeOption func(*FinalizePasswordResetHandler)

// WithResetFinalizeNotifications sets the sink receiving the changed event.
func WithResetFinalizeNotifications(sink NotificationSink) PasswordResetFinalizeOption {
	return func(h *FinalizePasswordResetHandler) {
		h.notify = normalizeNotificationSink(sink)
	}
}

// WithResetFinalizeLogger overrides the logger.
func WithResetFinalizeLogger(logger Logger) PasswordResetFinalizeOption {
	return func(h *FinalizePasswordResetHandler) {
		h.logger = normalizeLogger(logger)
	}
}

// NewFinalizePasswordResetHandler creates the reset-finalize handler.
func NewFinalizePasswordResetHandler(users UserDirectory, codes *CodeLifecycle, opts ...PasswordResetFinalizeOption) *FinalizePasswordResetHandler {
	h := &FinalizePasswordResetHandler{
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

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password reset payload")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	// the code carries its owner; look it up before consuming so the
	// conditional update can bind the right user
	record, err := h.codes.Validate(ctx, event.Code, nil)
	if err != nil {
		return err
	}
	if record.UserID == nil {
		return ErrCodeInvalidOrExpired
	}

	hash, err := HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	if _, err := h.codes.Consume(ctx, event.Code, *record.UserID); err != nil {
		return err
	}

	if err := h.users.SetPassword(ctx, *record.UserID, hash); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to set new password")
	}

	h.logger.Info("password reset finalized for %s", record.UserID)
	if err := h.notify.EmitToUser(ctx, *record.UserID, EventPasswordChanged, nil); err != nil {
		h.logger.Warn("notification sink error for %s: %v", EventPasswordChanged, err)
	}

	return nil
}
