package accounts

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// MaxLoginAttempts is the maximun number of attempts a user gets
// in a period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "24h"

// UserTracker is the store surface the authenticator needs: identifier
// resolution plus login bookkeeping.
type UserTracker interface {
	GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error)
	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSucccessfulLogin(ctx context.Context, user *User) error
}

// Authenticator verifies credentials and mints session tokens. The
// identifier may be a user id, email, or username; which one is resolved
// by the store.
type Authenticator struct {
	store  UserTracker
	tokens TokenService
	logger Logger
}

// AuthenticatorOption customizes the authenticator.
type AuthenticatorOption func(*Authenticator)

// WithAuthLogger overrides the logger.
func WithAuthLogger(logger Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		a.logger = normalizeLogger(logger)
	}
}

// NewAuthenticator creates the login engine.
func NewAuthenticator(store UserTracker, tokens TokenService, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		store:  store,
		tokens: tokens,
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Login verifies the credentials and returns a signed session token.
// Unknown identifiers and wrong passwords fail identically; inactive
// accounts are rejected after the credential check so activation state
// cannot be probed without valid credentials.
func (a *Authenticator) Login(ctx context.Context, identifier, password string) (string, error) {
	user, err := a.verify(ctx, identifier, password)
	if err != nil {
		return "", err
	}

	token, err := a.tokens.Mint(user)
	if err != nil {
		a.logger.Error("login token mint error: %v", err)
		return "", err
	}

	a.logger.Info("login succeeded for %s", user.ID)
	return token, nil
}

// Verify runs the credential check without minting a token.
func (a *Authenticator) Verify(ctx context.Context, identifier, password string) (*User, error) {
	return a.verify(ctx, identifier, password)
}

func (a *Authenticator) verify(ctx context.Context, identifier, password string) (*User, error) {
	user, err := a.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during verification")
	}

	if user.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(*user.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			user.LoginAttempts = 0
		}
	}

	// if we have too many attempts in the given window, cool off!
	if user.LoginAttempts > MaxLoginAttempts {
		return nil, ErrTooManyLoginAttempts
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		// increment login_attempts and stamp login_attempt_at
		if err2 := a.store.TrackAttemptedLogin(ctx, user); err2 != nil {
			return nil, goerrors.Wrap(err2, goerrors.CategoryInternal, "failed to track login attempt")
		}

		return nil, ErrMismatchedHashAndPassword
	}

	if !user.Active {
		return nil, ErrAccountInactive
	}

	// reset the counter and stamp loggedin_at
	if err := a.store.TrackSucccessfulLogin(ctx, user); err != nil {
		a.logger.Error("failed to track successful login: %v", err)
	}

	return user, nil
}

// ActorFromToken validates a session token and rebuilds the request actor
// from its claims.
func (a *Authenticator) ActorFromToken(raw string) (*Actor, error) {
	claims, err := a.tokens.Validate(raw)
	if err != nil {
		return nil, err
	}
	return claims.AsActor()
}
