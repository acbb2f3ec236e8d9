package accounts

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// RootUserSeed configures the boot-time root account.
type RootUserSeed struct {
	Username string
	Email    string
	Password string
}

// EnsureRootUser creates the ROOT account if it does not already exist.
// Explicitly invoked at boot: nothing in this package seeds as an import
// side effect. Idempotent; the existing account is returned unchanged.
func EnsureRootUser(ctx context.Context, users Users, seed RootUserSeed) (*User, error) {
	if seed.Email == "" || seed.Password == "" {
		return nil, NewInvalidArgument("root seed requires an email and password")
	}

	existing, err := users.FindByEmail(ctx, seed.Email)
	if err == nil {
		return existing, nil
	}
	if !IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for root user")
	}

	hash, err := HashPassword(seed.Password)
	if err != nil {
		return nil, err
	}

	username := getUsername(seed.Username, seed.Email)

	user, err := users.Register(ctx, &User{
		Username:     username,
		Email:        seed.Email,
		PasswordHash: hash,
		Role:         RoleRoot,
		Active:       true,
		CanInvite:    true,
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to seed root user")
	}

	return user, nil
}
