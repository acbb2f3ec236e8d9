//go:build race

package accounts

import "golang.org/x/crypto/bcrypt"

func passwordHashCost() int {
	// Race-enabled builds are slow enough already; drop to the default cost.
	return bcrypt.DefaultCost
}
