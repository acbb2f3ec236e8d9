package accounts

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a cleartext password with bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", ErrNoEmptyString
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePasswordAndHash checks a cleartext password against a stored hash.
func ComparePasswordAndHash(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrMismatchedHashAndPassword
	default:
		return err
	}
}

// RandomPasswordHash returns the hash of a throwaway random password,
// used for accounts that do not have a usable password yet.
func RandomPasswordHash() string {
	for {
		if hash, err := HashPassword(uuid.NewString()); err == nil {
			return hash
		}
	}
}
