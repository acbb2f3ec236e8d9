package accounts_test

import (
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
)

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role accounts.UserRole
		min  accounts.UserRole
		want bool
	}{
		{accounts.RoleRoot, accounts.RoleUser, true},
		{accounts.RoleRoot, accounts.RoleRoot, true},
		{accounts.RoleAdmin, accounts.RoleUser, true},
		{accounts.RoleAdmin, accounts.RoleRoot, false},
		{accounts.RoleUser, accounts.RoleAdmin, false},
		{accounts.RoleUser, accounts.RoleUser, true},
		{"SUPERUSER", accounts.RoleUser, false},
		{accounts.RoleRoot, "SUPERUSER", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, accounts.RoleAtLeast(tt.role, tt.min), "RoleAtLeast(%s, %s)", tt.role, tt.min)
	}
}

func TestIsAdminTier(t *testing.T) {
	assert.True(t, accounts.IsAdminTier(accounts.RoleRoot))
	assert.True(t, accounts.IsAdminTier(accounts.RoleAdmin))
	assert.False(t, accounts.IsAdminTier(accounts.RoleUser))
	assert.False(t, accounts.IsAdminTier("SUPERUSER"))
}

func TestParseRole(t *testing.T) {
	role, ok := accounts.ParseRole("ADMIN")
	assert.True(t, ok)
	assert.Equal(t, accounts.RoleAdmin, role)

	_, ok = accounts.ParseRole("admin")
	assert.False(t, ok)

	_, ok = accounts.ParseRole("")
	assert.False(t, ok)
}

func TestRestrictedViewCapabilities(t *testing.T) {
	for _, role := range []accounts.UserRole{accounts.RoleRoot, accounts.RoleAdmin} {
		assert.True(t, accounts.CanSeeEmails(role))
		assert.True(t, accounts.CanSeeTimestamps(role))
		assert.True(t, accounts.CanSeeAccountFlags(role))
	}

	assert.False(t, accounts.CanSeeEmails(accounts.RoleUser))
	assert.False(t, accounts.CanSeeTimestamps(accounts.RoleUser))
	assert.False(t, accounts.CanSeeAccountFlags(accounts.RoleUser))
}
