package accounts_test

import (
	"context"
	"strings"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRegisterFixture(t *testing.T) (*accounts.RegisterUserHandler, accounts.RepositoryManager) {
	t.Helper()

	manager := setupTestManager(t)
	activation := accounts.NewCodeLifecycle(accounts.ActivationCodes, manager.OneTimeCodes())
	handler := accounts.NewRegisterUserHandler(manager, activation)
	return handler, manager
}

func TestRegisterUserCreatesInactiveAccount(t *testing.T) {
	handler, manager := newRegisterFixture(t)

	result, err := handler.Execute(context.Background(), accounts.RegisterUserMessage{
		Email:    "Newcomer@Example.com",
		Password: "a-long-enough-password",
	})
	require.NoError(t, err)

	assert.False(t, result.User.Active)
	assert.Equal(t, accounts.RoleUser, result.User.Role)
	assert.Equal(t, "newcomer@example.com", result.User.Email)
	// username falls back to the email local part
	assert.Equal(t, "newcomer", result.User.Username)

	require.NotNil(t, result.ActivationCode)
	assert.Len(t, result.ActivationCode.Code, 12)
	assert.Equal(t, strings.ToUpper(result.ActivationCode.Code), result.ActivationCode.Code)

	stored, err := manager.Users().FindByEmail(context.Background(), "newcomer@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.NotEqual(t, "a-long-enough-password", stored.PasswordHash)
}

func TestRegisterUserValidatesPayload(t *testing.T) {
	handler, _ := newRegisterFixture(t)

	_, err := handler.Execute(context.Background(), accounts.RegisterUserMessage{
		Email:    "newcomer@example.com",
		Password: "short",
	})
	assert.Error(t, err)

	_, err = handler.Execute(context.Background(), accounts.RegisterUserMessage{
		Email:    "not-an-email",
		Password: "a-long-enough-password",
	})
	assert.Error(t, err)
}

func TestRegisterUserEmailConflict(t *testing.T) {
	handler, _ := newRegisterFixture(t)

	_, err := handler.Execute(context.Background(), accounts.RegisterUserMessage{
		Username: "first",
		Email:    "taken@example.com",
		Password: "a-long-enough-password",
	})
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), accounts.RegisterUserMessage{
		Username: "second",
		Email:    "taken@example.com",
		Password: "a-long-enough-password",
	})
	assert.True(t, accounts.IsConflict(err))
	assert.Contains(t, err.Error(), "Email is already registered")
}

func TestRegisterUserUsernameConflict(t *testing.T) {
	handler, _ := newRegisterFixture(t)

	_, err := handler.Execute(context.Background(), accounts.RegisterUserMessage{
		Username: "pepperoni",
		Email:    "one@example.com",
		Password: "a-long-enough-password",
	})
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), accounts.RegisterUserMessage{
		Username: "pepperoni",
		Email:    "two@example.com",
		Password: "a-long-enough-password",
	})
	assert.True(t, accounts.IsConflict(err))
	assert.Contains(t, err.Error(), "Username is already taken")
}

func TestRegisterUserInviteOnly(t *testing.T) {
	manager := setupTestManager(t)
	activation := accounts.NewCodeLifecycle(accounts.ActivationCodes, manager.OneTimeCodes())
	invitations := accounts.NewCodeLifecycle(accounts.InvitationCodes, manager.OneTimeCodes())
	handler := accounts.NewRegisterUserHandler(manager, activation,
		accounts.WithInviteOnly(invitations),
	)

	// no invitation code: rejected before anything is written
	_, err := handler.Execute(context.Background(), accounts.RegisterUserMessage{
		Email:    "hopeful@example.com",
		Password: "a-long-enough-password",
	})
	assert.True(t, accounts.IsCodeInvalidOrExpired(err))

	_, err = manager.Users().FindByEmail(context.Background(), "hopeful@example.com")
	assert.True(t, accounts.IsNotFound(err))

	invite, err := invitations.Issue(context.Background(), accounts.IssueOptions{})
	require.NoError(t, err)

	result, err := handler.Execute(context.Background(), accounts.RegisterUserMessage{
		Email:          "hopeful@example.com",
		Password:       "a-long-enough-password",
		InvitationCode: invite.Code,
	})
	require.NoError(t, err)
	assert.False(t, result.User.Active)

	// the invitation is single use: a second registration cannot reuse it
	_, err = handler.Execute(context.Background(), accounts.RegisterUserMessage{
		Email:          "another@example.com",
		Password:       "a-long-enough-password",
		InvitationCode: invite.Code,
	})
	assert.True(t, accounts.IsCodeInvalidOrExpired(err))
}

func TestRegisterUserRecordsInvitationUse(t *testing.T) {
	manager := setupTestManager(t)
	activation := accounts.NewCodeLifecycle(accounts.ActivationCodes, manager.OneTimeCodes())
	invitations := accounts.NewCodeLifecycle(accounts.InvitationCodes, manager.OneTimeCodes())

	store := &MockAuditStore{}
	var recorded *accounts.AuditRecord
	store.On("Append", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		recorded = args.Get(1).(*accounts.AuditRecord)
	}).Return(nil)

	handler := accounts.NewRegisterUserHandler(manager, activation,
		accounts.WithInviteOnly(invitations),
		accounts.WithRegisterAudit(accounts.NewTrail(store)),
	)

	invite, err := invitations.Issue(context.Background(), accounts.IssueOptions{})
	require.NoError(t, err)

	result, err := handler.Execute(context.Background(), accounts.RegisterUserMessage{
		Email:          "invited@example.com",
		Password:       "a-long-enough-password",
		InvitationCode: invite.Code,
	})
	require.NoError(t, err)

	store.AssertExpectations(t)
	require.NotNil(t, recorded)
	assert.Equal(t, accounts.AuditActionUse, recorded.Action)
	assert.Equal(t, accounts.InvitationResource, recorded.Resource)
	assert.Equal(t, invite.ID.String(), recorded.ResourceID)
	assert.Equal(t, result.User.ID.String(), recorded.ActorID)
	assert.Equal(t, false, recorded.OldValues["used"])
	assert.Equal(t, true, recorded.NewValues["used"])
	assert.Equal(t, result.User.ID.String(), recorded.NewValues["used_by"])
}
