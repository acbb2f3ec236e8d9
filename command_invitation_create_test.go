package accounts_test

import (
	"context"
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func invitationHandler(t *testing.T, opts ...accounts.CreateInvitationOption) *accounts.CreateInvitationHandler {
	t.Helper()

	codes := accounts.NewCodeLifecycle(accounts.InvitationCodes, newMemCodeStore(),
		accounts.WithCodeSource(&seqCodeSource{}),
	)
	return accounts.NewCreateInvitationHandler(codes, opts...)
}

func TestCreateInvitation(t *testing.T) {
	handler := invitationHandler(t)
	admin := &accounts.Actor{ID: uuid.New(), Role: accounts.RoleAdmin, Active: true, CanInvite: true}

	code, err := handler.Execute(context.Background(), accounts.CreateInvitationMessage{Actor: admin})
	require.NoError(t, err)

	assert.Equal(t, accounts.CodeKindInvitation, code.Kind)
	assert.Len(t, code.Code, 64)
	assert.Nil(t, code.UserID)
	require.NotNil(t, code.CreatedBy)
	assert.Equal(t, admin.ID, *code.CreatedBy)
}

func TestCreateInvitationPolicy(t *testing.T) {
	handler := invitationHandler(t)

	_, err := handler.Execute(context.Background(), accounts.CreateInvitationMessage{})
	assert.True(t, accounts.IsUnauthenticated(err))

	plain := &accounts.Actor{ID: uuid.New(), Role: accounts.RoleUser, Active: true}
	_, err = handler.Execute(context.Background(), accounts.CreateInvitationMessage{Actor: plain})
	assert.True(t, accounts.IsForbidden(err))

	inactive := &accounts.Actor{ID: uuid.New(), Role: accounts.RoleAdmin, Active: false}
	_, err = handler.Execute(context.Background(), accounts.CreateInvitationMessage{Actor: inactive})
	assert.True(t, accounts.IsForbidden(err))

	// a plain user with the invite capability passes
	inviter := &accounts.Actor{ID: uuid.New(), Role: accounts.RoleUser, Active: true, CanInvite: true}
	_, err = handler.Execute(context.Background(), accounts.CreateInvitationMessage{Actor: inviter})
	assert.NoError(t, err)
}

func TestCreateInvitationRecordsAudit(t *testing.T) {
	store := &MockAuditStore{}
	var recorded *accounts.AuditRecord
	store.On("Append", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		recorded = args.Get(1).(*accounts.AuditRecord)
	}).Return(nil)

	handler := invitationHandler(t, accounts.WithInvitationTrail(accounts.NewTrail(store)))
	admin := &accounts.Actor{ID: uuid.New(), Username: "root", Role: accounts.RoleRoot, Active: true}

	_, err := handler.Execute(context.Background(), accounts.CreateInvitationMessage{Actor: admin})
	require.NoError(t, err)

	store.AssertExpectations(t)
	require.NotNil(t, recorded)
	assert.Equal(t, accounts.AuditActionCreate, recorded.Action)
	assert.Equal(t, "invitations", recorded.Resource)
	assert.Equal(t, admin.ID.String(), recorded.ActorID)
}

func TestCreateInvitationTTLOverride(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	codes := accounts.NewCodeLifecycle(accounts.InvitationCodes, newMemCodeStore(),
		accounts.WithCodeClock(fixedClock(now)),
		accounts.WithCodeSource(&seqCodeSource{}),
	)
	handler := accounts.NewCreateInvitationHandler(codes)
	admin := &accounts.Actor{ID: uuid.New(), Role: accounts.RoleAdmin, Active: true}

	code, err := handler.Execute(context.Background(), accounts.CreateInvitationMessage{
		Actor: admin,
		TTL:   48 * time.Hour,
	})
	require.NoError(t, err)
	assert.Equal(t, now.Add(48*time.Hour), code.ExpiresAt)

	// without an override the profile default applies
	code, err = handler.Execute(context.Background(), accounts.CreateInvitationMessage{Actor: admin})
	require.NoError(t, err)
	assert.Equal(t, now.Add(7*24*time.Hour), code.ExpiresAt)
}
