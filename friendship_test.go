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

func newGraphFixture(t *testing.T) (*accounts.FriendGraph, *memFriendshipStore, *memUserDirectory, *accounts.User, *accounts.User) {
	t.Helper()

	alice := &accounts.User{ID: uuid.New(), Username: "alice", Role: accounts.RoleUser, Active: true}
	bob := &accounts.User{ID: uuid.New(), Username: "bob", Role: accounts.RoleUser, Active: true}

	store := newMemFriendshipStore()
	users := newMemUserDirectory(alice, bob)
	graph := accounts.NewFriendGraph(store, users)

	return graph, store, users, alice, bob
}

func TestSendRequestCreatesPending(t *testing.T) {
	graph, _, _, alice, bob := newGraphFixture(t)

	record, err := graph.SendRequest(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, accounts.FriendshipPending, record.Status)
	assert.Equal(t, alice.ID, record.RequesterID)
	assert.Equal(t, bob.ID, record.ReceiverID)
	assert.Nil(t, record.RespondedAt)
}

func TestSendRequestToSelf(t *testing.T) {
	graph, _, _, alice, _ := newGraphFixture(t)

	_, err := graph.SendRequest(context.Background(), alice.ID, alice.ID)
	assert.True(t, accounts.IsInvalidArgument(err))
	assert.Contains(t, err.Error(), "Cannot send friend request to yourself")
}

func TestSendRequestUnknownReceiver(t *testing.T) {
	graph, _, _, alice, _ := newGraphFixture(t)

	_, err := graph.SendRequest(context.Background(), alice.ID, uuid.New())
	assert.True(t, accounts.IsNotFound(err))
}

func TestSendRequestDuplicatePending(t *testing.T) {
	graph, _, _, alice, bob := newGraphFixture(t)

	_, err := graph.SendRequest(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)

	// same direction
	_, err = graph.SendRequest(context.Background(), alice.ID, bob.ID)
	assert.True(t, accounts.IsConflict(err))
	assert.Contains(t, err.Error(), "already exists")

	// reverse direction blocks too: the pair is unordered
	_, err = graph.SendRequest(context.Background(), bob.ID, alice.ID)
	assert.True(t, accounts.IsConflict(err))
}

func TestSendRequestAlreadyFriends(t *testing.T) {
	graph, _, _, alice, bob := newGraphFixture(t)

	record, err := graph.SendRequest(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = graph.Accept(context.Background(), record.ID, bob.ID)
	require.NoError(t, err)

	_, err = graph.SendRequest(context.Background(), bob.ID, alice.ID)
	assert.True(t, accounts.IsConflict(err))
	assert.Contains(t, err.Error(), "already friends")
}

func TestAcceptSetsRespondedAtOnce(t *testing.T) {
	_, store, users, alice, bob := newGraphFixture(t)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	graph := accounts.NewFriendGraph(store, users, accounts.WithFriendGraphClock(fixedClock(now)))

	record, err := graph.SendRequest(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)

	accepted, err := graph.Accept(context.Background(), record.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, accounts.FriendshipAccepted, accepted.Status)
	require.NotNil(t, accepted.RespondedAt)
	assert.Equal(t, now, *accepted.RespondedAt)

	// a second response hits the conditional update and loses
	_, err = graph.Decline(context.Background(), record.ID, bob.ID)
	assert.True(t, accounts.IsInvalidState(err))
}

func TestRespondReceiverOnly(t *testing.T) {
	graph, _, _, alice, bob := newGraphFixture(t)

	record, err := graph.SendRequest(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)

	// the requester cannot accept their own request
	_, err = graph.Accept(context.Background(), record.ID, alice.ID)
	assert.True(t, accounts.IsForbidden(err))
	assert.Contains(t, err.Error(), "accept requests sent to you")

	_, err = graph.Decline(context.Background(), record.ID, alice.ID)
	assert.True(t, accounts.IsForbidden(err))
	assert.Contains(t, err.Error(), "decline requests sent to you")
}

func TestRespondUnknownRequest(t *testing.T) {
	graph, _, _, _, bob := newGraphFixture(t)

	_, err := graph.Accept(context.Background(), uuid.New(), bob.ID)
	assert.True(t, accounts.IsNotFound(err))
}

func TestReRequestAfterDecline(t *testing.T) {
	graph, store, _, alice, bob := newGraphFixture(t)

	record, err := graph.SendRequest(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = graph.Decline(context.Background(), record.ID, bob.ID)
	require.NoError(t, err)

	// declined rows do not block; the new request supersedes them
	fresh, err := graph.SendRequest(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	assert.NotEqual(t, record.ID, fresh.ID)
	assert.Equal(t, accounts.FriendshipPending, fresh.Status)

	_, ok := store.records[record.ID]
	assert.False(t, ok, "declined record should be superseded")
}

func TestRemoveAcceptedOnly(t *testing.T) {
	graph, _, _, alice, bob := newGraphFixture(t)

	record, err := graph.SendRequest(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)

	// pending records are not removable
	err = graph.Remove(context.Background(), bob.ID, alice.ID)
	assert.True(t, accounts.IsNotFound(err))

	_, err = graph.Accept(context.Background(), record.ID, bob.ID)
	require.NoError(t, err)

	require.NoError(t, graph.Remove(context.Background(), bob.ID, alice.ID))

	// gone for good
	err = graph.Remove(context.Background(), bob.ID, alice.ID)
	assert.True(t, accounts.IsNotFound(err))
}

func TestFriendsProjectionByViewerRole(t *testing.T) {
	graph, store, _, alice, bob := newGraphFixture(t)
	bob.Email = "bob@example.com"
	created := time.Now()
	bob.CreatedAt = &created

	record, err := graph.SendRequest(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = graph.Accept(context.Background(), record.ID, bob.ID)
	require.NoError(t, err)

	// the in-memory store does not hydrate relations; do it by hand
	stored := store.records[record.ID]
	stored.Requester = alice
	stored.Receiver = bob

	page, err := graph.Friends(context.Background(), alice.ID, accounts.RoleUser, accounts.Pagination{})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	friend := page.Data[0]
	assert.Equal(t, "bob", friend.Username)
	assert.Empty(t, friend.Email, "plain viewers do not see emails")
	assert.Nil(t, friend.CreatedAt, "plain viewers do not see timestamps")

	page, err = graph.Friends(context.Background(), alice.ID, accounts.RoleAdmin, accounts.Pagination{})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "bob@example.com", page.Data[0].Email)
	assert.NotNil(t, page.Data[0].CreatedAt)
}

func TestPendingAndSentRequests(t *testing.T) {
	graph, _, _, alice, bob := newGraphFixture(t)

	_, err := graph.SendRequest(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)

	pending, err := graph.PendingRequests(context.Background(), bob.ID, accounts.RoleUser, accounts.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 1, pending.Pagination.Total)

	sent, err := graph.SentRequests(context.Background(), alice.ID, accounts.RoleUser, accounts.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 1, sent.Pagination.Total)

	// nothing pending from the requester's point of view
	pending, err = graph.PendingRequests(context.Background(), alice.ID, accounts.RoleUser, accounts.Pagination{})
	require.NoError(t, err)
	assert.Zero(t, pending.Pagination.Total)
}

func TestSendRequestNotifiesReceiver(t *testing.T) {
	_, store, users, alice, bob := newGraphFixture(t)

	sink := &MockNotificationSink{}
	sink.On("EmitToUser", mock.Anything, bob.ID, accounts.EventFriendRequestReceived, mock.Anything).Return(nil)

	graph := accounts.NewFriendGraph(store, users, accounts.WithFriendGraphNotifications(sink))

	_, err := graph.SendRequest(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	sink.AssertExpectations(t)
}

func TestNotificationFailureDoesNotFailOperation(t *testing.T) {
	_, store, users, alice, bob := newGraphFixture(t)

	sink := accounts.NotificationSinkFunc(func(ctx context.Context, userID uuid.UUID, event string, payload map[string]any) error {
		return assert.AnError
	})

	graph := accounts.NewFriendGraph(store, users, accounts.WithFriendGraphNotifications(sink))

	_, err := graph.SendRequest(context.Background(), alice.ID, bob.ID)
	assert.NoError(t, err, "sink failures are fire-and-forget")
}
