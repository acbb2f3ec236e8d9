package accounts

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Notification events emitted by the friendship graph.
const (
	EventFriendRequestReceived = "friend.request.received"
	EventFriendRequestAccepted = "friend.request.accepted"
	EventFriendRequestDeclined = "friend.request.declined"
	EventFriendRemoved         = "friend.removed"
)

// FriendshipStore is the persistence surface the state machine drives.
// Respond must be a single conditional update keyed on the pending status;
// it reports whether it transitioned the record.
type FriendshipStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Friendship, error)
	FindByPair(ctx context.Context, a, b uuid.UUID) (*Friendship, error)
	FindAcceptedByPair(ctx context.Context, a, b uuid.UUID) (*Friendship, error)
	Create(ctx context.Context, record *Friendship) (*Friendship, error)
	Respond(ctx context.Context, id uuid.UUID, status FriendshipStatus, respondedAt time.Time) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID, status FriendshipStatus, side FriendshipSide, p Pagination) ([]*Friendship, int, error)
}

// FriendshipSide selects which side of the pair a listing filters on.
type FriendshipSide int

const (
	// SideAny matches records where the user is requester or receiver
	SideAny FriendshipSide = iota
	// SideReceiver matches records sent to the user
	SideReceiver
	// SideRequester matches records sent by the user
	SideRequester
)

// UserFinder resolves counterpart users for listings and existence checks.
type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// FriendGraph enforces the friendship state machine: records are created
// pending by the requester, responded to only by the receiver, and removed
// only once accepted. A declined pair may be re-requested.
type FriendGraph struct {
	store  FriendshipStore
	users  UserFinder
	notify NotificationSink
	logger Logger
	now    Clock
}

// FriendGraphOption customizes graph construction.
type FriendGraphOption func(*FriendGraph)

// WithFriendGraphClock injects a custom clock (useful for tests).
func WithFriendGraphClock(clock Clock) FriendGraphOption {
	return func(g *FriendGraph) {
		g.now = normalizeClock(clock)
	}
}

// WithFriendGraphNotifications sets the sink receiving friendship events.
func WithFriendGraphNotifications(sink NotificationSink) FriendGraphOption {
	return func(g *FriendGraph) {
		g.notify = normalizeNotificationSink(sink)
	}
}

// WithFriendGraphLogger overrides the logger.
func WithFriendGraphLogger(logger Logger) FriendGraphOption {
	return func(g *FriendGraph) {
		g.logger = normalizeLogger(logger)
	}
}

// NewFriendGraph creates the friendship engine.
func NewFriendGraph(store FriendshipStore, users UserFinder, opts ...FriendGraphOption) *FriendGraph {
	g := &FriendGraph{
		store:  store,
		users:  users,
		notify: noopNotificationSink{},
		logger: defLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// SendRequest creates a pending record from requester to receiver. The
// existence check is symmetric: a pending or accepted record in either
// direction blocks the request. A declined record does not block; it is
// superseded by the new pending one.
func (g *FriendGraph) SendRequest(ctx context.Context, requester, receiver uuid.UUID) (*Friendship, error) {
	if requester == receiver {
		return nil, NewInvalidArgument("Cannot send friend request to yourself")
	}

	if _, err := g.users.FindByID(ctx, receiver); err != nil {
		if IsNotFound(err) {
			return nil, NewNotFound("User")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up receiver")
	}

	existing, err := g.store.FindByPair(ctx, requester, receiver)
	if err != nil && !IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing friendship")
	}

	if existing != nil {
		switch existing.Status {
		case FriendshipPending:
			return nil, NewConflict("Friend request already exists")
		case FriendshipAccepted:
			return nil, NewConflict("Users are already friends")
		case FriendshipDeclined:
			// superseded by the new request; keeps the pair unique
			if err := g.store.Delete(ctx, existing.ID); err != nil {
				return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to supersede declined friendship")
			}
		}
	}

	record, err := g.store.Create(ctx, &Friendship{
		RequesterID: requester,
		ReceiverID:  receiver,
		Status:      FriendshipPending,
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create friend request")
	}

	g.logger.Info("friend request sent from %s to %s", requester, receiver)
	g.emit(ctx, receiver, EventFriendRequestReceived, map[string]any{
		"request_id": record.ID.String(),
		"from":       requester.String(),
	})

	return record, nil
}

// Accept transitions a pending request to accepted. Only the receiver may
// respond, and only once.
func (g *FriendGraph) Accept(ctx context.Context, requestID, actingUserID uuid.UUID) (*Friendship, error) {
	return g.respond(ctx, requestID, actingUserID, FriendshipAccepted)
}

// Decline transitions a pending request to declined.
func (g *FriendGraph) Decline(ctx context.Context, requestID, actingUserID uuid.UUID) (*Friendship, error) {
	return g.respond(ctx, requestID, actingUserID, FriendshipDeclined)
}

func (g *FriendGraph) respond(ctx context.Context, requestID, actingUserID uuid.UUID, status FriendshipStatus) (*Friendship, error) {
	record, err := g.store.GetByID(ctx, requestID)
	if err != nil {
		if IsNotFound(err) {
			return nil, NewNotFound("Friend request")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load friend request")
	}

	if record.ReceiverID != actingUserID {
		verb := "accept"
		if status == FriendshipDeclined {
			verb = "decline"
		}
		return nil, NewForbidden(fmt.Sprintf("You can only %s requests sent to you", verb))
	}

	if record.Status != FriendshipPending {
		return nil, NewInvalidState(fmt.Sprintf("Friend request is not pending (current status: %s)", record.Status))
	}

	respondedAt := g.now()
	transitioned, err := g.store.Respond(ctx, requestID, status, respondedAt)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update friend request")
	}
	if !transitioned {
		// lost the race against a concurrent response
		return nil, NewInvalidState("Friend request is not pending (current status: responded)")
	}

	record.Status = status
	record.RespondedAt = &respondedAt

	event := EventFriendRequestAccepted
	if status == FriendshipDeclined {
		event = EventFriendRequestDeclined
	}
	g.logger.Info("friend request %s %s by %s", requestID, status, actingUserID)
	g.emit(ctx, record.RequesterID, event, map[string]any{
		"request_id": requestID.String(),
		"by":         actingUserID.String(),
	})

	return record, nil
}

// Remove permanently deletes an accepted friendship between the acting
// user and friendID. Pending and declined records are not removable here.
func (g *FriendGraph) Remove(ctx context.Context, friendID, actingUserID uuid.UUID) error {
	record, err := g.store.FindAcceptedByPair(ctx, actingUserID, friendID)
	if err != nil {
		if IsNotFound(err) {
			return NewNotFound("Friendship")
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up friendship")
	}

	if err := g.store.Delete(ctx, record.ID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to remove friendship")
	}

	g.logger.Info("friendship removed between %s and %s", actingUserID, friendID)
	g.emit(ctx, friendID, EventFriendRemoved, map[string]any{
		"by": actingUserID.String(),
	})

	return nil
}

// Friends returns the accepted counterpart users for userID, projected by
// the viewer's role (plain users get the restricted column set).
func (g *FriendGraph) Friends(ctx context.Context, userID uuid.UUID, viewerRole UserRole, p Pagination) (Paginated[*User], error) {
	records, total, err := g.store.ListByUser(ctx, userID, FriendshipAccepted, SideAny, p)
	if err != nil {
		return Paginated[*User]{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list friends")
	}

	friends := make([]*User, 0, len(records))
	for _, record := range records {
		counterpart := record.Requester
		if record.RequesterID == userID {
			counterpart = record.Receiver
		}
		friends = append(friends, restrictUserView(counterpart, viewerRole))
	}

	return NewPaginated(friends, total, p), nil
}

// PendingRequests lists requests awaiting userID's response.
func (g *FriendGraph) PendingRequests(ctx context.Context, userID uuid.UUID, viewerRole UserRole, p Pagination) (Paginated[*Friendship], error) {
	return g.list(ctx, userID, viewerRole, SideReceiver, p)
}

// SentRequests lists requests userID initiated that are still pending.
func (g *FriendGraph) SentRequests(ctx context.Context, userID uuid.UUID, viewerRole UserRole, p Pagination) (Paginated[*Friendship], error) {
	return g.list(ctx, userID, viewerRole, SideRequester, p)
}

func (g *FriendGraph) list(ctx context.Context, userID uuid.UUID, viewerRole UserRole, side FriendshipSide, p Pagination) (Paginated[*Friendship], error) {
	records, total, err := g.store.ListByUser(ctx, userID, FriendshipPending, side, p)
	if err != nil {
		return Paginated[*Friendship]{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list friend requests")
	}

	for _, record := range records {
		record.Requester = restrictUserView(record.Requester, viewerRole)
		record.Receiver = restrictUserView(record.Receiver, viewerRole)
	}

	return NewPaginated(records, total, p), nil
}

func (g *FriendGraph) emit(ctx context.Context, userID uuid.UUID, event string, payload map[string]any) {
	if err := g.notify.EmitToUser(ctx, userID, event, payload); err != nil {
		g.logger.Warn("notification sink error for %s: %v", event, err)
	}
}

// restrictUserView strips the fields the viewer's role may not see.
// Password hashes never leave this package either way.
func restrictUserView(u *User, viewer UserRole) *User {
	if u == nil {
		return nil
	}

	view := &User{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
	}

	if CanSeeEmails(viewer) {
		view.Email = u.Email
	}
	if CanSeeAccountFlags(viewer) {
		view.Active = u.Active
		view.CanInvite = u.CanInvite
	}
	if CanSeeTimestamps(viewer) {
		view.CreatedAt = u.CreatedAt
		view.UpdatedAt = u.UpdatedAt
	}

	return view
}
