package accounts

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Notifications is the bun-backed notification store. It implements
// NotificationSink so the domain engines can emit straight into it.
type Notifications interface {
	repository.Repository[*Notification]
	NotificationSink

	ListByReceiver(ctx context.Context, receiverID uuid.UUID, p Pagination) (Paginated[*Notification], error)
}

type notifications struct {
	repository.Repository[*Notification]
	db *bun.DB
}

var (
	_ Notifications    = (*notifications)(nil)
	_ NotificationSink = (*notifications)(nil)
)

// NewNotificationsRepository creates the bun-backed notification store.
func NewNotificationsRepository(db *bun.DB) Notifications {
	repo := repository.NewRepository[*Notification](db, repository.ModelHandlers[*Notification]{
		NewRecord: func() *Notification { return &Notification{} },
		GetID: func(n *Notification) uuid.UUID {
			if n == nil {
				return uuid.Nil
			}
			return n.ID
		},
		SetID: func(n *Notification, id uuid.UUID) {
			if n != nil {
				n.ID = id
			}
		},
	})

	return &notifications{
		Repository: repo,
		db:         db,
	}
}

// EmitToUser persists one notification row. The type and message derive
// from the event unless the payload overrides them.
func (r *notifications) EmitToUser(ctx context.Context, userID uuid.UUID, event string, payload map[string]any) error {
	record := &Notification{
		ID:         uuid.New(),
		ReceiverID: userID,
		Event:      event,
		Message:    messageForEvent(event, payload),
		Type:       typeForEvent(event, payload),
		Payload:    payload,
	}

	_, err := r.Repository.Create(ctx, record)
	return err
}

func (r *notifications) ListByReceiver(ctx context.Context, receiverID uuid.UUID, p Pagination) (Paginated[*Notification], error) {
	p = p.Normalize()

	var records []*Notification
	total, err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.receiver_id = ?", receiverID.String()).
		Order("created_at DESC").
		Limit(p.Limit).
		Offset(p.Offset()).
		ScanAndCount(ctx)
	if err != nil {
		return Paginated[*Notification]{}, err
	}

	return NewPaginated(records, total, p), nil
}

func messageForEvent(event string, payload map[string]any) string {
	if payload != nil {
		if msg, ok := payload["message"].(string); ok && msg != "" {
			return msg
		}
	}

	switch event {
	case EventFriendRequestReceived:
		return "You have a new friend request"
	case EventFriendRequestAccepted:
		return "Your friend request was accepted"
	case EventFriendRequestDeclined:
		return "Your friend request was declined"
	case EventFriendRemoved:
		return "A friendship was removed"
	case EventAccountActivated:
		return "Welcome! Your account is now active"
	case EventPasswordResetRequested:
		return "A password reset was requested for your account"
	case EventPasswordChanged:
		return "Your password was changed"
	default:
		return event
	}
}

func typeForEvent(event string, payload map[string]any) NotificationType {
	if payload != nil {
		if t, ok := payload["type"].(string); ok && t != "" {
			return t
		}
	}

	switch event {
	case EventFriendRequestAccepted, EventAccountActivated:
		return NotificationSuccess
	case EventPasswordResetRequested, EventPasswordChanged:
		return NotificationWarning
	case EventFriendRequestDeclined:
		return NotificationInfo
	default:
		return NotificationDefault
	}
}
