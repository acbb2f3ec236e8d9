package accounts

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Friendships is the bun-backed FriendshipStore plus the generic repository
// surface for callers that need it.
type Friendships interface {
	FriendshipStore
}

type friendships struct {
	repository.Repository[*Friendship]
	db *bun.DB
}

var (
	_ Friendships     = (*friendships)(nil)
	_ FriendshipStore = (*friendships)(nil)
)

// NewFriendshipsRepository creates the bun-backed friendship store.
func NewFriendshipsRepository(db *bun.DB) Friendships {
	repo := repository.NewRepository[*Friendship](db, repository.ModelHandlers[*Friendship]{
		NewRecord: func() *Friendship { return &Friendship{} },
		GetID: func(f *Friendship) uuid.UUID {
			if f == nil {
				return uuid.Nil
			}
			return f.ID
		},
		SetID: func(f *Friendship, id uuid.UUID) {
			if f != nil {
				f.ID = id
			}
		},
	})

	return &friendships{
		Repository: repo,
		db:         db,
	}
}

func (r *friendships) GetByID(ctx context.Context, id uuid.UUID) (*Friendship, error) {
	record := &Friendship{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}
	return record, nil
}

// FindByPair returns the record between the two users regardless of
// direction and status.
func (r *friendships) FindByPair(ctx context.Context, a, b uuid.UUID) (*Friendship, error) {
	return r.findPair(ctx, a, b, "")
}

// FindAcceptedByPair is FindByPair restricted to accepted records.
func (r *friendships) FindAcceptedByPair(ctx context.Context, a, b uuid.UUID) (*Friendship, error) {
	return r.findPair(ctx, a, b, FriendshipAccepted)
}

func (r *friendships) findPair(ctx context.Context, a, b uuid.UUID, status FriendshipStatus) (*Friendship, error) {
	record := &Friendship{}
	q := r.db.NewSelect().
		Model(record).
		Where("(?TableAlias.requester_id = ? AND ?TableAlias.receiver_id = ?) OR (?TableAlias.requester_id = ? AND ?TableAlias.receiver_id = ?)",
			a.String(), b.String(), b.String(), a.String())

	if status != "" {
		q.Where("?TableAlias.status = ?", status)
	}

	err := q.Limit(1).Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"requester_id": a.String(),
					"receiver_id":  b.String(),
				})
		}
		return nil, err
	}
	return record, nil
}

func (r *friendships) Create(ctx context.Context, record *Friendship) (*Friendship, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Status == "" {
		record.Status = FriendshipPending
	}
	return r.Repository.Create(ctx, record)
}

// Respond is a conditional transition out of pending: it reports false
// when the record was already responded to by a concurrent caller.
func (r *friendships) Respond(ctx context.Context, id uuid.UUID, status FriendshipStatus, respondedAt time.Time) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*Friendship)(nil)).
		Set("status = ?", status).
		Set("responded_at = ?", respondedAt).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("?TableAlias.id = ?", id.String()).
		Where("?TableAlias.status = ?", FriendshipPending).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}

func (r *friendships) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*Friendship)(nil)).
		Where("?TableAlias.id = ?", id.String()).
		Exec(ctx)
	return err
}

// ListByUser pages the user's records of the given status, eager-loading
// both sides of the pair for projection.
func (r *friendships) ListByUser(ctx context.Context, userID uuid.UUID, status FriendshipStatus, side FriendshipSide, p Pagination) ([]*Friendship, int, error) {
	p = p.Normalize()

	var records []*Friendship
	q := r.db.NewSelect().
		Model(&records).
		Relation("Requester").
		Relation("Receiver").
		Where("?TableAlias.status = ?", status)

	switch side {
	case SideReceiver:
		q.Where("?TableAlias.receiver_id = ?", userID.String())
	case SideRequester:
		q.Where("?TableAlias.requester_id = ?", userID.String())
	default:
		q.Where("(?TableAlias.requester_id = ? OR ?TableAlias.receiver_id = ?)", userID.String(), userID.String())
	}

	total, err := q.
		Order("created_at DESC").
		Limit(p.Limit).
		Offset(p.Offset()).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}
