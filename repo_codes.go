package accounts

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OneTimeCodes is the bun-backed CodeStore plus the generic repository
// surface.
type OneTimeCodes interface {
	CodeStore
}

type oneTimeCodes struct {
	repository.Repository[*OneTimeCode]
	db *bun.DB
}

var (
	_ OneTimeCodes = (*oneTimeCodes)(nil)
	_ CodeStore    = (*oneTimeCodes)(nil)
)

// NewOneTimeCodesRepository creates the bun-backed code store.
func NewOneTimeCodesRepository(db *bun.DB) OneTimeCodes {
	repo := repository.NewRepository[*OneTimeCode](db, repository.ModelHandlers[*OneTimeCode]{
		NewRecord: func() *OneTimeCode { return &OneTimeCode{} },
		GetID: func(c *OneTimeCode) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *OneTimeCode, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
		GetIdentifier: func() string {
			return "code"
		},
	})

	return &oneTimeCodes{
		Repository: repo,
		db:         db,
	}
}

func (r *oneTimeCodes) Create(ctx context.Context, record *OneTimeCode) (*OneTimeCode, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.Repository.Create(ctx, record)
}

// FindLive returns the unused, unexpired record matching the code string.
func (r *oneTimeCodes) FindLive(ctx context.Context, kind CodeKind, code string, now time.Time) (*OneTimeCode, error) {
	record := &OneTimeCode{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.kind = ?", kind).
		Where("?TableAlias.code = ?", code).
		Where("?TableAlias.used = ?", false).
		Where("?TableAlias.expires_at > ?", now).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"kind": kind})
		}
		return nil, err
	}
	return record, nil
}

// Consume flips the used flag in a single conditional statement so two
// concurrent consumers cannot both win. Reports false when the code was
// already used or expired in the meantime.
func (r *oneTimeCodes) Consume(ctx context.Context, id uuid.UUID, usedBy uuid.UUID, now time.Time) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*OneTimeCode)(nil)).
		Set("used = ?", true).
		Set("used_by = ?", usedBy.String()).
		Where("?TableAlias.id = ?", id.String()).
		Where("?TableAlias.used = ?", false).
		Where("?TableAlias.expires_at > ?", now).
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

// InvalidateOutstanding marks every live code of the kind owned by the
// user as used, without binding a consumer.
func (r *oneTimeCodes) InvalidateOutstanding(ctx context.Context, kind CodeKind, userID uuid.UUID) (int, error) {
	res, err := r.db.NewUpdate().
		Model((*OneTimeCode)(nil)).
		Set("used = ?", true).
		Where("?TableAlias.kind = ?", kind).
		Where("?TableAlias.user_id = ?", userID.String()).
		Where("?TableAlias.used = ?", false).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(affected), nil
}

// Purge deletes used and expired codes. Advisory; correctness never
// depends on it since every read re-checks liveness.
func (r *oneTimeCodes) Purge(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.NewDelete().
		Model((*OneTimeCode)(nil)).
		Where("?TableAlias.used = ? OR ?TableAlias.expires_at <= ?", true, now).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(affected), nil
}
