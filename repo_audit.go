package accounts

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AuditRecords is the bun-backed AuditStore plus the admin query surface.
type AuditRecords interface {
	repository.Repository[*AuditRecord]
	AuditStore

	QueryPage(ctx context.Context, q AuditQuery, p Pagination) (Paginated[*AuditRecord], error)
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// AuditQuery filters the audit page; zero values match everything.
type AuditQuery struct {
	ActorID    string
	Resource   string
	ResourceID string
	Action     AuditAction
}

type auditRecords struct {
	repository.Repository[*AuditRecord]
	db *bun.DB
}

var (
	_ AuditRecords = (*auditRecords)(nil)
	_ AuditStore   = (*auditRecords)(nil)
)

// NewAuditRecordsRepository creates the bun-backed audit store.
func NewAuditRecordsRepository(db *bun.DB) AuditRecords {
	repo := repository.NewRepository[*AuditRecord](db, repository.ModelHandlers[*AuditRecord]{
		NewRecord: func() *AuditRecord { return &AuditRecord{} },
		GetID: func(r *AuditRecord) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *AuditRecord, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})

	return &auditRecords{
		Repository: repo,
		db:         db,
	}
}

// Append inserts the record. The caller treats failures as advisory; this
// method itself never retries.
func (r *auditRecords) Append(ctx context.Context, record *AuditRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	_, err := r.Repository.Create(ctx, record)
	return err
}

// QueryPage returns audit entries newest first.
func (r *auditRecords) QueryPage(ctx context.Context, filter AuditQuery, p Pagination) (Paginated[*AuditRecord], error) {
	p = p.Normalize()

	var records []*AuditRecord
	q := r.db.NewSelect().Model(&records)

	if filter.ActorID != "" {
		q.Where("?TableAlias.actor_id = ?", filter.ActorID)
	}
	if filter.Resource != "" {
		q.Where("?TableAlias.resource = ?", filter.Resource)
	}
	if filter.ResourceID != "" {
		q.Where("?TableAlias.resource_id = ?", filter.ResourceID)
	}
	if filter.Action != "" {
		q.Where("?TableAlias.action = ?", filter.Action)
	}

	total, err := q.
		Order("created_at DESC").
		Limit(p.Limit).
		Offset(p.Offset()).
		ScanAndCount(ctx)
	if err != nil {
		return Paginated[*AuditRecord]{}, err
	}

	return NewPaginated(records, total, p), nil
}

// PurgeExpired deletes entries past their retention expiry.
func (r *auditRecords) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.NewDelete().
		Model((*AuditRecord)(nil)).
		Where("?TableAlias.expires_at <= ?", now).
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
