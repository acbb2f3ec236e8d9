package accounts

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error

	Users() Users
	Friendships() Friendships
	OneTimeCodes() OneTimeCodes
	AuditRecords() AuditRecords
	Notifications() Notifications
}

type mngr struct {
	db            *bun.DB
	users         Users
	friendships   Friendships
	oneTimeCodes  OneTimeCodes
	auditRecords  AuditRecords
	notifications Notifications
}

// NewRepositoryManager wires every store over one bun handle.
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:            db,
		users:         NewUsersRepository(db),
		friendships:   NewFriendshipsRepository(db),
		oneTimeCodes:  NewOneTimeCodesRepository(db),
		auditRecords:  NewAuditRecordsRepository(db),
		notifications: NewNotificationsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.friendships == nil {
		return errors.New("repository friendships should be initialized")
	}

	if m.oneTimeCodes == nil {
		return errors.New("repository oneTimeCodes should be initialized")
	}

	if m.auditRecords == nil {
		return errors.New("repository auditRecords should be initialized")
	}

	if m.notifications == nil {
		return errors.New("repository notifications should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Friendships() Friendships {
	return m.friendships
}

func (m mngr) OneTimeCodes() OneTimeCodes {
	return m.oneTimeCodes
}

func (m mngr) AuditRecords() AuditRecords {
	return m.auditRecords
}

func (m mngr) Notifications() Notifications {
	return m.notifications
}
