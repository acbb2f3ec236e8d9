package accounts

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var SetUserPasswordSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."id" = ?
RETURNING *;`

var SetUserActiveSQL = `UPDATE "users" AS "usr"
SET
	"active" = ?,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."id" = ?
RETURNING *;`

// Users is the account store: the generic repository plus identifier
// resolution, login bookkeeping, and the lifecycle write paths.
type Users interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)

	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User) error
	TrackSucccessfulLogin(ctx context.Context, user *User) error
	TrackSucccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)

	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	SetActiveTx(ctx context.Context, tx bun.IDB, id uuid.UUID, active bool) error
	SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error

	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) (*User, error)
	UpdateFieldsTx(ctx context.Context, tx bun.IDB, id uuid.UUID, fields map[string]any) (*User, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error

	Snapshot(ctx context.Context, id string) (map[string]any, error)
	List(ctx context.Context, p Pagination) ([]*User, int, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users         = (*users)(nil)
	_ UserDirectory = (*users)(nil)
)

// NewUsersRepository creates the bun-backed account store.
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.findOne(ctx, "id", id.String())
}

func (a *users) FindByUsername(ctx context.Context, username string) (*User, error) {
	return a.findOne(ctx, "username", strings.TrimSpace(username))
}

func (a *users) FindByEmail(ctx context.Context, email string) (*User, error) {
	return a.findOne(ctx, "email", strings.TrimSpace(strings.ToLower(email)))
}

func (a *users) findOne(ctx context.Context, column, value string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{column: value})
		}
		return nil, err
	}
	return record, nil
}

// GetByIdentifier resolves an id, email, or username to a user. Candidate
// columns are tried in that order; the first hit wins.
func (a *users) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier, criteria...)
}

func (a *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	options := resolveUserIdentifier(identifier)
	if len(options) == 0 {
		options = []identifierOption{
			{
				column: "id",
				value:  strings.TrimSpace(identifier),
			},
		}
	}

	for _, opt := range options {
		record := &User{}
		q := tx.NewSelect().Model(record)

		for _, c := range criteria {
			q.Apply(c)
		}

		err := q.
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)
	return a.Repository.CreateTx(ctx, tx, user)
}

func (a *users) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return a.SetActiveTx(ctx, a.db, id, active)
}

func (a *users) SetActiveTx(ctx context.Context, tx bun.IDB, id uuid.UUID, active bool) error {
	res, err := a.Repository.RawTx(ctx, tx, SetUserActiveSQL, active, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *users) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.SetPasswordTx(ctx, a.db, id, passwordHash)
}

func (a *users) SetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, tx, SetUserPasswordSQL, passwordHash, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *users) TrackSucccessfulLogin(ctx context.Context, user *User) error {
	return a.TrackSucccessfulLoginTx(ctx, a.db, user)
}

func (a *users) TrackSucccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	// NOTE: Updating through the ORM wont reset login_attempt_at and
	// login_attempts, so this goes through raw SQL.
	loggedInAt := time.Now()
	_, err := tx.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"loggedin_at" = ?,
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE
			("usr".id = ?);
	`, loggedInAt, user.ID).Exec(ctx)

	return err
}

func (a *users) TrackAttemptedLogin(ctx context.Context, user *User) error {
	return a.TrackAttemptedLoginTx(ctx, a.db, user)
}

func (a *users) TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	criteria := []repository.UpdateCriteria{
		repository.UpdateByID(user.ID.String()),
	}

	record := &User{}
	record.ID = user.ID
	record.LoginAttempts = user.LoginAttempts + 1
	now := time.Now()
	record.LoginAttemptAt = &now

	_, err := a.Repository.UpdateTx(ctx, tx, record, criteria...)

	return err
}

// mutableUserColumns is the closed set of columns UpdateFields may touch.
var mutableUserColumns = map[string]bool{
	"username":      true,
	"email":         true,
	"user_role":     true,
	"active":        true,
	"can_invite":    true,
	"configuration": true,
}

// UpdateFields applies a whitelisted column update. Role changes normalize
// the invite capability in the same statement: promotion to an admin tier
// grants it, demotion to USER clears it.
func (a *users) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) (*User, error) {
	return a.UpdateFieldsTx(ctx, a.db, id, fields)
}

func (a *users) UpdateFieldsTx(ctx context.Context, tx bun.IDB, id uuid.UUID, fields map[string]any) (*User, error) {
	if len(fields) == 0 {
		return a.FindByID(ctx, id)
	}

	apply := map[string]any{}
	for column, value := range fields {
		if mutableUserColumns[column] {
			apply[column] = value
		}
	}

	if role, ok := apply["user_role"]; ok {
		if roleStr, isStr := role.(string); isStr {
			if !IsValidRole(roleStr) {
				return nil, NewInvalidArgument(fmt.Sprintf("Invalid role: %s", roleStr))
			}
			apply["can_invite"] = IsAdminTier(roleStr)
		}
	}

	record := &User{}
	q := tx.NewUpdate().
		Model(record).
		Where("?TableAlias.id = ?", id.String()).
		Set("updated_at = CURRENT_TIMESTAMP").
		Returning("*")

	for column, value := range apply {
		q.Set(fmt.Sprintf("%s = ?", column), value)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return record, nil
}

func (a *users) DeleteByID(ctx context.Context, id uuid.UUID) error {
	res, err := a.db.NewDelete().
		Model((*User)(nil)).
		Where("?TableAlias.id = ?", id.String()).
		Exec(ctx)
	if err != nil {
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}

// Snapshot is the closed audit projection for the users resource.
func (a *users) Snapshot(ctx context.Context, id string) (map[string]any, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, NewInvalidArgument("Invalid user id")
	}

	user, err := a.FindByID(ctx, uid)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
		"active":   user.Active,
	}, nil
}

func (a *users) List(ctx context.Context, p Pagination) ([]*User, int, error) {
	p = p.Normalize()

	var records []*User
	total, err := a.db.NewSelect().
		Model(&records).
		Order("created_at DESC").
		Limit(p.Limit).
		Offset(p.Offset()).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleUser
	}

	record.Email = strings.TrimSpace(strings.ToLower(record.Email))
	record.Username = strings.TrimSpace(record.Username)

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

type identifierOption struct {
	column string
	value  string
}

func resolveUserIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 3)

	if isUUID(trimmed) {
		options = append(options, identifierOption{
			column: "id",
			value:  trimmed,
		})
	}

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  strings.ToLower(trimmed),
		})
	}

	options = append(options, identifierOption{
		column: "username",
		value:  trimmed,
	})

	return options
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}
