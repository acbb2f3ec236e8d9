package accounts_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockAuditStore records appended audit entries.
type MockAuditStore struct {
	mock.Mock
}

func (m *MockAuditStore) Append(ctx context.Context, record *accounts.AuditRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// MockNotificationSink verifies emitted events.
type MockNotificationSink struct {
	mock.Mock
}

func (m *MockNotificationSink) EmitToUser(ctx context.Context, userID uuid.UUID, event string, payload map[string]any) error {
	args := m.Called(ctx, userID, event, payload)
	return args.Error(0)
}

// memFriendshipStore is an in-memory FriendshipStore.
type memFriendshipStore struct {
	records map[uuid.UUID]*accounts.Friendship
}

func newMemFriendshipStore() *memFriendshipStore {
	return &memFriendshipStore{records: map[uuid.UUID]*accounts.Friendship{}}
}

func (s *memFriendshipStore) GetByID(ctx context.Context, id uuid.UUID) (*accounts.Friendship, error) {
	record, ok := s.records[id]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}
	clone := *record
	return &clone, nil
}

func (s *memFriendshipStore) FindByPair(ctx context.Context, a, b uuid.UUID) (*accounts.Friendship, error) {
	return s.findPair(a, b, "")
}

func (s *memFriendshipStore) FindAcceptedByPair(ctx context.Context, a, b uuid.UUID) (*accounts.Friendship, error) {
	return s.findPair(a, b, accounts.FriendshipAccepted)
}

func (s *memFriendshipStore) findPair(a, b uuid.UUID, status accounts.FriendshipStatus) (*accounts.Friendship, error) {
	for _, record := range s.records {
		samePair := (record.RequesterID == a && record.ReceiverID == b) ||
			(record.RequesterID == b && record.ReceiverID == a)
		if !samePair {
			continue
		}
		if status != "" && record.Status != status {
			continue
		}
		clone := *record
		return &clone, nil
	}
	return nil, repository.NewRecordNotFound()
}

func (s *memFriendshipStore) Create(ctx context.Context, record *accounts.Friendship) (*accounts.Friendship, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	clone := *record
	s.records[record.ID] = &clone
	return record, nil
}

func (s *memFriendshipStore) Respond(ctx context.Context, id uuid.UUID, status accounts.FriendshipStatus, respondedAt time.Time) (bool, error) {
	record, ok := s.records[id]
	if !ok || record.Status != accounts.FriendshipPending {
		return false, nil
	}
	record.Status = status
	record.RespondedAt = &respondedAt
	return true, nil
}

func (s *memFriendshipStore) Delete(ctx context.Context, id uuid.UUID) error {
	delete(s.records, id)
	return nil
}

func (s *memFriendshipStore) ListByUser(ctx context.Context, userID uuid.UUID, status accounts.FriendshipStatus, side accounts.FriendshipSide, p accounts.Pagination) ([]*accounts.Friendship, int, error) {
	var matches []*accounts.Friendship
	for _, record := range s.records {
		if record.Status != status {
			continue
		}
		switch side {
		case accounts.SideReceiver:
			if record.ReceiverID != userID {
				continue
			}
		case accounts.SideRequester:
			if record.RequesterID != userID {
				continue
			}
		default:
			if !record.Involves(userID) {
				continue
			}
		}
		clone := *record
		matches = append(matches, &clone)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].ID.String() < matches[j].ID.String()
	})

	p = p.Normalize()
	total := len(matches)
	start := p.Offset()
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	return matches[start:end], total, nil
}

// memCodeStore is an in-memory CodeStore.
type memCodeStore struct {
	records map[uuid.UUID]*accounts.OneTimeCode
}

func newMemCodeStore() *memCodeStore {
	return &memCodeStore{records: map[uuid.UUID]*accounts.OneTimeCode{}}
}

func (s *memCodeStore) Create(ctx context.Context, record *accounts.OneTimeCode) (*accounts.OneTimeCode, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	clone := *record
	s.records[record.ID] = &clone
	return record, nil
}

func (s *memCodeStore) FindLive(ctx context.Context, kind accounts.CodeKind, code string, now time.Time) (*accounts.OneTimeCode, error) {
	for _, record := range s.records {
		if record.Kind == kind && record.Code == code && record.Live(now) {
			clone := *record
			return &clone, nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

func (s *memCodeStore) Consume(ctx context.Context, id uuid.UUID, usedBy uuid.UUID, now time.Time) (bool, error) {
	record, ok := s.records[id]
	if !ok || !record.Live(now) {
		return false, nil
	}
	record.Used = true
	record.UsedBy = &usedBy
	return true, nil
}

func (s *memCodeStore) InvalidateOutstanding(ctx context.Context, kind accounts.CodeKind, userID uuid.UUID) (int, error) {
	count := 0
	for _, record := range s.records {
		if record.Kind == kind && !record.Used && record.UserID != nil && *record.UserID == userID {
			record.Used = true
			count++
		}
	}
	return count, nil
}

func (s *memCodeStore) Purge(ctx context.Context, now time.Time) (int, error) {
	count := 0
	for id, record := range s.records {
		if record.Used || !record.ExpiresAt.After(now) {
			delete(s.records, id)
			count++
		}
	}
	return count, nil
}

// memUserDirectory is an in-memory UserDirectory.
type memUserDirectory struct {
	users map[uuid.UUID]*accounts.User
}

func newMemUserDirectory(users ...*accounts.User) *memUserDirectory {
	d := &memUserDirectory{users: map[uuid.UUID]*accounts.User{}}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *memUserDirectory) FindByID(ctx context.Context, id uuid.UUID) (*accounts.User, error) {
	user, ok := d.users[id]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}
	return user, nil
}

func (d *memUserDirectory) FindByUsername(ctx context.Context, username string) (*accounts.User, error) {
	for _, user := range d.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

func (d *memUserDirectory) FindByEmail(ctx context.Context, email string) (*accounts.User, error) {
	for _, user := range d.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

func (d *memUserDirectory) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	user, ok := d.users[id]
	if !ok {
		return repository.NewRecordNotFound()
	}
	user.Active = active
	return nil
}

func (d *memUserDirectory) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	user, ok := d.users[id]
	if !ok {
		return repository.NewRecordNotFound()
	}
	user.PasswordHash = passwordHash
	return nil
}

// seqCodeSource yields deterministic code payloads.
type seqCodeSource struct {
	n int
}

func (s *seqCodeSource) Generate(bytes int) (string, error) {
	s.n++
	return fmt.Sprintf("%0*x", bytes*2, s.n), nil
}

func fixedClock(t time.Time) accounts.Clock {
	return func() time.Time { return t }
}
