package accounts

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// CodeProfile fixes the shape and rules of one code kind.
type CodeProfile struct {
	Kind  CodeKind
	Bytes int
	TTL   time.Duration
	// Uppercase renders the hex code in upper case, for codes users type by hand
	Uppercase bool
	// OwnerScoped codes bind a user at issue time and only that user may
	// consume them. Unscoped codes bind the consumer at consumption instead.
	OwnerScoped bool
}

// The three built-in code kinds.
var (
	// ActivationCodes are short, hand-typable account activation codes
	ActivationCodes = CodeProfile{
		Kind:        CodeKindActivation,
		Bytes:       6,
		TTL:         24 * time.Hour,
		Uppercase:   true,
		OwnerScoped: true,
	}
	// PasswordResetCodes are long single-use reset tokens
	PasswordResetCodes = CodeProfile{
		Kind:        CodeKindPasswordReset,
		Bytes:       32,
		TTL:         time.Hour,
		OwnerScoped: true,
	}
	// InvitationCodes admit a new registration; the consumer is recorded
	// at use, not at issue
	InvitationCodes = CodeProfile{
		Kind:  CodeKindInvitation,
		Bytes: 32,
		TTL:   7 * 24 * time.Hour,
	}
)

// CodeStore is the persistence surface for one-time codes. Consume must be
// a single conditional update (used flag plus expiry check) so concurrent
// consumers cannot both succeed.
type CodeStore interface {
	Create(ctx context.Context, code *OneTimeCode) (*OneTimeCode, error)
	FindLive(ctx context.Context, kind CodeKind, code string, now time.Time) (*OneTimeCode, error)
	Consume(ctx context.Context, id uuid.UUID, usedBy uuid.UUID, now time.Time) (bool, error)
	InvalidateOutstanding(ctx context.Context, kind CodeKind, userID uuid.UUID) (int, error)
	Purge(ctx context.Context, now time.Time) (int, error)
}

// cryptoRandSource is the default RandomCodeSource, backed by crypto/rand.
type cryptoRandSource struct{}

func (cryptoRandSource) Generate(bytes int) (string, error) {
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate random code")
	}
	return hex.EncodeToString(buf), nil
}

// CodeLifecycle issues, validates, and consumes one-time codes of a single
// profile. Create one per kind.
type CodeLifecycle struct {
	profile CodeProfile
	store   CodeStore
	source  RandomCodeSource
	logger  Logger
	now     Clock
}

// CodeLifecycleOption customizes lifecycle construction.
type CodeLifecycleOption func(*CodeLifecycle)

// WithCodeClock injects a custom clock.
func WithCodeClock(clock Clock) CodeLifecycleOption {
	return func(l *CodeLifecycle) {
		l.now = normalizeClock(clock)
	}
}

// WithCodeSource overrides the random source (useful for tests).
func WithCodeSource(source RandomCodeSource) CodeLifecycleOption {
	return func(l *CodeLifecycle) {
		if source != nil {
			l.source = source
		}
	}
}

// WithCodeLogger overrides the logger.
func WithCodeLogger(logger Logger) CodeLifecycleOption {
	return func(l *CodeLifecycle) {
		l.logger = normalizeLogger(logger)
	}
}

// WithCodeTTL overrides the profile's default lifetime.
func WithCodeTTL(ttl time.Duration) CodeLifecycleOption {
	return func(l *CodeLifecycle) {
		if ttl > 0 {
			l.profile.TTL = ttl
		}
	}
}

// NewCodeLifecycle creates the lifecycle engine for one code profile.
func NewCodeLifecycle(profile CodeProfile, store CodeStore, opts ...CodeLifecycleOption) *CodeLifecycle {
	l := &CodeLifecycle{
		profile: profile,
		store:   store,
		source:  cryptoRandSource{},
		logger:  defLogger{},
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// WithTTL returns a copy of the lifecycle whose codes expire after the
// given duration. The shared store and source are reused.
func (l *CodeLifecycle) WithTTL(ttl time.Duration) *CodeLifecycle {
	if ttl <= 0 {
		return l
	}
	clone := *l
	clone.profile.TTL = ttl
	return &clone
}

// IssueOptions carries the per-issue bindings.
type IssueOptions struct {
	// UserID is required for owner-scoped kinds and ignored otherwise
	UserID *uuid.UUID
	// CreatedBy records the issuing actor, when there is one
	CreatedBy *uuid.UUID
}

// Issue invalidates any outstanding codes for the same owner and creates a
// fresh one. Unscoped kinds skip the invalidation step.
func (l *CodeLifecycle) Issue(ctx context.Context, opts IssueOptions) (*OneTimeCode, error) {
	if l.profile.OwnerScoped {
		if opts.UserID == nil {
			return nil, NewInvalidArgument("owner-scoped codes require a user")
		}
		invalidated, err := l.store.InvalidateOutstanding(ctx, l.profile.Kind, *opts.UserID)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to invalidate outstanding codes")
		}
		if invalidated > 0 {
			l.logger.Debug("invalidated %d outstanding %s codes for %s", invalidated, l.profile.Kind, opts.UserID)
		}
	}

	payload, err := l.source.Generate(l.profile.Bytes)
	if err != nil {
		return nil, err
	}
	if l.profile.Uppercase {
		payload = strings.ToUpper(payload)
	}

	record := &OneTimeCode{
		Kind:      l.profile.Kind,
		Code:      payload,
		CreatedBy: opts.CreatedBy,
		ExpiresAt: l.now().Add(l.profile.TTL),
	}
	if l.profile.OwnerScoped {
		record.UserID = opts.UserID
	}

	created, err := l.store.Create(ctx, record)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store code")
	}

	l.logger.Info("issued %s code expiring at %s", l.profile.Kind, created.ExpiresAt.Format(time.RFC3339))
	return created, nil
}

// Validate checks a code without consuming it. Owner-scoped kinds also
// verify the code belongs to forUser when one is given. Every failure is
// the same ErrCodeInvalidOrExpired; callers learn nothing about which check
// failed.
func (l *CodeLifecycle) Validate(ctx context.Context, code string, forUser *uuid.UUID) (*OneTimeCode, error) {
	code = l.canonical(code)
	if code == "" {
		return nil, ErrCodeInvalidOrExpired
	}

	record, err := l.store.FindLive(ctx, l.profile.Kind, code, l.now())
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrCodeInvalidOrExpired
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up code")
	}

	if l.profile.OwnerScoped && forUser != nil {
		if record.UserID == nil || *record.UserID != *forUser {
			return nil, ErrCodeInvalidOrExpired
		}
	}

	return record, nil
}

// Consume validates and atomically marks the code used, recording usedBy.
// A code consumed concurrently by another caller fails the same way an
// unknown code does.
func (l *CodeLifecycle) Consume(ctx context.Context, code string, usedBy uuid.UUID) (*OneTimeCode, error) {
	record, err := l.Validate(ctx, code, ownerFilter(l.profile, usedBy))
	if err != nil {
		return nil, err
	}

	consumed, err := l.store.Consume(ctx, record.ID, usedBy, l.now())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume code")
	}
	if !consumed {
		return nil, ErrCodeInvalidOrExpired
	}

	record.Used = true
	record.UsedBy = &usedBy
	l.logger.Info("%s code consumed by %s", l.profile.Kind, usedBy)
	return record, nil
}

// Purge deletes used and expired codes of this lifecycle's kind.
func (l *CodeLifecycle) Purge(ctx context.Context) (int, error) {
	return l.store.Purge(ctx, l.now())
}

func (l *CodeLifecycle) canonical(code string) string {
	code = strings.TrimSpace(code)
	if l.profile.Uppercase {
		code = strings.ToUpper(code)
	}
	return code
}

func ownerFilter(profile CodeProfile, usedBy uuid.UUID) *uuid.UUID {
	if !profile.OwnerScoped {
		return nil
	}
	return &usedBy
}
