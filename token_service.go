package accounts

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenService mints and validates the session tokens issued on login.
type TokenService interface {
	Mint(user *User) (string, error)
	Validate(raw string) (*AccountClaims, error)
}

// HMACTokenService implements TokenService with HS256 signed tokens.
type HMACTokenService struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
	now        Clock
}

// TokenOption customizes the token service.
type TokenOption func(*HMACTokenService)

// WithTokenTTL sets the token lifetime. Default is 24h.
func WithTokenTTL(ttl time.Duration) TokenOption {
	return func(ts *HMACTokenService) {
		if ttl > 0 {
			ts.ttl = ttl
		}
	}
}

// WithTokenIssuer sets the iss claim and enforces it on validation.
func WithTokenIssuer(issuer string) TokenOption {
	return func(ts *HMACTokenService) {
		ts.issuer = issuer
	}
}

// WithTokenAudience sets the aud claim and enforces it on validation.
func WithTokenAudience(audience ...string) TokenOption {
	return func(ts *HMACTokenService) {
		ts.audience = append(jwt.ClaimStrings{}, audience...)
	}
}

// WithTokenLogger overrides the logger.
func WithTokenLogger(logger Logger) TokenOption {
	return func(ts *HMACTokenService) {
		ts.logger = normalizeLogger(logger)
	}
}

// WithTokenClock injects a custom clock.
func WithTokenClock(clock Clock) TokenOption {
	return func(ts *HMACTokenService) {
		ts.now = normalizeClock(clock)
	}
}

// NewTokenService creates an HS256 token service.
func NewTokenService(signingKey []byte, opts ...TokenOption) *HMACTokenService {
	ts := &HMACTokenService{
		signingKey: signingKey,
		ttl:        24 * time.Hour,
		logger:     defLogger{},
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}
	return ts
}

// Mint signs a token carrying the user's id, username, role, and
// activation flag.
func (ts *HMACTokenService) Mint(user *User) (string, error) {
	if user == nil {
		return "", goerrors.New("user must not be nil", goerrors.CategoryInternal)
	}

	claims := newAccountClaims(user, ts.issuer, ts.audience, ts.now(), ts.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

// Validate parses and verifies a token string, returning structured claims
func (ts *HMACTokenService) Validate(raw string) (*AccountClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(raw, &AccountClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*AccountClaims)
	if !ok || !token.Valid {
		ts.logger.Error("token validate could not decode claims")
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
