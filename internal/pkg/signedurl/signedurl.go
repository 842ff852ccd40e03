// Package signedurl mints and verifies time-limited, read-only capability URLs for stored payloads.
package signedurl

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// DefaultExpiry is the lifetime of a signed URL when none is configured.
	DefaultExpiry = time.Hour

	// ScopeRead is the only scope a payload URL grants.
	ScopeRead = "read"

	// TokenParam is the query parameter carrying the token.
	TokenParam = "token"

	payloadsPath = "/payloads"
)

// Grant is the capability carried by a signed URL.
type Grant struct {
	TenantID  string
	RunID     string
	Key       string
	ExpiresAt time.Time
}

type claims struct {
	TenantID string `json:"tid"`
	RunID    string `json:"rid"`
	Key      string `json:"key"`
	Scope    string `json:"scope"`
	jwt.RegisteredClaims
}

// Signer mints and verifies payload URLs.
type Signer struct {
	secret  []byte
	baseURL string
	expiry  time.Duration
	now     func() time.Time
}

// Option configures a Signer.
type Option func(*Signer)

// WithClock overrides the clock used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		s.now = now
	}
}

// New creates a new Signer. An empty secret yields an unconfigured signer.
func New(secret, baseURL string, expiry time.Duration, opts ...Option) *Signer {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}

	s := &Signer{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(baseURL, "/"),
		expiry:  expiry,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Configured reports whether the signer can mint URLs.
func (s *Signer) Configured() bool {
	return len(s.secret) > 0 && s.baseURL != ""
}

// Sign returns a read-only URL for the object key that expires after the configured window.
func (s *Signer) Sign(tenantID, runID, key string) (string, time.Time, error) {
	if !s.Configured() {
		return "", time.Time{}, status.Error(codes.FailedPrecondition, "payload url signing is not configured")
	}

	now := s.now()
	expiresAt := now.Add(s.expiry)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		TenantID: tenantID,
		RunID:    runID,
		Key:      key,
		Scope:    ScopeRead,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, status.Errorf(codes.Internal, "failed to sign payload url: %v", err)
	}

	return s.baseURL + payloadsPath + "?" + url.Values{TokenParam: {token}}.Encode(), expiresAt, nil
}

// Verify checks the token of a signed URL. Expired, tampered or foreign tokens are PermissionDenied.
func (s *Signer) Verify(token string) (*Grant, error) {
	if !s.Configured() {
		return nil, status.Error(codes.FailedPrecondition, "payload url signing is not configured")
	}

	var c claims
	_, err := jwt.ParseWithClaims(
		token,
		&c,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, status.Error(codes.PermissionDenied, "invalid signing method")
			}
			return s.secret, nil
		},
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, status.Error(codes.PermissionDenied, "payload url is expired")
		}
		return nil, status.Errorf(codes.PermissionDenied, "invalid payload url: %v", err)
	}

	if c.Scope != ScopeRead || c.Key == "" {
		return nil, status.Error(codes.PermissionDenied, "payload url does not grant read access")
	}

	return &Grant{
		TenantID:  c.TenantID,
		RunID:     c.RunID,
		Key:       c.Key,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

// TokenFromURL extracts the token of a signed URL.
func TokenFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", status.Errorf(codes.InvalidArgument, "invalid url: %v", err)
	}

	token := u.Query().Get(TokenParam)
	if token == "" {
		return "", status.Error(codes.InvalidArgument, "url carries no token")
	}

	return token, nil
}
