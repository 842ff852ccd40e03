package auth_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hitesh22rana/runstream/internal/pkg/auth"
)

func newAuth(t *testing.T) *auth.Auth {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	return auth.NewWithKeys(priv, pub)
}

func TestAuth_IssueAndValidate(t *testing.T) {
	a := newAuth(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		principal *auth.Principal
		expiry    time.Duration
		want      *auth.Principal
		code      codes.Code
	}{
		{
			name:      "success",
			principal: &auth.Principal{TenantID: "tenant1", UserID: "user1", Role: auth.RoleUser},
			expiry:    time.Minute,
			want:      &auth.Principal{TenantID: "tenant1", UserID: "user1", Role: auth.RoleUser},
		},
		{
			name:      "success: service role",
			principal: &auth.Principal{TenantID: "tenant1", UserID: "runtime", Role: auth.RoleService},
			expiry:    time.Minute,
			want:      &auth.Principal{TenantID: "tenant1", UserID: "runtime", Role: auth.RoleService},
		},
		{
			name:      "error: missing tenant",
			principal: &auth.Principal{UserID: "user1", Role: auth.RoleUser},
			expiry:    time.Minute,
			code:      codes.Unauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := a.IssueToken(ctx, tt.principal, tt.expiry)
			require.NoError(t, err)

			got, err := a.ValidateToken(ctx, token)
			if tt.code != codes.OK {
				require.Error(t, err)
				assert.Equal(t, tt.code, status.Code(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuth_ValidateToken_Expired(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	token, err := jwt.NewWithClaims(&jwt.SigningMethodEd25519{}, jwt.MapClaims{
		"iat":       past.Unix(),
		"exp":       past.Add(time.Minute).Unix(),
		"sub":       "user1",
		"tenant_id": "tenant1",
	}).SignedString(priv)
	require.NoError(t, err)

	_, err = auth.NewWithKeys(priv, pub).ValidateToken(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Contains(t, err.Error(), "expired")
}

func TestAuth_ValidateToken_ForeignKey(t *testing.T) {
	issuer := newAuth(t)
	verifier := newAuth(t)

	token, err := issuer.IssueToken(context.Background(), &auth.Principal{TenantID: "tenant1", UserID: "user1"}, time.Minute)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestAuth_IssueToken_WithoutPrivateKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	a := auth.NewWithKeys(nil, pub)
	_, err = a.IssueToken(context.Background(), &auth.Principal{TenantID: "tenant1"}, time.Minute)
	require.Error(t, err)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		isErr  bool
	}{
		{name: "success", header: "Bearer abc.def", want: "abc.def"},
		{name: "success: lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "error: empty", header: "", isErr: true},
		{name: "error: basic scheme", header: "Basic abc", isErr: true},
		{name: "error: missing token", header: "Bearer ", isErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := auth.ExtractBearerToken(tt.header)
			if tt.isErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
