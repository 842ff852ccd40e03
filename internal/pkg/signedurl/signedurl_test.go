package signedurl_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hitesh22rana/runstream/internal/pkg/signedurl"
)

func TestSigner_SignAndVerify(t *testing.T) {
	issuedAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	signer := signedurl.New("secret", "https://api.example.com/", time.Hour, signedurl.WithClock(func() time.Time { return issuedAt }))

	raw, expiresAt, err := signer.Sign("tenant1", "run1", "tenants/tenant1/runs/run1/payload.json")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "https://api.example.com/payloads?token="))
	assert.Equal(t, issuedAt.Add(time.Hour), expiresAt)

	token, err := signedurl.TokenFromURL(raw)
	require.NoError(t, err)

	tests := []struct {
		name  string
		at    time.Time
		token string
		code  codes.Code
	}{
		{
			name:  "success",
			at:    issuedAt.Add(30 * time.Minute),
			token: token,
		},
		{
			name:  "error: expired",
			at:    issuedAt.Add(2 * time.Hour),
			token: token,
			code:  codes.PermissionDenied,
		},
		{
			name:  "error: tampered",
			at:    issuedAt.Add(time.Minute),
			token: token + "x",
			code:  codes.PermissionDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := signedurl.New("secret", "https://api.example.com", time.Hour, signedurl.WithClock(func() time.Time { return tt.at }))

			grant, err := verifier.Verify(tt.token)
			if tt.code != codes.OK {
				require.Error(t, err)
				assert.Equal(t, tt.code, status.Code(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "tenant1", grant.TenantID)
			assert.Equal(t, "run1", grant.RunID)
			assert.Equal(t, "tenants/tenant1/runs/run1/payload.json", grant.Key)
		})
	}
}

func TestSigner_ForeignSecret(t *testing.T) {
	raw, _, err := signedurl.New("secret-a", "http://localhost", time.Hour).Sign("t", "r", "k")
	require.NoError(t, err)

	token, err := signedurl.TokenFromURL(raw)
	require.NoError(t, err)

	_, err = signedurl.New("secret-b", "http://localhost", time.Hour).Verify(token)
	require.Error(t, err)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestSigner_NotConfigured(t *testing.T) {
	signer := signedurl.New("", "http://localhost", 0)
	assert.False(t, signer.Configured())

	_, _, err := signer.Sign("t", "r", "k")
	require.Error(t, err)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}
