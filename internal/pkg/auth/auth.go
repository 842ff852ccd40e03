package auth

import (
	"context"
	"crypto"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	svcpkg "github.com/hitesh22rana/runstream/internal/pkg/svc"
)

const (
	// DefaultExpiry is the lifetime of issued tokens when none is given.
	DefaultExpiry = 15 * time.Minute

	claimTenantID = "tenant_id"
	claimRole     = "role"
)

// Role is the role of the caller.
type Role string

const (
	// RoleUser is an end user acting inside a tenant.
	RoleUser Role = "user"

	// RoleService is a workflow runtime writing to the persistence sink.
	RoleService Role = "service"
)

// Principal is the verified identity carried by a bearer token.
type Principal struct {
	TenantID string
	UserID   string
	Role     Role
}

// principalContextKey is the key for the principal in the context.
type principalContextKey struct{}

// WithPrincipal sets the principal in the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from the context.
func PrincipalFromContext(ctx context.Context) (*Principal, error) {
	value := ctx.Value(principalContextKey{})
	if value == nil {
		return nil, status.Error(codes.Unauthenticated, "principal is required")
	}

	p, ok := value.(*Principal)
	if !ok || p == nil || p.TenantID == "" {
		return nil, status.Error(codes.Unauthenticated, "principal is required")
	}

	return p, nil
}

// ExtractBearerToken extracts the token from an Authorization header value.
func ExtractBearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) < 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", status.Error(codes.Unauthenticated, "missing authorization token")
	}

	return strings.TrimSpace(parts[1]), nil
}

// Auth is responsible for issuing and validating jwt tokens.
type Auth struct {
	issuer     string
	privateKey crypto.PrivateKey
	publicKey  crypto.PublicKey
	tp         trace.Tracer
}

// New creates a new Auth instance. The private key is optional; without it the instance only validates.
func New(privateKeyPath, publicKeyPath string) (*Auth, error) {
	publicKeyBytes, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to read public key: %v", err)
	}

	publicKey, err := jwt.ParseEdPublicKeyFromPEM(publicKeyBytes)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to parse public key: %v", err)
	}

	var privateKey crypto.PrivateKey
	if privateKeyPath != "" {
		privateKeyBytes, err := os.ReadFile(privateKeyPath)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "failed to read private key: %v", err)
		}

		privateKey, err = jwt.ParseEdPrivateKeyFromPEM(privateKeyBytes)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "failed to parse private key: %v", err)
		}
	}

	return NewWithKeys(privateKey, publicKey), nil
}

// NewWithKeys creates an Auth instance from parsed keys.
func NewWithKeys(privateKey crypto.PrivateKey, publicKey crypto.PublicKey) *Auth {
	return &Auth{
		issuer:     svcpkg.Info().GetName(),
		privateKey: privateKey,
		publicKey:  publicKey,
		tp:         otel.Tracer(svcpkg.Info().GetName()),
	}
}

// IssueToken issues a new token for the principal.
func (a *Auth) IssueToken(ctx context.Context, p *Principal, expiry time.Duration) (token string, err error) {
	_, span := a.tp.Start(ctx, "Auth.IssueToken")
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	if a.privateKey == nil {
		err = status.Error(codes.FailedPrecondition, "signing key is not configured")
		return "", err
	}

	if expiry <= 0 {
		expiry = DefaultExpiry
	}

	now := time.Now()
	_token := jwt.NewWithClaims(&jwt.SigningMethodEd25519{}, jwt.MapClaims{
		"nbf":         now.Unix(),
		"iat":         now.Unix(),
		"exp":         now.Add(expiry).Unix(),
		"iss":         a.issuer,
		"sub":         p.UserID,
		claimTenantID: p.TenantID,
		claimRole:     string(p.Role),
	})

	token, err = _token.SignedString(a.privateKey)
	if err != nil {
		err = status.Errorf(codes.Internal, "failed to sign token: %v", err)
		return "", err
	}

	return token, nil
}

// ValidateToken verifies the token and returns the principal it carries.
func (a *Auth) ValidateToken(ctx context.Context, tokenString string) (p *Principal, err error) {
	_, span := a.tp.Start(ctx, "Auth.ValidateToken")
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	token, err := jwt.Parse(
		tokenString,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
				return nil, status.Error(codes.Unauthenticated, "invalid signing method")
			}

			return a.publicKey, nil
		})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			err = status.Error(codes.Unauthenticated, "token is expired")
			return nil, err
		}

		err = status.Errorf(codes.Unauthenticated, "failed to parse token: %v", err)
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		err = status.Error(codes.Unauthenticated, "invalid token claims")
		return nil, err
	}

	tenantID, _ := claims[claimTenantID].(string)
	if tenantID == "" {
		err = status.Error(codes.Unauthenticated, "token is missing the tenant claim")
		return nil, err
	}

	subject, _ := claims.GetSubject()
	role, _ := claims[claimRole].(string)
	if role == "" {
		role = string(RoleUser)
	}

	return &Principal{
		TenantID: tenantID,
		UserID:   subject,
		Role:     Role(role),
	}, nil
}
