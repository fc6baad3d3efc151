package jwttoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
)

// DefaultTTL is the lifetime of an access token.
const DefaultTTL = 24 * time.Hour

// Verification failures. Both map to 401; callers distinguish them with errors.Is.
var (
	ErrTokenExpired = dErrors.New(dErrors.CodeUnauthorized, "token has expired")
	ErrTokenInvalid = dErrors.New(dErrors.CodeUnauthorized, "invalid token")
)

// Claims represents the JWT claims for our access tokens.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed access token plus the metadata clients and the
// revocation list need.
type IssuedToken struct {
	Token     string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ExpiresIn returns the token lifetime in whole seconds.
func (t IssuedToken) ExpiresIn() int64 {
	return int64(t.ExpiresAt.Sub(t.IssuedAt).Seconds())
}

// JWTService handles HS256 token creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

type Option func(*JWTService)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *JWTService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock sets the time source for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(s *JWTService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewJWTService(signingKey, issuer string, opts ...Option) *JWTService {
	s := &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        DefaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the configured token lifetime.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// GenerateAccessToken signs a token for the account.
func (s *JWTService) GenerateAccessToken(userID id.UserID, role id.Role, email string) (*IssuedToken, error) {
	issuedAt := s.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.ttl)
	jti := uuid.NewString()

	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID.String(),
		Role:   role.String(),
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Issuer:    s.issuer,
			ID:        jti,
		},
	})

	signed, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &IssuedToken{Token: signed, JTI: jti, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// ValidateToken checks signature, issuer and expiry, returning ErrTokenExpired
// or ErrTokenInvalid on failure.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if _, err := id.ParseUserID(claims.UserID); err != nil {
		return nil, ErrTokenInvalid
	}
	if !id.Role(claims.Role).IsValid() || claims.ID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
