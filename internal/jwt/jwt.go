package jwt

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultExpiration is used when no expiration option is given.
const DefaultExpiration = 24 * time.Hour

var (
	ErrMissingAuthHeader = errors.New("authorization header missing")
	ErrInvalidAuthHeader = errors.New("invalid authorization header format")
	ErrInvalidToken      = errors.New("invalid token")
)

// Claims are the claims carried by an access token. UserID is the owner id of
// the caller's wallets.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	jwt.RegisteredClaims
}

// JWT provides methods to generate and validate JWT tokens.
type JWT struct {
	secretKey string        // Secret key for signing tokens
	exp       time.Duration // Token expiration duration
}

// Option configures a JWT.
type Option func(*JWT)

// WithSecretKey sets the HMAC signing key.
func WithSecretKey(secret string) Option {
	return func(j *JWT) {
		j.secretKey = secret
	}
}

// WithExpiration sets the lifetime of generated tokens.
func WithExpiration(exp time.Duration) Option {
	return func(j *JWT) {
		j.exp = exp
	}
}

// New creates a new JWT instance
func New(opts ...Option) *JWT {
	j := &JWT{exp: DefaultExpiration}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Generate creates a JWT token for a given userID (uuid.UUID)
func (j *JWT) Generate(ctx context.Context, userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.exp)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

// Validate reports whether tokenString is signed with our key and not expired.
func (j *JWT) Validate(ctx context.Context, tokenString string) error {
	_, err := j.GetClaims(ctx, tokenString)
	return err
}

// GetClaims parses and validates the token and returns its claims.
func (j *JWT) GetClaims(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(j.secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GetUserID returns the user id of a valid token.
func (j *JWT) GetUserID(ctx context.Context, tokenString string) (uuid.UUID, error) {
	claims, err := j.GetClaims(ctx, tokenString)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.UserID, nil
}

// GetTokenFromRequest extracts the token string from the Authorization header
func (j *JWT) GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", ErrInvalidAuthHeader
	}

	return parts[1], nil
}
