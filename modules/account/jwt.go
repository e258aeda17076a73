package account

import (
	"errors"
	"time"

	"github.com/example/taskdesk/domain/apperr"
	"github.com/example/taskdesk/domain/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrInvalidToken is returned when the token is invalid.
	ErrInvalidToken = apperr.Unauthorized("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = apperr.Unauthorized("token has expired")
	// ErrAccountGone is returned for a valid token whose account was removed.
	ErrAccountGone = apperr.Unauthorized("account no longer exists")
)

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	SecretKey     string
	TokenDuration time.Duration
	Issuer        string
}

// DefaultJWTConfig returns a default JWT configuration.
func DefaultJWTConfig() JWTConfig {
	return JWTConfig{
		SecretKey:     "change-me-in-production",
		TokenDuration: 24 * time.Hour,
		Issuer:        "taskdesk",
	}
}

// Claims are the custom claims carried by a session token.
type Claims struct {
	UserID string    `json:"user_id"`
	Role   user.Role `json:"role"`
	jwt.RegisteredClaims
}

// Identity returns the user identity the token was issued for.
func (c *Claims) Identity() user.Identity {
	return user.Identity{ID: c.UserID, Role: c.Role}
}

// JWTManager issues and validates session tokens.
type JWTManager struct {
	config JWTConfig
	clock  clockwork.Clock
}

// NewJWTManager creates a new JWTManager.
func NewJWTManager(config JWTConfig, clock clockwork.Clock) *JWTManager {
	return &JWTManager{
		config: config,
		clock:  clock,
	}
}

// Generate issues a token for id and returns it with its expiry.
func (m *JWTManager) Generate(id user.Identity) (string, time.Time, error) {
	now := m.clock.Now()
	expiresAt := now.Add(m.config.TokenDuration)
	claims := Claims{
		UserID: id.ID,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   id.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.config.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate parses tokenString and returns its claims.
func (m *JWTManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.config.SecretKey), nil
	},
		jwt.WithTimeFunc(m.clock.Now),
		jwt.WithIssuer(m.config.Issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
