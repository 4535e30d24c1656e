// ABOUTME: JWT access token minting and verification for gateway sessions
// ABOUTME: Uses HS256 signing with configurable secret

package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// Claims carries the identity baked into an access token.
type Claims struct {
	UserID int64
	Email  string
	Role   string
}

// TokenVerifier defines the interface for access token verification
type TokenVerifier interface {
	Verify(tokenString string) (*Claims, error)
}

// JWTManager mints and verifies HS256 signed access tokens.
type JWTManager struct {
	secret    []byte
	accessTTL time.Duration
}

// NewJWTManager creates a manager with the given signing secret and access
// token lifetime.
func NewJWTManager(secret []byte, accessTTL time.Duration) *JWTManager {
	return &JWTManager{secret: secret, accessTTL: accessTTL}
}

// AccessTTL reports the lifetime minted tokens carry.
func (m *JWTManager) AccessTTL() time.Duration {
	return m.accessTTL
}

// Mint creates a new access token for the user.
func (m *JWTManager) Mint(userID int64, email, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   strconv.FormatInt(userID, 10),
		"email": email,
		"role":  role,
		"type":  "access",
		"iat":   now.Unix(),
		"exp":   now.Add(m.accessTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify validates the token signature and expiry and extracts the claims.
// Only tokens of type "access" are accepted.
func (m *JWTManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	if typ, _ := mapClaims["type"].(string); typ != "access" {
		return nil, fmt.Errorf("%w: not an access token", ErrInvalidToken)
	}

	sub, ok := mapClaims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: sub is not a user id", ErrInvalidToken)
	}

	email, _ := mapClaims["email"].(string)
	role, _ := mapClaims["role"].(string)

	return &Claims{UserID: userID, Email: email, Role: role}, nil
}
