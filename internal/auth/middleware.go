// ABOUTME: HTTP middleware for bearer authentication on API and MCP endpoints
// ABOUTME: Tries JWT verification first, then falls back to personal access tokens

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

// UserStore is the slice of the store the middleware needs.
type UserStore interface {
	GetUser(ctx context.Context, id int64) (*store.User, error)
	GetPersonalAccessToken(ctx context.Context, tokenHash string) (*store.PersonalAccessToken, error)
}

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// Authenticate resolves a bearer token to an AuthContext. JWT verification is
// attempted first; any failure falls through to a personal access token
// lookup by hash, so opaque PATs that happen to look like JWTs still work.
func Authenticate(ctx context.Context, users UserStore, verifier TokenVerifier, token string) (*AuthContext, error) {
	if claims, err := verifier.Verify(token); err == nil {
		user, err := users.GetUser(ctx, claims.UserID)
		if err != nil {
			return nil, ErrInvalidToken
		}
		if err := checkUser(user); err != nil {
			return nil, err
		}
		return &AuthContext{UserID: user.ID, Email: user.Email, Role: user.Role, Method: "jwt"}, nil
	}

	pat, err := users.GetPersonalAccessToken(ctx, HashToken(token))
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := users.GetUser(ctx, pat.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if err := checkUser(user); err != nil {
		return nil, err
	}
	return &AuthContext{UserID: user.ID, Email: user.Email, Role: user.Role, Method: "pat"}, nil
}

// ErrUserNotAllowed is returned when a valid token maps to a user who may not
// use the gateway (deactivated or not yet approved).
var ErrUserNotAllowed = errors.New("user not allowed")

func checkUser(user *store.User) error {
	if !user.IsActive {
		return ErrUserNotAllowed
	}
	if user.Status != store.UserStatusApproved {
		return ErrUserNotAllowed
	}
	return nil
}

// Middleware creates an HTTP middleware that authenticates bearer tokens and
// adds AuthContext to the request context.
func Middleware(users UserStore, verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				unauthorized(w, errMsg)
				return
			}

			authCtx, err := Authenticate(r.Context(), users, verifier, token)
			if err != nil {
				if errors.Is(err, ErrUserNotAllowed) {
					forbidden(w, "account not approved or deactivated")
					return
				}
				unauthorized(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), authCtx)))
		})
	}
}

// RequireAdmin creates an HTTP middleware that requires the admin role.
// Must be used after Middleware.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := FromContext(r.Context())
			if authCtx == nil {
				unauthorized(w, "not authenticated")
				return
			}
			if !authCtx.IsAdmin() {
				forbidden(w, "admin role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

func forbidden(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
