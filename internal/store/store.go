// ABOUTME: Store types and sentinel errors for mcp-hub persistence
// ABOUTME: Defines User, Connection, OAuthState and related records

package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when creating a user with an email that is already taken
var ErrDuplicateEmail = errors.New("email already registered")

// ErrDuplicate is returned when an insert collides with a uniqueness constraint
var ErrDuplicate = errors.New("already exists")

// UserRole is the role assigned to a user account.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// UserStatus is the signup approval state of a user account.
type UserStatus string

const (
	UserStatusPending  UserStatus = "pending"
	UserStatusApproved UserStatus = "approved"
	UserStatusRejected UserStatus = "rejected"
)

// User represents a gateway account.
type User struct {
	ID              int64
	Email           string
	PasswordHash    string
	Role            UserRole
	IsActive        bool
	Status          UserStatus
	RejectionReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AuthType describes how a provider connection authenticates.
type AuthType string

const (
	AuthTypeOAuth2   AuthType = "oauth2"
	AuthTypePAT      AuthType = "pat"
	AuthTypeSession  AuthType = "session"
	AuthTypeInternal AuthType = "internal"
)

// Connection links one user to one provider. Secrets are stored encrypted;
// SecretEnc and RefreshSecretEnc hold ciphertext, never plaintext.
type Connection struct {
	ID               int64
	UserID           int64
	Provider         string
	AuthType         AuthType
	SecretEnc        string
	RefreshSecretEnc string
	ExpiresAt        *time.Time
	Scope            string
	MetaJSON         string
	IsConnected      bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ConnectionUpsert carries the plaintext inputs for creating or replacing a
// connection. The store encrypts Secret and RefreshSecret before writing.
type ConnectionUpsert struct {
	UserID        int64
	Provider      string
	AuthType      AuthType
	Secret        string
	RefreshSecret string
	ExpiresAt     *time.Time
	Scope         string
	MetaJSON      string
}

// OAuthState is a single-use record tying a third-party OAuth flow back to the
// user who started it. Entries older than the TTL are invisible to lookups.
type OAuthState struct {
	State     string
	UserID    int64
	Provider  string
	CreatedAt time.Time
}

// OAuthStateTTL is how long a pending third-party OAuth flow stays redeemable.
const OAuthStateTTL = 10 * time.Minute

// RefreshToken is a rotating long-lived session token. Only the SHA-256 hash
// is stored.
type RefreshToken struct {
	ID        int64
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// PersonalAccessToken is a long-lived bearer token for MCP clients that cannot
// complete an OAuth flow. Only the hash is stored.
type PersonalAccessToken struct {
	ID         int64
	UserID     int64
	TokenHash  string
	Name       string
	ExpiresAt  time.Time
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// APIClient is a client_id/client_secret pair for the client_credentials
// grant. The secret is stored hashed for verification and encrypted for the
// owner-facing reveal endpoint.
type APIClient struct {
	ID               int64
	UserID           int64
	ClientID         string
	ClientSecretHash string
	ClientSecretEnc  string
	Name             string
	IsActive         bool
	LastUsedAt       *time.Time
	CreatedAt        time.Time
}

// MemoryItem is a stored note for the internal memory integration.
type MemoryItem struct {
	ID          string
	UserID      int64
	Type        string
	Scope       string
	Title       string
	ValueJSON   string
	TagsJSON    string
	Pinned      bool
	TTLDays     *int
	Sensitivity string
	Confidence  float64
	SourceJSON  string
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CustomServer is a user-registered external MCP server proxied by the hub.
type CustomServer struct {
	ID             int64
	UserID         int64
	Name           string
	URL            string
	AuthType       string // none, bearer, custom_header
	AuthSecretEnc  string
	AuthHeaderName string
	IsEnabled      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
