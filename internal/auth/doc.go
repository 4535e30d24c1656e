// Package auth provides authentication for the hub's HTTP surface.
//
// # Authentication Methods
//
// Three bearer credential kinds are accepted on protected endpoints:
//
//   - JWT access tokens: short-lived HS256 tokens minted at login or via the
//     OAuth token endpoint. Verified locally against the configured secret.
//
//   - Personal access tokens: long-lived opaque tokens for MCP clients that
//     cannot complete an OAuth flow. Stored and looked up by SHA-256 hash.
//
//   - Refresh tokens: single-use opaque tokens exchanged at /auth/refresh for
//     a fresh access/refresh pair. Rotation revokes the presented token.
//
// The middleware tries JWT verification first and falls back to a personal
// access token lookup, so clients never need to declare which kind they hold.
//
// # Account Lifecycle
//
// Signup creates a pending account. Pending and rejected accounts can be
// looked up but cannot authenticate; an admin approves accounts through the
// admin endpoints. Deactivated accounts are invisible to login entirely.
package auth
