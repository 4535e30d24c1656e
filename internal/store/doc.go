// ABOUTME: Package documentation for the store package
// ABOUTME: Describes persistence responsibilities and encryption boundaries

// Package store provides SQLite-backed persistence for the hub: user
// accounts, provider connections, OAuth flow state, session and API tokens,
// memory items, custom MCP servers, and the audit log.
//
// The store owns the credential cipher. Callers hand it plaintext secrets and
// receive ciphertext-bearing records back; decryption happens only through
// the Decrypt* helpers so a secret's plaintext never rests in a table.
//
// Timestamps are stored as RFC3339 TEXT columns. Lookups that miss return
// ErrNotFound; unique-constraint collisions surface as ErrDuplicateEmail or
// ErrDuplicate.
package store
