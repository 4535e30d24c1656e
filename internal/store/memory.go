// ABOUTME: Memory item store backing the built-in memory integration
// ABOUTME: Items are upserted by (user, type, scope, title) with version bumps

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UpsertMemoryItem creates a memory item, or updates the existing item with
// the same (type, scope, title) for the user, bumping its version.
func (s *SQLiteStore) UpsertMemoryItem(ctx context.Context, item *MemoryItem) (*MemoryItem, error) {
	now := time.Now().UTC()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Type == "" {
		item.Type = "note"
	}
	if item.Scope == "" {
		item.Scope = "global"
	}
	if item.ValueJSON == "" {
		item.ValueJSON = "{}"
	}
	if item.TagsJSON == "" {
		item.TagsJSON = "[]"
	}
	if item.Sensitivity == "" {
		item.Sensitivity = "low"
	}
	if item.Confidence == 0 {
		item.Confidence = 1.0
	}

	query := `
		INSERT INTO memory_items (id, user_id, type, scope, title, value_json, tags_json,
			pinned, ttl_days, sensitivity, confidence, source_json, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(user_id, type, scope, title) DO UPDATE SET
			value_json = excluded.value_json,
			tags_json = excluded.tags_json,
			pinned = excluded.pinned,
			ttl_days = excluded.ttl_days,
			sensitivity = excluded.sensitivity,
			confidence = excluded.confidence,
			source_json = excluded.source_json,
			version = memory_items.version + 1,
			updated_at = excluded.updated_at
	`

	var ttlDays any
	if item.TTLDays != nil {
		ttlDays = *item.TTLDays
	}

	_, err := s.db.ExecContext(ctx, query,
		item.ID, item.UserID, item.Type, item.Scope, item.Title,
		item.ValueJSON, item.TagsJSON, boolToInt(item.Pinned), ttlDays,
		item.Sensitivity, item.Confidence, nullString(item.SourceJSON),
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("upserting memory item: %w", err)
	}

	return s.getMemoryItemByKey(ctx, item.UserID, item.Type, item.Scope, item.Title)
}

// GetMemoryItem retrieves one of a user's memory items by ID.
func (s *SQLiteStore) GetMemoryItem(ctx context.Context, userID int64, id string) (*MemoryItem, error) {
	row := s.db.QueryRowContext(ctx,
		memorySelect+` WHERE user_id = ? AND id = ?`, userID, id)
	return scanMemoryItem(row)
}

func (s *SQLiteStore) getMemoryItemByKey(ctx context.Context, userID int64, itemType, scope, title string) (*MemoryItem, error) {
	row := s.db.QueryRowContext(ctx,
		memorySelect+` WHERE user_id = ? AND type = ? AND scope = ? AND title = ?`,
		userID, itemType, scope, title)
	return scanMemoryItem(row)
}

// MemoryQuery narrows a memory search. Zero values mean no constraint.
type MemoryQuery struct {
	Type       string
	Scope      string
	Text       string
	PinnedOnly bool
	Limit      int
}

// SearchMemoryItems returns a user's memory items matching the query, pinned
// first, then most recently updated. Text matches title, value, and tags
// case-insensitively.
func (s *SQLiteStore) SearchMemoryItems(ctx context.Context, userID int64, q MemoryQuery) ([]*MemoryItem, error) {
	conds := []string{"user_id = ?"}
	args := []any{userID}

	if q.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, q.Type)
	}
	if q.Scope != "" {
		conds = append(conds, "scope = ?")
		args = append(args, q.Scope)
	}
	if q.PinnedOnly {
		conds = append(conds, "pinned = 1")
	}
	if q.Text != "" {
		pattern := "%" + strings.ToLower(q.Text) + "%"
		conds = append(conds, "(LOWER(title) LIKE ? OR LOWER(value_json) LIKE ? OR LOWER(tags_json) LIKE ?)")
		args = append(args, pattern, pattern, pattern)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx,
		memorySelect+` WHERE `+strings.Join(conds, " AND ")+
			` ORDER BY pinned DESC, updated_at DESC LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying memory items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []*MemoryItem
	for rows.Next() {
		item, err := scanMemoryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating memory items: %w", err)
	}
	return items, nil
}

// DeleteMemoryItem removes one of a user's memory items.
func (s *SQLiteStore) DeleteMemoryItem(ctx context.Context, userID int64, id string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM memory_items WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("deleting memory item: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetMemoryItemPinned toggles an item's pinned flag.
func (s *SQLiteStore) SetMemoryItemPinned(ctx context.Context, userID int64, id string, pinned bool) error {
	return s.updateMemoryItem(ctx,
		`UPDATE memory_items SET pinned = ?, updated_at = ? WHERE user_id = ? AND id = ?`,
		boolToInt(pinned), nowRFC3339(), userID, id)
}

// SetMemoryItemTTL sets an item's time-to-live in days; nil means permanent.
func (s *SQLiteStore) SetMemoryItemTTL(ctx context.Context, userID int64, id string, ttlDays *int) error {
	var ttl any
	if ttlDays != nil {
		ttl = *ttlDays
	}
	return s.updateMemoryItem(ctx,
		`UPDATE memory_items SET ttl_days = ?, updated_at = ? WHERE user_id = ? AND id = ?`,
		ttl, nowRFC3339(), userID, id)
}

func (s *SQLiteStore) updateMemoryItem(ctx context.Context, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating memory item: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMemoryItemByTitle removes a user's memory item matched by title,
// optionally narrowed by type and scope.
func (s *SQLiteStore) DeleteMemoryItemByTitle(ctx context.Context, userID int64, title, itemType, scope string) error {
	conds := []string{"user_id = ?", "title = ?"}
	args := []any{userID, title}
	if itemType != "" {
		conds = append(conds, "type = ?")
		args = append(args, itemType)
	}
	if scope != "" {
		conds = append(conds, "scope = ?")
		args = append(args, scope)
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM memory_items WHERE `+strings.Join(conds, " AND "), args...)
	if err != nil {
		return fmt.Errorf("deleting memory item by title: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountMemoryItems reports how many memory items the user has stored.
func (s *SQLiteStore) CountMemoryItems(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memory_items WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting memory items: %w", err)
	}
	return count, nil
}

const memorySelect = `SELECT id, user_id, type, scope, title, value_json, tags_json,
	pinned, ttl_days, sensitivity, confidence, source_json, version, created_at, updated_at
	FROM memory_items`

func scanMemoryItem(scanner interface{ Scan(dest ...any) error }) (*MemoryItem, error) {
	var item MemoryItem
	var pinned int
	var ttlDays sql.NullInt64
	var sourceJSON sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(
		&item.ID, &item.UserID, &item.Type, &item.Scope, &item.Title,
		&item.ValueJSON, &item.TagsJSON, &pinned, &ttlDays,
		&item.Sensitivity, &item.Confidence, &sourceJSON, &item.Version,
		&createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning memory item: %w", err)
	}

	item.Pinned = pinned != 0
	if ttlDays.Valid {
		days := int(ttlDays.Int64)
		item.TTLDays = &days
	}
	item.SourceJSON = sourceJSON.String
	item.CreatedAt = parseTime(createdAt, "memory_items.created_at")
	item.UpdatedAt = parseTime(updatedAt, "memory_items.updated_at")
	return &item, nil
}
