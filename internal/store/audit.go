// ABOUTME: Append-only audit log store for tool calls and credential events
// ABOUTME: Entries record who did what against which provider and the outcome

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// AuditStatus is the outcome recorded for an audit entry.
type AuditStatus string

const (
	AuditOK    AuditStatus = "ok"
	AuditError AuditStatus = "error"
)

// AuditEntry is one append-only record of a gateway action.
type AuditEntry struct {
	ID           int64
	UserID       *int64
	Provider     string
	Action       string
	ToolName     string
	RequestJSON  string
	ResponseJSON string
	Status       AuditStatus
	ErrorText    string
	CreatedAt    time.Time
}

// AuditFilter narrows an audit listing. Zero values mean no constraint.
type AuditFilter struct {
	UserID   *int64
	Provider string
	Action   string
	Status   AuditStatus
	Limit    int
	Offset   int
}

// AppendAudit writes one audit entry.
func (s *SQLiteStore) AppendAudit(ctx context.Context, entry *AuditEntry) error {
	if entry.Status == "" {
		entry.Status = AuditOK
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var userID any
	if entry.UserID != nil {
		userID = *entry.UserID
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (user_id, provider, action, tool_name, request_json, response_json, status, error_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID,
		nullString(entry.Provider),
		entry.Action,
		nullString(entry.ToolName),
		nullString(entry.RequestJSON),
		nullString(entry.ResponseJSON),
		string(entry.Status),
		nullString(entry.ErrorText),
		entry.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	entry.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting audit entry id: %w", err)
	}
	return nil
}

// ListAudit returns audit entries matching the filter, newest first. Limit
// defaults to 100 and is capped at 1000.
func (s *SQLiteStore) ListAudit(ctx context.Context, filter AuditFilter) ([]*AuditEntry, error) {
	var conds []string
	var args []any

	if filter.UserID != nil {
		conds = append(conds, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.Provider != "" {
		conds = append(conds, "provider = ?")
		args = append(args, filter.Provider)
	}
	if filter.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT id, user_id, provider, action, tool_name, request_json, response_json, status, error_text, created_at
		FROM audit_logs`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*AuditEntry
	for rows.Next() {
		var e AuditEntry
		var userID sql.NullInt64
		var provider, toolName, requestJSON, responseJSON, errorText sql.NullString
		var status, createdAt string

		err := rows.Scan(&e.ID, &userID, &provider, &e.Action, &toolName,
			&requestJSON, &responseJSON, &status, &errorText, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		if userID.Valid {
			id := userID.Int64
			e.UserID = &id
		}
		e.Provider = provider.String
		e.ToolName = toolName.String
		e.RequestJSON = requestJSON.String
		e.ResponseJSON = responseJSON.String
		e.Status = AuditStatus(status)
		e.ErrorText = errorText.String
		e.CreatedAt = parseTime(createdAt, "audit_logs.created_at")
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}
	return entries, nil
}
