package systemlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"go-regula/internal/database"
)

type SystemLogRepository interface {
	Insert(ctx context.Context, e Event) error
	Search(ctx context.Context, q Query) (Page, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]Event, error)
}

type SystemLogRepositoryImpl struct {
	DB *database.Database
}

func NewSQLRepository(db *database.Database) *SystemLogRepositoryImpl {
	return &SystemLogRepositoryImpl{DB: db}
}

const eventColumns = "id, event_type, actor_email, actor_role, workflow_id, status, message, metadata, occurred_at"

func (r *SystemLogRepositoryImpl) Insert(ctx context.Context, e Event) error {
	meta := "{}"
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		meta = string(b)
	}
	_, err := r.DB.Exec(ctx,
		`INSERT INTO system_log_events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.EventType,
		database.NullableString(e.ActorEmail),
		database.NullableString(e.ActorRole),
		database.NullableString(e.WorkflowID),
		e.Status,
		e.Message,
		meta,
		database.FormatTime(e.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("insert system log event: %w", err)
	}
	return nil
}

func (r *SystemLogRepositoryImpl) Search(ctx context.Context, q Query) (Page, error) {
	q = q.Normalize()

	var (
		where []string
		args  []any
	)
	if q.EventType != "" {
		where = append(where, "event_type = ?")
		args = append(args, q.EventType)
	}
	if q.WorkflowID != "" {
		where = append(where, "workflow_id = ?")
		args = append(args, q.WorkflowID)
	}
	if q.ActorRole != "" {
		where = append(where, "actor_role = ?")
		args = append(args, q.ActorRole)
	}
	if q.From != nil {
		where = append(where, "occurred_at >= ?")
		args = append(args, database.FormatTime(*q.From))
	}
	if q.To != nil {
		where = append(where, "occurred_at <= ?")
		args = append(args, database.FormatTime(*q.To))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(1) FROM system_log_events`+clause, args...).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("count system log events: %w", err)
	}

	logs, err := r.list(ctx,
		`SELECT `+eventColumns+` FROM system_log_events`+clause+` ORDER BY occurred_at DESC, id LIMIT ? OFFSET ?`,
		append(args, q.Limit, q.Offset())...)
	if err != nil {
		return Page{}, err
	}
	return newPage(logs, total, q), nil
}

// ListByWorkflow returns newest first.
func (r *SystemLogRepositoryImpl) ListByWorkflow(ctx context.Context, workflowID string) ([]Event, error) {
	return r.list(ctx,
		`SELECT `+eventColumns+` FROM system_log_events WHERE workflow_id = ? ORDER BY occurred_at DESC, id`,
		workflowID)
}

func (r *SystemLogRepositoryImpl) list(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query system log events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var (
			e                       Event
			email, role, workflowID sql.NullString
			status, metadata, ts    string
		)
		if err := rows.Scan(&e.ID, &e.EventType, &email, &role, &workflowID, &status, &e.Message, &metadata, &ts); err != nil {
			return nil, fmt.Errorf("scan system log event: %w", err)
		}
		e.ActorEmail = database.StringPtr(email)
		e.ActorRole = database.StringPtr(role)
		e.WorkflowID = database.StringPtr(workflowID)
		e.Status = Status(status)
		if metadata != "" && metadata != "{}" {
			if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata of %s: %w", e.ID, err)
			}
		}
		if e.Timestamp, err = database.ParseTime(ts); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
