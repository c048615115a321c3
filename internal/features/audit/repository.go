package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go-regula/internal/common/models"
	"go-regula/internal/database"
)

// AuditRepository is append-only.
type AuditRepository interface {
	Insert(ctx context.Context, entry *Entry) error
	ListByWorkflow(ctx context.Context, workflowID string) ([]Entry, error)
	ListChain(ctx context.Context, workflowID string) ([]Entry, error)
	LastHash(ctx context.Context, workflowID string) (string, error)
}

type AuditRepositoryImpl struct {
	DB *database.Database
}

func NewAuditRepository(db *database.Database) AuditRepository {
	return &AuditRepositoryImpl{DB: db}
}

const entryColumns = "seq, id, workflow_id, action, from_status, to_status, actor_id, actor_email, actor_role, comment, step_index, occurred_at, prev_hash, hash"

func (r *AuditRepositoryImpl) Insert(ctx context.Context, e *Entry) error {
	_, err := r.DB.Exec(ctx,
		`INSERT INTO audit_log_entries (
			id, workflow_id, action, from_status, to_status, actor_id, actor_email, actor_role,
			comment, step_index, occurred_at, prev_hash, hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.WorkflowID,
		e.Action,
		database.NullableString(e.FromStatus),
		e.ToStatus,
		e.PerformedBy.ID,
		e.PerformedBy.Email,
		e.PerformedBy.Role,
		database.NullableString(e.Comment),
		database.NullableInt(e.StepIndex),
		database.FormatTime(e.Timestamp),
		e.PrevHash,
		e.Hash,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	row := r.DB.QueryRow(ctx, `SELECT seq FROM audit_log_entries WHERE id = ?`, e.ID)
	if err := row.Scan(&e.Seq); err != nil {
		return fmt.Errorf("read audit seq: %w", err)
	}
	return nil
}

// ListByWorkflow returns the trail in chronological order; storage order
// breaks ties between equal timestamps.
func (r *AuditRepositoryImpl) ListByWorkflow(ctx context.Context, workflowID string) ([]Entry, error) {
	return r.list(ctx, `SELECT `+entryColumns+` FROM audit_log_entries WHERE workflow_id = ? ORDER BY occurred_at ASC, seq ASC`, workflowID)
}

// ListChain returns the trail in storage order, which is the hash chain order.
func (r *AuditRepositoryImpl) ListChain(ctx context.Context, workflowID string) ([]Entry, error) {
	return r.list(ctx, `SELECT `+entryColumns+` FROM audit_log_entries WHERE workflow_id = ? ORDER BY seq ASC`, workflowID)
}

func (r *AuditRepositoryImpl) LastHash(ctx context.Context, workflowID string) (string, error) {
	var hash string
	err := r.DB.QueryRow(ctx,
		`SELECT hash FROM audit_log_entries WHERE workflow_id = ? ORDER BY seq DESC LIMIT 1`, workflowID,
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return GenesisHash, nil
	}
	if err != nil {
		return "", fmt.Errorf("read chain tail: %w", err)
	}
	return hash, nil
}

func (r *AuditRepositoryImpl) list(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func scanEntry(row database.RowScanner) (*Entry, error) {
	var (
		e         Entry
		from      sql.NullString
		comment   sql.NullString
		stepIndex sql.NullInt64
		role      string
		ts        string
	)
	if err := row.Scan(
		&e.Seq, &e.ID, &e.WorkflowID, &e.Action, &from, &e.ToStatus,
		&e.PerformedBy.ID, &e.PerformedBy.Email, &role,
		&comment, &stepIndex, &ts, &e.PrevHash, &e.Hash,
	); err != nil {
		return nil, err
	}
	e.PerformedBy.Role = models.Role(role)
	e.FromStatus = database.StringPtr(from)
	e.Comment = database.StringPtr(comment)
	e.StepIndex = database.IntPtr(stepIndex)

	var err error
	if e.Timestamp, err = database.ParseTime(ts); err != nil {
		return nil, err
	}
	return &e, nil
}
