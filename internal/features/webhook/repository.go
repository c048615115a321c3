package webhook

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go-regula/internal/database"
)

type DeliveryRepository interface {
	Insert(ctx context.Context, rec *DeliveryRecord) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]DeliveryRecord, error)
	UpdateOutcome(ctx context.Context, rec *DeliveryRecord) error
	ListRecent(ctx context.Context, limit int) ([]RecentDelivery, error)
	CountByStatus(ctx context.Context) (map[DeliveryStatus]int, error)
}

type DeliveryRepositoryImpl struct {
	DB *database.Database
}

func NewDeliveryRepository(db *database.Database) DeliveryRepository {
	return &DeliveryRepositoryImpl{DB: db}
}

const deliveryColumns = "d.id, d.workflow_id, d.url, d.event, d.payload, d.status, d.attempt, d.next_retry_at, d.last_error, d.last_status_code, d.created_at, d.updated_at"

func (r *DeliveryRepositoryImpl) Insert(ctx context.Context, rec *DeliveryRecord) error {
	_, err := r.DB.Exec(ctx,
		`INSERT INTO delivery_records (
			id, workflow_id, url, event, payload, status, attempt, next_retry_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.WorkflowID,
		rec.URL,
		rec.Event,
		string(rec.Payload),
		rec.Status,
		rec.Attempt,
		database.FormatTime(rec.NextRetryAt),
		database.FormatTime(rec.CreatedAt),
		database.FormatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert delivery record: %w", err)
	}
	return nil
}

// ListDue returns retryable records whose next attempt is due, oldest first.
func (r *DeliveryRepositoryImpl) ListDue(ctx context.Context, now time.Time, limit int) ([]DeliveryRecord, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+deliveryColumns+` FROM delivery_records d
		WHERE d.status IN (?, ?) AND d.next_retry_at <= ?
		ORDER BY d.next_retry_at ASC, d.created_at ASC
		LIMIT ?`,
		StatusPending, StatusFailed, database.FormatTime(now), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list due deliveries: %w", err)
	}
	defer rows.Close()

	records := []DeliveryRecord{}
	for rows.Next() {
		rec, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery record: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (r *DeliveryRepositoryImpl) UpdateOutcome(ctx context.Context, rec *DeliveryRecord) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE delivery_records
		SET status = ?, attempt = ?, next_retry_at = ?, last_error = ?, last_status_code = ?, updated_at = ?
		WHERE id = ?`,
		rec.Status,
		rec.Attempt,
		database.FormatTime(rec.NextRetryAt),
		database.NullableString(rec.LastError),
		database.NullableInt(rec.LastStatusCode),
		database.FormatTime(rec.UpdatedAt),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update delivery record %s: %w", rec.ID, err)
	}
	return nil
}

func (r *DeliveryRepositoryImpl) ListRecent(ctx context.Context, limit int) ([]RecentDelivery, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+deliveryColumns+`, COALESCE(w.title, '') FROM delivery_records d
		LEFT JOIN workflows w ON w.id = d.workflow_id
		ORDER BY d.created_at DESC, d.id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent deliveries: %w", err)
	}
	defer rows.Close()

	out := []RecentDelivery{}
	for rows.Next() {
		var title string
		rec, err := scanDelivery(rows, &title)
		if err != nil {
			return nil, fmt.Errorf("scan delivery record: %w", err)
		}
		out = append(out, RecentDelivery{DeliveryRecord: *rec, WorkflowTitle: title})
	}
	return out, rows.Err()
}

func (r *DeliveryRepositoryImpl) CountByStatus(ctx context.Context) (map[DeliveryStatus]int, error) {
	rows, err := r.DB.Query(ctx, `SELECT status, COUNT(1) FROM delivery_records GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count deliveries: %w", err)
	}
	defer rows.Close()

	counts := map[DeliveryStatus]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[DeliveryStatus(status)] = n
	}
	return counts, rows.Err()
}

func scanDelivery(row database.RowScanner, extra ...any) (*DeliveryRecord, error) {
	var (
		rec                     DeliveryRecord
		payload, status         string
		nextRetry, created, upd string
		lastError               sql.NullString
		lastCode                sql.NullInt64
	)
	dest := []any{
		&rec.ID, &rec.WorkflowID, &rec.URL, &rec.Event, &payload, &status, &rec.Attempt,
		&nextRetry, &lastError, &lastCode, &created, &upd,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	rec.Payload = []byte(payload)
	rec.Status = DeliveryStatus(status)
	rec.LastError = database.StringPtr(lastError)
	rec.LastStatusCode = database.IntPtr(lastCode)

	var err error
	if rec.NextRetryAt, err = database.ParseTime(nextRetry); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = database.ParseTime(created); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = database.ParseTime(upd); err != nil {
		return nil, err
	}
	return &rec, nil
}
