package database

import (
	"context"
	"errors"
	"fmt"
)

// SchemaVersion is bumped whenever the statements below change.
const SchemaVersion = 1

// ErrSchemaMismatch indicates the database was created by a different build.
var ErrSchemaMismatch = errors.New("schema version mismatch")

var sqliteSchema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE workflow_templates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		steps TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE workflows (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		current_step_index INTEGER NOT NULL DEFAULT 0 CHECK (current_step_index >= 0),
		step_start_time TEXT NOT NULL,
		is_escalated BOOLEAN NOT NULL DEFAULT 0,
		requester_id TEXT NOT NULL,
		template_id TEXT REFERENCES workflow_templates(id),
		callback_url TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX idx_workflows_sla ON workflows (status, is_escalated)`,
	`CREATE INDEX idx_workflows_requester ON workflows (requester_id)`,
	`CREATE TABLE audit_log_entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		workflow_id TEXT NOT NULL REFERENCES workflows(id),
		action TEXT NOT NULL,
		from_status TEXT,
		to_status TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_email TEXT NOT NULL,
		actor_role TEXT NOT NULL,
		comment TEXT,
		step_index INTEGER,
		occurred_at TEXT NOT NULL,
		prev_hash TEXT NOT NULL,
		hash TEXT NOT NULL
	)`,
	`CREATE INDEX idx_audit_workflow ON audit_log_entries (workflow_id, occurred_at, seq)`,
	`CREATE TRIGGER audit_log_entries_no_update BEFORE UPDATE ON audit_log_entries
	BEGIN
		SELECT RAISE(ABORT, 'audit log entries are append-only');
	END`,
	`CREATE TRIGGER audit_log_entries_no_delete BEFORE DELETE ON audit_log_entries
	BEGIN
		SELECT RAISE(ABORT, 'audit log entries are append-only');
	END`,
	`CREATE TABLE delivery_records (
		id TEXT PRIMARY KEY,
		workflow_id TEXT NOT NULL REFERENCES workflows(id),
		url TEXT NOT NULL,
		event TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL,
		attempt INTEGER NOT NULL DEFAULT 0,
		next_retry_at TEXT NOT NULL,
		last_error TEXT,
		last_status_code INTEGER,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX idx_delivery_due ON delivery_records (status, next_retry_at)`,
	`CREATE TABLE system_log_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		actor_email TEXT,
		actor_role TEXT,
		workflow_id TEXT,
		status TEXT NOT NULL,
		message TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		occurred_at TEXT NOT NULL
	)`,
	`CREATE INDEX idx_system_log_time ON system_log_events (occurred_at)`,
	`CREATE INDEX idx_system_log_workflow ON system_log_events (workflow_id, occurred_at)`,
	`CREATE TABLE schema_version (version INTEGER NOT NULL)`,
}

var postgresSchema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE workflow_templates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		steps TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE workflows (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		current_step_index INTEGER NOT NULL DEFAULT 0 CHECK (current_step_index >= 0),
		step_start_time TEXT NOT NULL,
		is_escalated BOOLEAN NOT NULL DEFAULT FALSE,
		requester_id TEXT NOT NULL,
		template_id TEXT REFERENCES workflow_templates(id),
		callback_url TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX idx_workflows_sla ON workflows (status, is_escalated)`,
	`CREATE INDEX idx_workflows_requester ON workflows (requester_id)`,
	`CREATE TABLE audit_log_entries (
		seq BIGSERIAL PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		workflow_id TEXT NOT NULL REFERENCES workflows(id),
		action TEXT NOT NULL,
		from_status TEXT,
		to_status TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_email TEXT NOT NULL,
		actor_role TEXT NOT NULL,
		comment TEXT,
		step_index INTEGER,
		occurred_at TEXT NOT NULL,
		prev_hash TEXT NOT NULL,
		hash TEXT NOT NULL
	)`,
	`CREATE INDEX idx_audit_workflow ON audit_log_entries (workflow_id, occurred_at, seq)`,
	`CREATE OR REPLACE FUNCTION audit_log_entries_reject_mutation() RETURNS trigger AS $$
	BEGIN
		RAISE EXCEPTION 'audit log entries are append-only';
	END;
	$$ LANGUAGE plpgsql`,
	`CREATE TRIGGER audit_log_entries_immutable BEFORE UPDATE OR DELETE ON audit_log_entries
	FOR EACH ROW EXECUTE FUNCTION audit_log_entries_reject_mutation()`,
	`CREATE TABLE delivery_records (
		id TEXT PRIMARY KEY,
		workflow_id TEXT NOT NULL REFERENCES workflows(id),
		url TEXT NOT NULL,
		event TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL,
		attempt INTEGER NOT NULL DEFAULT 0,
		next_retry_at TEXT NOT NULL,
		last_error TEXT,
		last_status_code INTEGER,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX idx_delivery_due ON delivery_records (status, next_retry_at)`,
	`CREATE TABLE system_log_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		actor_email TEXT,
		actor_role TEXT,
		workflow_id TEXT,
		status TEXT NOT NULL,
		message TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		occurred_at TEXT NOT NULL
	)`,
	`CREATE INDEX idx_system_log_time ON system_log_events (occurred_at)`,
	`CREATE INDEX idx_system_log_workflow ON system_log_events (workflow_id, occurred_at)`,
	`CREATE TABLE schema_version (version INTEGER NOT NULL)`,
}

func (d *Database) schemaStatements() []string {
	if d.Dialect == DialectPostgres {
		return postgresSchema
	}
	return sqliteSchema
}

func (d *Database) schemaTableExists(ctx context.Context) (bool, error) {
	query := "SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'"
	if d.Dialect == DialectPostgres {
		query = "SELECT COUNT(1) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = 'schema_version'"
	}
	var n int
	if err := d.DB.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return false, fmt.Errorf("check schema_version table: %w", err)
	}
	return n > 0, nil
}

// Migrate creates the schema on an empty database and verifies the version
// of an existing one.
func (d *Database) Migrate(ctx context.Context) error {
	exists, err := d.schemaTableExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		var version int
		if err := d.DB.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		if version != SchemaVersion {
			return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, SchemaVersion)
		}
		return nil
	}

	return d.WithTx(ctx, func(ctx context.Context) error {
		for i, stmt := range d.schemaStatements() {
			if _, err := d.Conn(ctx).ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create schema (statement %d): %w", i+1, err)
			}
		}
		if _, err := d.Exec(ctx, "INSERT INTO schema_version (version) VALUES (?)", SchemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	})
}
