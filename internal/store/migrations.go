package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for all TeamPlan tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS projects (
		id                TEXT PRIMARY KEY,
		org_id            TEXT NOT NULL,
		name              TEXT NOT NULL,
		status            TEXT NOT NULL DEFAULT 'Planning',
		health            TEXT NOT NULL DEFAULT 'On Track',
		type              TEXT NOT NULL DEFAULT '',
		scale             TEXT NOT NULL DEFAULT '',
		start_date        TEXT,
		end_date          TEXT,
		original_end_date TEXT,
		created_at        TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id                   TEXT PRIMARY KEY,
		org_id               TEXT NOT NULL,
		project_id           TEXT NOT NULL,
		title                TEXT NOT NULL,
		status               TEXT NOT NULL DEFAULT 'Planning',
		assignee_id          TEXT NOT NULL DEFAULT '',
		estimate             INTEGER,
		actual               INTEGER NOT NULL DEFAULT 0,
		start_date           TEXT,
		end_date             TEXT,
		predecessor_id       TEXT NOT NULL DEFAULT '',
		linked_initiative_id TEXT NOT NULL DEFAULT '',
		value_saved          INTEGER,
		created_at           TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS resources (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL DEFAULT '',
		team       TEXT NOT NULL DEFAULT '',
		capacity   INTEGER NOT NULL DEFAULT 160,
		active     INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS affiliations (
		id                 TEXT PRIMARY KEY,
		resource_id        TEXT NOT NULL,
		org_id             TEXT NOT NULL,
		is_primary         INTEGER NOT NULL DEFAULT 0,
		allocation_percent INTEGER NOT NULL DEFAULT 100,
		created_at         TEXT NOT NULL,
		UNIQUE (resource_id, org_id)
	)`,

	`CREATE TABLE IF NOT EXISTS initiatives (
		id         TEXT PRIMARY KEY,
		org_id     TEXT NOT NULL,
		name       TEXT NOT NULL,
		status     TEXT NOT NULL DEFAULT '',
		metrics    TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		name          TEXT NOT NULL,
		password_hash TEXT NOT NULL DEFAULT '',
		org_id        TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'standard',
		created_at    TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_projects_org_id ON projects(org_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_org_id ON tasks(org_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_project_id ON tasks(project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_assignee_id ON tasks(assignee_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_predecessor_id ON tasks(predecessor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_affiliations_org_id ON affiliations(org_id)`,
	`CREATE INDEX IF NOT EXISTS idx_affiliations_resource_id ON affiliations(resource_id)`,
	`CREATE INDEX IF NOT EXISTS idx_initiatives_org_id ON initiatives(org_id)`,
}

// migrate executes all schema statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
