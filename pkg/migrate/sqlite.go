package migrate

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// sqliteSchema is the portable subset of the goose migrations used for local
// sqlite mode and tests. Enums become text and arrays are stored in their
// Postgres literal form.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS parts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		sku TEXT NOT NULL,
		category_id TEXT NOT NULL REFERENCES categories(id),
		description TEXT,
		unit_cost NUMERIC,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		CONSTRAINT ux_parts_sku UNIQUE (sku)
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_balances (
		part_id TEXT PRIMARY KEY REFERENCES parts(id),
		available INTEGER NOT NULL DEFAULT 0,
		total_in INTEGER NOT NULL DEFAULT 0,
		total_out INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS activities (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		part_id TEXT REFERENCES parts(id),
		qty INTEGER NOT NULL DEFAULT 0 CHECK (qty >= 0),
		actor_name TEXT NOT NULL,
		counterparty_name TEXT,
		purpose TEXT,
		project TEXT,
		project_id TEXT,
		product_id TEXT,
		notes TEXT,
		invoice_number TEXT,
		invoice_date DATETIME,
		timestamp DATETIME,
		tags TEXT,
		category_name TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS app_users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		status TEXT NOT NULL DEFAULT 'in-progress',
		dispatched_at DATETIME,
		dispatch_datetime DATETIME,
		dispatch_from_location TEXT,
		dispatch_to_location TEXT,
		receiving_person_name TEXT,
		cancelled_at DATETIME,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS project_assignees (
		project_id TEXT NOT NULL REFERENCES projects(id),
		user_id TEXT NOT NULL REFERENCES app_users(id),
		created_at DATETIME,
		PRIMARY KEY (project_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id),
		name TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS product_parts (
		product_id TEXT NOT NULL REFERENCES products(id),
		part_id TEXT NOT NULL REFERENCES parts(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		created_at DATETIME,
		updated_at DATETIME,
		PRIMARY KEY (product_id, part_id)
	)`,
	`CREATE TABLE IF NOT EXISTS product_templates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS template_parts (
		template_id TEXT NOT NULL REFERENCES product_templates(id),
		part_id TEXT NOT NULL REFERENCES parts(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		PRIMARY KEY (template_id, part_id)
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json BLOB NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME,
		created_at DATETIME
	)`,
}

// ApplySQLiteSchema creates every table on a sqlite connection.
func ApplySQLiteSchema(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	for _, stmt := range sqliteSchema {
		if err := conn.Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}

// CheckSQLiteParity fails when a table created by the goose migrations in dir
// has no counterpart in the sqlite schema.
func CheckSQLiteParity(dir string) error {
	tables, err := Tables(dir)
	if err != nil {
		return err
	}
	have := map[string]bool{}
	for _, stmt := range sqliteSchema {
		for _, m := range createTableRe.FindAllStringSubmatch(stmt, -1) {
			have[strings.ToLower(m[1])] = true
		}
	}
	var missing []string
	for _, table := range tables {
		if !have[table] {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("sqlite schema is missing %s", strings.Join(missing, ", "))
	}
	return nil
}
