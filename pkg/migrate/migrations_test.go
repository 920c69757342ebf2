package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	"github.com/angelmondragon/partstrack-backend/pkg/migrate"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}

func TestEnumMigrationListsEveryActivityType(t *testing.T) {
	content := readMigration(t, "*_create_enums.sql")
	assertContains(t, content, []string{
		"CREATE TYPE activity_event_type AS ENUM",
		"'project-allocation'",
		"'project-deallocation'",
		"'create_part'",
		"CREATE TYPE project_status AS ENUM ('in-progress', 'dispatched', 'cancelled')",
		"DROP TYPE IF EXISTS activity_event_type",
	})
}

func TestActivitiesMigrationIsAppendOnly(t *testing.T) {
	content := readMigration(t, "*_create_activities_and_balances.sql")
	assertContains(t, content, []string{
		"CREATE TABLE IF NOT EXISTS activities",
		"qty integer NOT NULL DEFAULT 0 CHECK (qty >= 0)",
		"tags text[] NULL",
		"CREATE TABLE IF NOT EXISTS inventory_balances",
		"BEFORE UPDATE OR DELETE ON activities",
		"DROP TABLE IF EXISTS activities",
	})
}

func TestProjectMigrationConstrainsAllocations(t *testing.T) {
	content := readMigration(t, "*_create_project_tables.sql")
	assertContains(t, content, []string{
		"CREATE TABLE IF NOT EXISTS product_parts",
		"quantity integer NOT NULL CHECK (quantity > 0)",
		"PRIMARY KEY (product_id, part_id)",
		"PRIMARY KEY (project_id, user_id)",
		"DROP TABLE IF EXISTS product_parts",
	})
}

func TestCatalogMigrationHasUniqueSKU(t *testing.T) {
	content := readMigration(t, "*_create_catalog_tables.sql")
	assertContains(t, content, []string{
		"CONSTRAINT ux_parts_sku UNIQUE (sku)",
		"unit_cost numeric(12,2)",
		"CREATE INDEX IF NOT EXISTS idx_parts_category_active",
	})
}

func TestDLQReasonEnumCoversEveryReason(t *testing.T) {
	var all strings.Builder
	for _, pattern := range []string{"*_create_enums.sql", "*_add_unroutable_dlq_reason.sql"} {
		all.WriteString(readMigration(t, pattern))
	}
	for _, reason := range enums.OutboxDLQErrorReasons() {
		if !strings.Contains(all.String(), "'"+string(reason)+"'") {
			t.Errorf("outbox_dlq_error_reason_enum is missing %q", reason)
		}
	}
	up := readMigration(t, "*_add_unroutable_dlq_reason.sql")
	if !strings.HasPrefix(up, "-- +goose NO TRANSACTION") {
		t.Error("ALTER TYPE ... ADD VALUE must run outside a transaction")
	}
}
