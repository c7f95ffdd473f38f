package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/angelmondragon/rxexchange-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected exactly one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks ...string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestSupplyListingsMigrationGuardsQuantities(t *testing.T) {
	assertContains(t, readMigration(t, "create_supply_listings"),
		"CREATE TABLE IF NOT EXISTS supply_listings",
		"CHECK (available_quantity >= 0)",
		"CHECK (min_order_quantity >= 1)",
		"status listing_status NOT NULL DEFAULT 'active'",
		"DROP TABLE IF EXISTS supply_listings",
	)
}

func TestOrdersMigrationGuardsInvariants(t *testing.T) {
	assertContains(t, readMigration(t, "create_orders"),
		"CREATE TABLE IF NOT EXISTS orders",
		"CHECK (buyer_tenant_id <> supplier_tenant_id)",
		"CONSTRAINT orders_order_number_key UNIQUE (order_number)",
		"CREATE TABLE IF NOT EXISTS order_items",
		"CHECK (quantity > 0)",
		"REFERENCES orders(id) ON DELETE RESTRICT",
		"WHERE status = 'pending'",
		"DROP TABLE IF EXISTS order_items",
	)
}

func TestEnumMigrationListsEveryOrderStatus(t *testing.T) {
	content := readMigration(t, "create_enums")
	for _, status := range []string{
		"pending", "confirmed", "shipped", "in_transit", "delivered",
		"cancelled_by_pharmacy", "rejected_by_supplier", "expired_cancelled", "cancelled_by_supplier",
	} {
		assertContains(t, content, "'"+status+"'")
	}
}

func TestOutboxMigrationIndexesUnpublished(t *testing.T) {
	assertContains(t, readMigration(t, "create_outbox_events"),
		"CREATE TABLE IF NOT EXISTS outbox_events",
		"payload jsonb NOT NULL",
		"WHERE published_at IS NULL",
	)
}

func TestValidateDirAcceptsRepositoryMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "orders.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected bad filename to be rejected")
	}

	dir = t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "20260101000000_orders.sql"), []byte("-- +goose Up\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected missing down section to be rejected")
	}
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Drug Index!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_drug_index.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatal("expected empty sanitized name to fail")
	}
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	if err := migrate.ValidateFS(migrate.Embedded()); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
	embedded, err := fs.Glob(migrate.Embedded(), "*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob disk: %v", err)
	}
	if len(embedded) != len(onDisk) || len(embedded) == 0 {
		t.Fatalf("expected embedded (%d) to mirror disk (%d)", len(embedded), len(onDisk))
	}
}

func TestValidateRejectsSectionsOutOfOrder(t *testing.T) {
	source := fstest.MapFS{
		"20260101000000_orders.sql": {Data: []byte("-- +goose Down\nDROP TABLE x;\n-- +goose Up\nCREATE TABLE x();\n")},
	}
	if err := migrate.ValidateFS(source); err == nil {
		t.Fatal("expected down-before-up to be rejected")
	}

	source = fstest.MapFS{
		"20260101000000_orders.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n")},
	}
	if err := migrate.ValidateFS(source); err == nil {
		t.Fatal("expected unbalanced statement markers to be rejected")
	}
}

func TestSourceSelectsEmbeddedForDefaultDir(t *testing.T) {
	if _, err := fs.Stat(migrate.Source(migrate.DefaultDir), "20260101000200_create_orders.sql"); err != nil {
		t.Fatalf("expected orders migration in embedded source: %v", err)
	}
}
