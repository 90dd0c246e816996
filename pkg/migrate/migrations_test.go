package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/multierr"

	"github.com/angelmondragon/bookstall-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
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

func TestReviewsMigrationGuardsDuplicates(t *testing.T) {
	assertContains(t, readMigration(t, "create_reviews"), []string{
		"CREATE TABLE IF NOT EXISTS reviews",
		"CHECK (rating BETWEEN 1 AND 5)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_reviews_target_reviewer ON reviews (target_kind, target_id, reviewer_id)",
		"DROP TABLE IF EXISTS reviews",
	})
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_orders"), []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE TABLE IF NOT EXISTS order_items",
		"payment_amount numeric(12,2) NOT NULL",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_payment_transaction",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"CHECK (line_total_cents = unit_price_cents * quantity)",
		"DROP TABLE IF EXISTS order_items",
	})
}

func TestNotificationsMigrationDedupesFanOut(t *testing.T) {
	assertContains(t, readMigration(t, "create_notifications"), []string{
		"CREATE TABLE IF NOT EXISTS notifications",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_notifications_order_book ON notifications (order_id, book_id)",
		"WHERE read = false",
	})
}

func TestCartMigrationUsesCompositeKey(t *testing.T) {
	assertContains(t, readMigration(t, "create_cart_items"), []string{
		"PRIMARY KEY (user_id, book_id)",
		"CHECK (quantity >= 1)",
	})
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	embedded, err := fs.Glob(migrate.Embedded, "migrations/*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob disk: %v", err)
	}
	if len(embedded) == 0 || len(embedded) != len(onDisk) {
		t.Fatalf("expected embedded (%d) to match disk (%d)", len(embedded), len(onDisk))
	}
}

func TestValidateDirAcceptsRepositoryMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
	files, err := migrate.ValidateFS(migrate.Embedded, migrate.EmbeddedDir)
	if err != nil {
		t.Fatalf("ValidateFS embedded: %v", err)
	}
	if files[0].Name != "create_users" {
		t.Fatalf("expected users first, got %q", files[0].Name)
	}
	for i := 1; i < len(files); i++ {
		if files[i].Version <= files[i-1].Version {
			t.Fatalf("versions out of order at %s", files[i].Path)
		}
	}
}

func TestValidateDirReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected error for empty dir")
	}

	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	write("bad-name.sql", "-- +goose Up\n-- +goose Down\n")
	write("20260101000000_first.sql", "-- +goose Up\n-- +goose Down\n")
	write("20260101000000_second.sql", "-- +goose Up\n-- +goose Down\n")
	write("20260101000001_no_down.sql", "-- +goose Up\n")

	err := migrate.ValidateDir(dir)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	if got := len(multierr.Errors(err)); got != 3 {
		t.Fatalf("expected 3 problems, got %d: %v", got, err)
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Book Tags!")
	if err != nil {
		t.Fatalf("CreateSQLMigration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_book_tags.sql") {
		t.Fatalf("unexpected path %q", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatal("expected error for empty slug")
	}
}

func TestCreateSQLMigrationStaysAfterNewest(t *testing.T) {
	dir := t.TempDir()
	future := "29990101000000_from_the_future.sql"
	if err := os.WriteFile(filepath.Join(dir, future), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	path, err := migrate.CreateSQLMigration(dir, "next")
	if err != nil {
		t.Fatalf("CreateSQLMigration: %v", err)
	}
	if filepath.Base(path) != "29990101000001_next.sql" {
		t.Fatalf("unexpected file %q", filepath.Base(path))
	}
}

func TestParseVersion(t *testing.T) {
	if v, err := migrate.ParseVersion("20260301120000"); err != nil || v != 20260301120000 {
		t.Fatalf("unexpected parse result %d %v", v, err)
	}
	if _, err := migrate.ParseVersion("2026"); err == nil {
		t.Fatal("expected error for short version")
	}
}
