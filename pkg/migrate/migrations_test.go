package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := ValidateEmbedded(); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
}

func TestValidateFSRejectsBadFiles(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"bad name": {
			"m/create_users.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"duplicate version": {
			"m/20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
			"m/20260101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"missing down": {
			"m/20260101000000_a.sql": {Data: []byte("-- +goose Up\n")},
		},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			if err := ValidateFS(fsys, "m"); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestMigrationsCoverSchemaInvariants(t *testing.T) {
	all := readAllMigrations(t)
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE TABLE IF NOT EXISTS order_items",
		"CONSTRAINT invoices_order_id_key UNIQUE (order_id)",
		"CONSTRAINT invoices_invoice_number_key UNIQUE (invoice_number)",
		"CONSTRAINT carts_owner_xor CHECK ((user_id IS NULL) <> (session_id IS NULL))",
		"CREATE TABLE IF NOT EXISTS warranty_claims",
		"CREATE TABLE IF NOT EXISTS installment_plans",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_outbox_events_event_aggregate",
		"CREATE TABLE IF NOT EXISTS company_settings",
	} {
		if !strings.Contains(all, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Claim Photos!")
	if err != nil {
		t.Fatalf("CreateSQLMigration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_claim_photos.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := ValidateFS(os.DirFS(dir), "."); err != nil {
		t.Fatalf("created migration invalid: %v", err)
	}
	if _, err := CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatal("expected error for empty sanitized name")
	}
}

func readAllMigrations(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	err := fs.WalkDir(embedded, embeddedDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".sql" {
			return err
		}
		data, err := fs.ReadFile(embedded, path)
		if err != nil {
			return err
		}
		b.Write(data)
		return nil
	})
	if err != nil {
		t.Fatalf("walk migrations: %v", err)
	}
	return b.String()
}
