package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateMigrationsDir(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestInitSchemaCoversCoreTables(t *testing.T) {
	entries, err := os.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	var initPath string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), "_init_schema.sql") {
			initPath = filepath.Join("migrations", e.Name())
		}
	}
	if initPath == "" {
		t.Fatal("init schema migration not found")
	}

	b, err := os.ReadFile(initPath)
	if err != nil {
		t.Fatalf("read init schema: %v", err)
	}
	sql := string(b)

	for _, table := range []string{
		"users", "categories", "products", "carts", "cart_items",
		"orders", "order_items", "payment_methods", "payments",
		"transactions", "reviews",
	} {
		if !strings.Contains(sql, "CREATE TABLE "+table+" (") {
			t.Fatalf("init schema missing table %q", table)
		}
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Vendor Payouts!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_vendor_payouts.sql") {
		t.Fatalf("unexpected filename %q", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("validate created migration: %v", err)
	}
}
