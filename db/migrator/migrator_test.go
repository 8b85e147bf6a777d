package migrator_test

import (
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"

	"github.com/tradespotter/brokerhub/db/migrator"
)

func getMigrationsPath() string {
	_, filename, _, _ := runtime.Caller(0)
	testDir := filepath.Dir(filename)
	return filepath.Join(testDir, "..", "migrations")
}

func TestGetMigrationFiles_Ordering(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"010_b.sql", "002_a.sql", "notes.txt", "001_init.sql"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "999_dir.sql"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	files, err := migrator.GetMigrationFiles(dir)
	if err != nil {
		t.Fatalf("GetMigrationFiles: %v", err)
	}

	want := []string{"001_init.sql", "002_a.sql", "010_b.sql"}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("expected %v, got %v", want, files)
	}
}

func TestGetMigrationFiles_MissingDir(t *testing.T) {
	if _, err := migrator.GetMigrationFiles(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestChecksum(t *testing.T) {
	a := migrator.Checksum([]byte("CREATE TABLE a (id INT);"))
	b := migrator.Checksum([]byte("CREATE TABLE a (id BIGINT);"))

	if len(a) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(a))
	}
	if a == b {
		t.Error("expected different content to produce different checksums")
	}
	if a != migrator.Checksum([]byte("CREATE TABLE a (id INT);")) {
		t.Error("expected checksum to be deterministic")
	}
}

func TestRepositoryMigrations(t *testing.T) {
	files, err := migrator.GetMigrationFiles(getMigrationsPath())
	if err != nil {
		t.Fatalf("GetMigrationFiles: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("expected at least one migration")
	}
	if files[0] != "001_risk_warning_translations.sql" {
		t.Errorf("expected template table to be created first, got %s", files[0])
	}
}
