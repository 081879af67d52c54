package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/talkshelf/internal/core"
)

const talksCSV = "Title,Description,Duration,Level\n" +
	"Talk A,First,30,Beginner\n" +
	",No title,20,Advanced\n" +
	"Talk B,Second,45,Intermediate\n"

// useSQLite points both buckets at a fresh sqlite file so state survives
// between invocations.
func useSQLite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("LOCAL_BACKEND", "sqlite")
	t.Setenv("SYNC_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "talkshelf.db"))
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := execute(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestImportListExport(t *testing.T) {
	dir := useSQLite(t)

	path := filepath.Join(dir, "talks.csv")
	if err := os.WriteFile(path, []byte(talksCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "import", "--preview", path)
	if err != nil {
		t.Fatalf("import --preview error = %v", err)
	}
	if !strings.Contains(out, "would import 2 talks") {
		t.Errorf("preview output = %q", out)
	}

	out, err = run(t, "import", path)
	if err != nil {
		t.Fatalf("import error = %v", err)
	}
	if !strings.Contains(out, "imported 2 talks, skipped 0 duplicates, rejected 1 rows") {
		t.Errorf("import output = %q", out)
	}
	if !strings.Contains(out, "row 3: required field title is empty") {
		t.Errorf("import output missing rejected row: %q", out)
	}

	// Importing again skips both talks as duplicates.
	out, err = run(t, "import", path)
	if err != nil {
		t.Fatalf("second import error = %v", err)
	}
	if !strings.Contains(out, "imported 0 talks, skipped 2 duplicates") {
		t.Errorf("second import output = %q", out)
	}

	out, err = run(t, "list", "--level", "Beginner")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	if !strings.Contains(out, "Talk A") || strings.Contains(out, "Talk B") {
		t.Errorf("list output = %q", out)
	}

	exportPath := filepath.Join(dir, "out", "talks.csv")
	if err := os.MkdirAll(filepath.Dir(exportPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "export", "csv", "-o", exportPath); err != nil {
		t.Fatalf("export error = %v", err)
	}
	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "Talk A") || !strings.Contains(string(data), "Talk B") {
		t.Errorf("export = %q", data)
	}

	out, err = run(t, "history")
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if strings.Count(out, "talks.csv") != 2 {
		t.Errorf("history output = %q, want two talks.csv imports", out)
	}
}

func TestImport_UnknownFormat(t *testing.T) {
	dir := useSQLite(t)
	path := filepath.Join(dir, "talks.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := run(t, "import", path)
	if !errors.Is(err, core.ErrUnknownFormat) {
		t.Errorf("import error = %v, want ErrUnknownFormat", err)
	}
}

func TestExport_InvalidKind(t *testing.T) {
	useSQLite(t)
	if _, err := run(t, "export", "yaml"); err == nil {
		t.Error("export yaml succeeded, want error")
	}
}

func TestReset(t *testing.T) {
	dir := useSQLite(t)
	path := filepath.Join(dir, "talks.csv")
	if err := os.WriteFile(path, []byte(talksCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "import", path); err != nil {
		t.Fatalf("import error = %v", err)
	}

	if _, err := run(t, "reset"); err == nil {
		t.Error("reset without --yes succeeded, want error")
	}

	out, err := run(t, "reset", "--yes")
	if err != nil {
		t.Fatalf("reset error = %v", err)
	}
	if strings.TrimSpace(out) != "deleted 2 talks" {
		t.Errorf("reset output = %q", out)
	}

	out, err = run(t, "list", "--json")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("list --json = %q, want []", out)
	}
}
