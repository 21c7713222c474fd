package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/macinv/internal/core"
)

func TestPrintImportResult(t *testing.T) {
	var buf bytes.Buffer
	printImportResult(&buf, &core.ImportResult{
		Summary: core.ImportSummary{TotalRows: 3, ParsedValid: 2, Inserted: 1, Duplicates: 1, Failed: 1},
		Duplicates: []core.DuplicateDevice{
			{Row: 3, Mac: "AA:BB:CC:DD:EE:FF", Message: "Duplicado: ya existe en AP: Bonanza 1, punto: Garita"},
		},
		Failed: []core.FailedRow{{Row: 4, Errors: []string{"mac: invalid", "area: unknown"}}},
	})

	want := []string{
		"Rows: 3  Valid: 2  Inserted: 1  Duplicates: 1  Failed: 1",
		"row 3 duplicate AA:BB:CC:DD:EE:FF: Duplicado",
		"row 4: mac: invalid; area: unknown",
	}
	for _, w := range want {
		if !strings.Contains(buf.String(), w) {
			t.Errorf("output missing %q:\n%s", w, buf.String())
		}
	}
}

func TestWriteOutput(t *testing.T) {
	dir := t.TempDir()
	cmd := &cobra.Command{}
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	path := filepath.Join(dir, "out.xlsx")
	if err := writeOutput(cmd, path, "ignored.xlsx", []byte("data")); err != nil {
		t.Fatalf("writeOutput: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "data" {
		t.Errorf("file = %q, %v", got, err)
	}
	if !strings.Contains(stderr.String(), "wrote "+path) {
		t.Errorf("stderr = %q", stderr.String())
	}

	if err := writeOutput(cmd, "-", "ignored.xlsx", []byte("raw")); err != nil {
		t.Fatalf("writeOutput stdout: %v", err)
	}
	if stdout.String() != "raw" {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"template", "export", "import"} {
		c, _, err := rootCmd.Find([]string{name})
		if err != nil || c.Name() != name {
			t.Errorf("command %q not registered: %v", name, err)
		}
	}
	if err := newImportCmd().Args(nil, nil); err == nil {
		t.Error("import should require a file argument")
	}
}
