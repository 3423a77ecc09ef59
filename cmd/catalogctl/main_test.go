package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAliasesCommandBuiltin(t *testing.T) {
	out, err := runCommand(t, "aliases", "--builtin")
	if err != nil {
		t.Fatalf("aliases: %v", err)
	}
	var rows []struct {
		Alias       string `json:"alias"`
		PlatformIDs []int  `json:"platformIds"`
	}
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	found := false
	for _, row := range rows {
		if row.Alias == "genesis" && len(row.PlatformIDs) == 1 && row.PlatformIDs[0] == 29 {
			found = true
		}
	}
	if !found {
		t.Fatalf("genesis alias missing from %s", out)
	}
}

func TestAliasesCommandFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	data := []byte("platforms:\n  - ids: [7]\n    names: [\"Test Console\"]\n    aliases: [\"tc\", \"test console\"]\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := runCommand(t, "aliases", "--aliases", path)
	if err != nil {
		t.Fatalf("aliases: %v", err)
	}
	var rows []map[string]any
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 || rows[0]["alias"] != "test console" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestMaterializeRejectsBadID(t *testing.T) {
	if _, err := runCommand(t, "materialize", "not-a-number"); err == nil {
		t.Fatalf("expected error for invalid id")
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	if _, err := runCommand(t, "search"); err == nil {
		t.Fatalf("expected error without query")
	}
}
