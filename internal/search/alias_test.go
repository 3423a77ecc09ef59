package search

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func testAliasTable() *AliasTable {
	return NewAliasTable([]AliasEntry{
		{Tokens: []string{"genesis"}, PlatformIDs: []int{29}, PlatformNames: []string{"Sega Mega Drive/Genesis"}},
		{Tokens: []string{"nintendo"}, PlatformIDs: []int{999}, PlatformNames: []string{"Nintendo Generic"}},
		{Tokens: []string{"switch"}, PlatformIDs: []int{130}, PlatformNames: []string{"Nintendo Switch"}},
		{Tokens: []string{"sega", "genesis"}, PlatformIDs: []int{29}, PlatformNames: []string{"Sega Mega Drive/Genesis"}},
		{Tokens: []string{"nintendo", "switch"}, PlatformIDs: []int{130}, PlatformNames: []string{"Nintendo Switch"}},
		{Tokens: []string{"PS5"}, PlatformIDs: []int{167}, PlatformNames: []string{"PlayStation 5"}},
	})
}

func TestResolveSonicGenesis(t *testing.T) {
	query := testAliasTable().Resolve("Sonic Genesis")

	if query.Canonical != "sonic genesis" {
		t.Fatalf("unexpected canonical: %q", query.Canonical)
	}
	if query.FreeText != "sonic" {
		t.Fatalf("unexpected free text: %q", query.FreeText)
	}
	if !reflect.DeepEqual(query.Tokens, []string{"sonic"}) {
		t.Fatalf("unexpected tokens: %v", query.Tokens)
	}
	if !reflect.DeepEqual(query.PlatformIDs, []int{29}) {
		t.Fatalf("unexpected platform ids: %v", query.PlatformIDs)
	}
	if !reflect.DeepEqual(query.PlatformNames, []string{"Sega Mega Drive/Genesis"}) {
		t.Fatalf("unexpected platform names: %v", query.PlatformNames)
	}
	if query.PlatformOnly() {
		t.Fatalf("query with free text must not be platform-only")
	}
}

func TestResolveLongestMatchFirst(t *testing.T) {
	query := testAliasTable().Resolve("zelda nintendo switch")

	if query.FreeText != "zelda" {
		t.Fatalf("unexpected free text: %q", query.FreeText)
	}
	// "nintendo" alone must not claim the position already used by "nintendo switch".
	if !reflect.DeepEqual(query.PlatformIDs, []int{130}) {
		t.Fatalf("expected only the two-word alias to match, got %v", query.PlatformIDs)
	}
}

func TestResolveShorterAliasUsesRemainingPositions(t *testing.T) {
	query := testAliasTable().Resolve("nintendo switch nintendo")

	if query.FreeText != "" {
		t.Fatalf("expected every token consumed, got %q", query.FreeText)
	}
	if !reflect.DeepEqual(query.PlatformIDs, []int{130, 999}) {
		t.Fatalf("unexpected platform ids: %v", query.PlatformIDs)
	}
	if !query.PlatformOnly() {
		t.Fatalf("expected platform-only query")
	}
}

func TestResolveRepeatedAliasAndDuplicateTokens(t *testing.T) {
	query := testAliasTable().Resolve("mega ps5 mega man ps5")

	if query.FreeText != "mega mega man" {
		t.Fatalf("unexpected free text: %q", query.FreeText)
	}
	if !reflect.DeepEqual(query.Tokens, []string{"mega", "man"}) {
		t.Fatalf("unexpected tokens: %v", query.Tokens)
	}
	if !reflect.DeepEqual(query.PlatformIDs, []int{167}) {
		t.Fatalf("unexpected platform ids: %v", query.PlatformIDs)
	}
}

func TestResolveWithoutAliases(t *testing.T) {
	query := NewAliasTable(nil).Resolve("  Final Fantasy VII  ")
	if query.FreeText != "final fantasy vii" {
		t.Fatalf("unexpected free text: %q", query.FreeText)
	}
	if query.HasPlatformFilter() {
		t.Fatalf("expected no platform filter")
	}

	var nilTable *AliasTable
	if got := nilTable.Resolve("Chrono Trigger").FreeText; got != "chrono trigger" {
		t.Fatalf("nil table should still normalize, got %q", got)
	}
}

func TestNewAliasTableOrdersLongestFirstAndDropsInvalid(t *testing.T) {
	table := NewAliasTable([]AliasEntry{
		{Tokens: []string{"snes"}, PlatformIDs: []int{19}},
		{Tokens: []string{"  "}, PlatformIDs: []int{1}},
		{Tokens: []string{"no", "targets"}},
		{Tokens: []string{"Super Nintendo"}, PlatformIDs: []int{19}},
		{Tokens: []string{"sfc"}, PlatformIDs: []int{58}},
	})

	entries := table.Entries()
	got := make([]string, 0, len(entries))
	for _, entry := range entries {
		got = append(got, entry.Phrase())
	}
	want := []string{"super nintendo", "snes", "sfc"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected order: got %v want %v", got, want)
	}

	entries[0].Tokens[0] = "mutated"
	if table.Entries()[0].Tokens[0] != "super" {
		t.Fatalf("Entries must return a copy")
	}
}

func TestDefaultAliasTable(t *testing.T) {
	table := DefaultAliasTable()
	if table.Len() == 0 {
		t.Fatalf("expected embedded aliases")
	}

	query := table.Resolve("Sonic the Hedgehog Sega Genesis")
	if query.FreeText != "sonic the hedgehog" {
		t.Fatalf("unexpected free text: %q", query.FreeText)
	}
	if !reflect.DeepEqual(query.PlatformIDs, []int{29}) {
		t.Fatalf("unexpected platform ids: %v", query.PlatformIDs)
	}

	query = table.Resolve("super famicom zelda")
	if !reflect.DeepEqual(query.PlatformIDs, []int{19, 58}) {
		t.Fatalf("super famicom must not also match famicom, got %v", query.PlatformIDs)
	}
}

func TestLoadAliasTableFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	content := `platforms:
  - ids: [130]
    names: ["Nintendo Switch"]
    aliases: ["switch", "NSW"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	table, err := LoadAliasTable(path)
	if err != nil {
		t.Fatalf("LoadAliasTable: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", table.Len())
	}
	if got := table.Resolve("metroid nsw").PlatformNames; !reflect.DeepEqual(got, []string{"Nintendo Switch"}) {
		t.Fatalf("unexpected platform names: %v", got)
	}
}

func TestLoadAliasTableErrors(t *testing.T) {
	if _, err := LoadAliasTable(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := ParseAliasTable([]byte("platforms: [")); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := ParseAliasTable([]byte("platforms:\n  - aliases: [\"x\"]\n")); err == nil {
		t.Fatalf("expected error for platform without targets")
	}
	for name, doc := range map[string]string{
		"ids only":   "platforms:\n  - ids: [167]\n    aliases: [\"ps5\"]\n",
		"names only": "platforms:\n  - names: [\"PlayStation 5\"]\n    aliases: [\"ps5\"]\n",
	} {
		if _, err := ParseAliasTable([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error, a half entry would filter only one source", name)
		}
	}
}

func TestPlatformOnlyRequiresFilter(t *testing.T) {
	if (NormalizedQuery{}).PlatformOnly() {
		t.Fatalf("empty query without platforms is not platform-only")
	}
	if !(NormalizedQuery{PlatformIDs: []int{167}}).PlatformOnly() {
		t.Fatalf("query consumed entirely by an alias is platform-only")
	}
	if (NormalizedQuery{FreeText: "doom", PlatformIDs: []int{167}}).PlatformOnly() {
		t.Fatalf("query with free text is not platform-only")
	}
}
