package search

import (
	"sort"
	"strings"

	"gamecatalog/internal/textnorm"
)

// AliasEntry maps a phrase such as "sega genesis" to the platforms it names,
// in both remote-id and local-name form. The remote search filters on
// PlatformIDs and the local store on PlatformNames.
type AliasEntry struct {
	Tokens        []string
	PlatformIDs   []int
	PlatformNames []string
}

// Phrase is the canonical alias text, tokens joined by single spaces.
func (e AliasEntry) Phrase() string {
	return strings.Join(e.Tokens, " ")
}

// AliasTable is built once at startup and never mutated afterwards.
type AliasTable struct {
	entries []AliasEntry
}

// NormalizedQuery is the per-request output of the normalizer and alias resolver.
type NormalizedQuery struct {
	Canonical     string
	FreeText      string
	Tokens        []string
	PlatformIDs   []int
	PlatformNames []string
}

// PlatformOnly reports whether every token was consumed by a platform alias.
func (q NormalizedQuery) PlatformOnly() bool {
	return q.FreeText == "" && q.HasPlatformFilter()
}

// HasPlatformFilter reports whether any alias matched.
func (q NormalizedQuery) HasPlatformFilter() bool {
	return len(q.PlatformIDs) > 0 || len(q.PlatformNames) > 0
}

// NewAliasTable canonicalizes every alias phrase with the query normalizer and
// orders entries longest first. Entries of equal length keep their input order.
func NewAliasTable(entries []AliasEntry) *AliasTable {
	clean := make([]AliasEntry, 0, len(entries))
	for _, entry := range entries {
		tokens := textnorm.Tokens(textnorm.Normalize(strings.Join(entry.Tokens, " ")))
		if len(tokens) == 0 {
			continue
		}
		if len(entry.PlatformIDs) == 0 && len(entry.PlatformNames) == 0 {
			continue
		}
		clean = append(clean, AliasEntry{
			Tokens:        tokens,
			PlatformIDs:   append([]int(nil), entry.PlatformIDs...),
			PlatformNames: trimNames(entry.PlatformNames),
		})
	}
	sort.SliceStable(clean, func(i, j int) bool {
		return len(clean[i].Tokens) > len(clean[j].Tokens)
	})
	return &AliasTable{entries: clean}
}

// Entries returns a copy of the table in match order.
func (t *AliasTable) Entries() []AliasEntry {
	if t == nil {
		return nil
	}
	out := make([]AliasEntry, 0, len(t.entries))
	for _, entry := range t.entries {
		out = append(out, AliasEntry{
			Tokens:        append([]string(nil), entry.Tokens...),
			PlatformIDs:   append([]int(nil), entry.PlatformIDs...),
			PlatformNames: append([]string(nil), entry.PlatformNames...),
		})
	}
	return out
}

// Len is the number of usable alias phrases.
func (t *AliasTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Resolve normalizes raw and strips platform phrases out of its token stream.
// A position consumed by one alias is never claimed by a later, shorter one.
func (t *AliasTable) Resolve(raw string) NormalizedQuery {
	canonical := textnorm.Normalize(raw)
	tokens := textnorm.Tokens(canonical)
	consumed := make([]bool, len(tokens))
	ids := make(map[int]struct{})
	names := make(map[string]struct{})

	if t != nil {
		for _, entry := range t.entries {
			width := len(entry.Tokens)
			for start := 0; start+width <= len(tokens); start++ {
				if !windowMatches(tokens, consumed, start, entry.Tokens) {
					continue
				}
				for i := start; i < start+width; i++ {
					consumed[i] = true
				}
				for _, id := range entry.PlatformIDs {
					ids[id] = struct{}{}
				}
				for _, name := range entry.PlatformNames {
					names[name] = struct{}{}
				}
				start += width - 1
			}
		}
	}

	remaining := make([]string, 0, len(tokens))
	unique := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for i, token := range tokens {
		if consumed[i] {
			continue
		}
		remaining = append(remaining, token)
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		unique = append(unique, token)
	}

	return NormalizedQuery{
		Canonical:     canonical,
		FreeText:      strings.Join(remaining, " "),
		Tokens:        unique,
		PlatformIDs:   sortedInts(ids),
		PlatformNames: sortedStrings(names),
	}
}

func windowMatches(tokens []string, consumed []bool, start int, phrase []string) bool {
	for offset, word := range phrase {
		index := start + offset
		if consumed[index] || tokens[index] != word {
			return false
		}
	}
	return true
}

func trimNames(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func sortedInts(set map[int]struct{}) []int {
	if len(set) == 0 {
		return nil
	}
	out := make([]int, 0, len(set))
	for value := range set {
		out = append(out, value)
	}
	sort.Ints(out)
	return out
}

func sortedStrings(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for value := range set {
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}
