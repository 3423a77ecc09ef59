package search

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed platform_aliases.yaml
var defaultAliasesYAML []byte

type aliasFile struct {
	Platforms []aliasPlatform `yaml:"platforms"`
}

type aliasPlatform struct {
	IDs     []int    `yaml:"ids"`
	Names   []string `yaml:"names"`
	Aliases []string `yaml:"aliases"`
}

// LoadAliasTable reads the alias table from path, or the built-in table when
// path is empty.
func LoadAliasTable(path string) (*AliasTable, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return ParseAliasTable(defaultAliasesYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alias table: %w", err)
	}
	return ParseAliasTable(data)
}

func DefaultAliasTable() *AliasTable {
	table, err := ParseAliasTable(defaultAliasesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded alias table: %v", err))
	}
	return table
}

func ParseAliasTable(data []byte) (*AliasTable, error) {
	var file aliasFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse alias table: %w", err)
	}
	entries := make([]AliasEntry, 0, len(file.Platforms)*3)
	for i, platform := range file.Platforms {
		// ids drive the remote filter and names the local one; a half entry
		// would filter one source and not the other.
		if len(platform.IDs) == 0 || len(platform.Names) == 0 {
			return nil, fmt.Errorf("alias table: platform %d needs both ids and names", i)
		}
		for _, phrase := range platform.Aliases {
			entries = append(entries, AliasEntry{
				Tokens:        strings.Fields(phrase),
				PlatformIDs:   platform.IDs,
				PlatformNames: platform.Names,
			})
		}
	}
	return NewAliasTable(entries), nil
}
