// Package imageurl rewrites remote catalog image references into absolute
// URLs of a requested size.
package imageurl

import (
	"regexp"
	"strings"
)

const (
	SizeCoverBig      = "cover_big"
	SizeCoverBig2x    = "cover_big_2x"
	SizeScreenshotBig = "screenshot_big"
)

var sizeTokenPattern = regexp.MustCompile(`/t_[A-Za-z0-9_]+/`)

// Normalize upgrades a protocol-relative reference to https and swaps the
// first /t_<size>/ path segment for size. An empty size means SizeCoverBig.
func Normalize(raw, size string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, "//") {
		value = "https:" + value
	}
	if size == "" {
		size = SizeCoverBig
	}
	loc := sizeTokenPattern.FindStringIndex(value)
	if loc == nil {
		return value
	}
	return value[:loc[0]] + "/t_" + size + "/" + value[loc[1]:]
}

// NormalizeAll normalizes refs and drops empty and repeated URLs, keeping
// first-seen order.
func NormalizeAll(refs []string, size string) []string {
	if len(refs) == 0 {
		return nil
	}
	out := make([]string, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		value := Normalize(ref, size)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
