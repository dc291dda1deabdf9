package catalog

import (
	"strconv"
	"strings"
)

// listKeyParts produces deterministic cache key parts for a listing.
func listKeyParts(f ListFilter) []string {
	kind := string(f.Kind)
	if kind == "" {
		kind = "all"
	}
	tag := strings.ToLower(strings.TrimSpace(f.Tag))
	if tag == "" {
		tag = "all"
	}
	return []string{
		"list",
		"kind=" + kind,
		"tag=" + tag,
		"page=" + strconv.Itoa(f.Page),
		"limit=" + strconv.Itoa(f.Limit),
	}
}

func productKeyParts(slug string) []string {
	return []string{"product", strings.ToLower(slug)}
}
