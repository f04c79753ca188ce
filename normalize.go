package gocodeinstruct

import (
	"regexp"
	"strings"
)

var (
	whitespaceRuns  = regexp.MustCompile(`\s+`)
	disallowedChars = regexp.MustCompile(`[^\w\->\s:/.]`)
)

// CleanUniqueElements normalizes a comma-delimited string into a deduplicated
// comma-joined string. Whitespace runs are collapsed, every element is trimmed
// and stripped of characters outside [A-Za-z0-9_\-> .:/], and duplicate
// elements are removed. The order of the returned elements is unspecified;
// callers must treat the result as a set.
func CleanUniqueElements(input string) string {
	collapsed := whitespaceRuns.ReplaceAllString(input, " ")

	seen := make(map[string]struct{})
	elements := make([]string, 0)
	for _, element := range strings.Split(collapsed, ",") {
		cleaned := disallowedChars.ReplaceAllString(strings.TrimSpace(element), "")
		if _, ok := seen[cleaned]; ok {
			continue
		}
		seen[cleaned] = struct{}{}
		elements = append(elements, cleaned)
	}

	return strings.Join(elements, ", ")
}
