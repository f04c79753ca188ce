package llm

import (
	"regexp"
)

var thinkTags = regexp.MustCompile(`(?s)<think>.*?</think>`)

// RemoveThinkTags removes <think> tags and everything in between them from a
// string. Reasoning models emit them ahead of the answer; training records
// must not carry them.
func RemoveThinkTags(input string) string {
	return thinkTags.ReplaceAllString(input, "")
}
