package utils

import "strings"

// TruncateForLog builds the transcript previews written to debug logs by the
// normalizer and the evaluator. Runs of whitespace, line breaks included,
// collapse to one space so a multi-line answer stays on one log line; the
// result is cut to limit runes with "..." appended when anything was dropped.
func TruncateForLog(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
