package ai

import (
	"regexp"
	"strings"
)

// Best-effort extraction and repair of JSON embedded in model output. The
// repair pass is deterministic: the same broken input always produces the
// same candidate, so a reparse failure is a stable signal.

var (
	fencedBlockRe    = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	trailingCommaRe  = regexp.MustCompile(`,\s*([}\]])`)
	lineCommentRe    = regexp.MustCompile(`(?m)^\s*//.*$`)
	blockCommentRe   = regexp.MustCompile(`(?s)/\*.*?\*/`)
	adjacentValuesRe = regexp.MustCompile(`([}\]])\s*([{\[])`)
)

// ExtractJSON pulls the JSON span out of raw model text. It prefers a fenced
// code block, then falls back to the outermost brace/bracket span, and
// returns the input unchanged when neither is found.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if m := fencedBlockRe.FindStringSubmatch(raw); m != nil {
		if inner := strings.TrimSpace(m[1]); inner != "" {
			return inner
		}
	}

	if span := outermostSpan(raw); span != "" {
		return span
	}
	return raw
}

// RepairJSON applies a fixed sequence of substitutions to a JSON candidate
// that failed to parse: trim to the outermost span, normalize typographic
// quotes, strip comment-like substrings, drop trailing commas and insert
// missing commas between adjacent object/array literals.
func RepairJSON(candidate string) string {
	s := candidate
	if span := outermostSpan(s); span != "" {
		s = span
	}

	quoteReplacer := strings.NewReplacer(
		"“", `"`, // left double quotation mark
		"”", `"`, // right double quotation mark
		"‘", `'`,
		"’", `'`,
	)
	s = quoteReplacer.Replace(s)

	s = lineCommentRe.ReplaceAllString(s, "")
	s = blockCommentRe.ReplaceAllString(s, "")
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = adjacentValuesRe.ReplaceAllString(s, "$1,$2")

	return strings.TrimSpace(s)
}

// outermostSpan returns the substring from the first opening brace or
// bracket to its matching closer at the end of the text, or "" when the text
// contains neither.
func outermostSpan(s string) string {
	start := -1
	var closer byte
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			start = i
			closer = '}'
			if s[i] == '[' {
				closer = ']'
			}
			break
		}
	}
	if start < 0 {
		return ""
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return ""
	}
	return s[start : end+1]
}
