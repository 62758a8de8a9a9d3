package compressor

import "strings"

// Pass 2: code block compression.
//
// Strips comments and collapses blank lines inside fenced code regions
// without altering executable semantics. Comment markers are chosen from a
// per-language rule table keyed on the fence hint; unknown or absent hints
// fall back to a generic marker set.

// commentMarkers maps a fence language hint to its line-comment markers.
var commentMarkers = map[string][]string{
	"go":         {"//"},
	"c":          {"//"},
	"cpp":        {"//"},
	"c++":        {"//"},
	"cs":         {"//"},
	"java":       {"//"},
	"js":         {"//"},
	"javascript": {"//"},
	"ts":         {"//"},
	"typescript": {"//"},
	"jsx":        {"//"},
	"tsx":        {"//"},
	"rust":       {"//"},
	"swift":      {"//"},
	"kotlin":     {"//"},
	"scala":      {"//"},
	"php":        {"//", "#"},
	"py":         {"#"},
	"python":     {"#"},
	"rb":         {"#"},
	"ruby":       {"#"},
	"sh":         {"#"},
	"bash":       {"#"},
	"zsh":        {"#"},
	"shell":      {"#"},
	"yaml":       {"#"},
	"yml":        {"#"},
	"toml":       {"#"},
	"make":       {"#"},
	"makefile":   {"#"},
	"dockerfile": {"#"},
	"perl":       {"#"},
	"r":          {"#"},
	"sql":        {"--"},
	"lua":        {"--"},
	"haskell":    {"--"},
	"hs":         {"--"},
}

// genericMarkers is the fallback for unknown or absent language hints.
var genericMarkers = []string{"//", "#", "--"}

// markersForHint returns the comment markers for a fence language hint.
func markersForHint(hint string) []string {
	if m, ok := commentMarkers[hint]; ok {
		return m
	}
	return genericMarkers
}

// CompressCodeBlocks strips comments and collapses blank lines inside every
// fenced code region. Regions with no closing fence extend to end of text;
// malformed input degrades to best-effort output, never an error.
func CompressCodeBlocks(text string) PassResult {
	segs := splitFences(text)

	out := make([]byte, 0, len(text))
	for _, seg := range segs {
		if !seg.fenced {
			out = append(out, seg.text...)
			continue
		}
		open, body, closing := fenceBody(seg.text)
		out = append(out, open...)
		out = append(out, compressCode(body, markersForHint(fenceHint(open)))...)
		out = append(out, closing...)
	}

	return PassResult{Text: string(out), CharsRemoved: len(text) - len(out)}
}

// compressCode rewrites one code region body: full-line comments are
// dropped, trailing comments are cut, trailing whitespace is trimmed, and
// blank runs collapse to at most one blank line.
func compressCode(body string, markers []string) string {
	if body == "" {
		return body
	}
	lines := strings.SplitAfter(body, "\n")

	var sb strings.Builder
	sb.Grow(len(body))
	blankRun := 0
	for _, line := range lines {
		content, nl := splitLineEnd(line)

		if isFullLineComment(content, markers) {
			continue
		}
		content = stripTrailingComment(content, markers)
		content = strings.TrimRight(content, " \t")

		if content == "" {
			blankRun++
			if blankRun > 1 || nl == "" {
				continue
			}
		} else {
			blankRun = 0
		}
		sb.WriteString(content)
		sb.WriteString(nl)
	}
	return sb.String()
}

// splitLineEnd separates a line from its trailing newline.
func splitLineEnd(line string) (content, nl string) {
	if strings.HasSuffix(line, "\n") {
		return line[:len(line)-1], "\n"
	}
	return line, ""
}

// isFullLineComment reports whether a line contains only a comment.
// Shebang lines (#!) are preserved: they are semantically significant.
func isFullLineComment(content string, markers []string) bool {
	trimmed := strings.TrimLeft(content, " \t")
	if strings.HasPrefix(trimmed, "#!") {
		return false
	}
	for _, m := range markers {
		if strings.HasPrefix(trimmed, m) {
			return true
		}
	}
	return false
}

// stripTrailingComment cuts an inline comment off the end of a code line.
// Best-effort string safety: the marker must be preceded by whitespace, and
// the text before it must contain an even number of each quote character,
// so comment-like substrings inside string literals are left alone.
func stripTrailingComment(content string, markers []string) string {
	cut := -1
	for _, m := range markers {
		for i := 0; ; {
			j := strings.Index(content[i:], m)
			if j < 0 {
				break
			}
			pos := i + j
			i = pos + len(m)
			if pos == 0 {
				continue // full-line comments handled separately
			}
			prev := content[pos-1]
			if prev != ' ' && prev != '\t' {
				continue
			}
			if !quotesBalanced(content[:pos]) {
				continue
			}
			if cut < 0 || pos < cut {
				cut = pos
			}
			break
		}
	}
	if cut < 0 {
		return content
	}
	return content[:cut]
}

// quotesBalanced reports whether s contains an even number of every quote
// character. An odd count means a string literal is probably open.
func quotesBalanced(s string) bool {
	for _, q := range []rune{'"', '\'', '`'} {
		if strings.Count(s, string(q))%2 != 0 {
			return false
		}
	}
	return true
}
