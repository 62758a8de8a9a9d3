package compressor

import "strings"

// segment is a run of lines that is either entirely inside or entirely
// outside a fenced code region. Fence marker lines belong to the fenced
// segment so that language hints survive every pass.
type segment struct {
	text   string
	fenced bool
}

// isFenceLine reports whether a line opens or closes a fenced code region.
func isFenceLine(line string) bool {
	return strings.HasPrefix(strings.TrimLeft(line, " \t"), "```")
}

// fenceHint extracts the language hint from a fence opening line.
func fenceHint(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	return strings.ToLower(strings.TrimSpace(strings.TrimLeft(trimmed, "`")))
}

// splitFences partitions text into fenced and unfenced segments. The
// concatenation of all segment texts reproduces the input exactly. An
// unterminated fence extends to the end of the text; malformed input never
// fails, it only yields a best-effort partition.
func splitFences(text string) []segment {
	if !strings.Contains(text, "```") {
		return []segment{{text: text}}
	}

	lines := strings.SplitAfter(text, "\n")
	var segs []segment
	var cur strings.Builder
	inFence := false

	flush := func(fenced bool) {
		if cur.Len() > 0 {
			segs = append(segs, segment{text: cur.String(), fenced: fenced})
			cur.Reset()
		}
	}

	for _, line := range lines {
		if isFenceLine(line) {
			if !inFence {
				flush(false)
				inFence = true
				cur.WriteString(line)
			} else {
				cur.WriteString(line)
				flush(true)
				inFence = false
			}
			continue
		}
		cur.WriteString(line)
	}
	flush(inFence)

	return segs
}

// fenceBody splits a fenced segment into its opening fence line, inner
// body, and closing fence line. The closing line is empty for an
// unterminated fence.
func fenceBody(seg string) (open, body, closing string) {
	nl := strings.Index(seg, "\n")
	if nl < 0 {
		return seg, "", ""
	}
	open, rest := seg[:nl+1], seg[nl+1:]

	lines := strings.SplitAfter(rest, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	if n := len(lines); n > 0 && isFenceLine(lines[n-1]) {
		return open, strings.Join(lines[:n-1], ""), lines[n-1]
	}
	return open, rest, ""
}
