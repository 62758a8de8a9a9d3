package compressor

import "regexp"

// Pass 1: whitespace normalization.
//
// Collapses insignificant whitespace outside fenced code regions. Fenced
// regions are excluded entirely here - indentation inside code is
// semantically significant and is handled by the code compressor instead.

var (
	reTrailingWS = regexp.MustCompile(`(?m)[ \t]+$`)
	reBlankRuns  = regexp.MustCompile(`\n{3,}`)
	reSpaceRuns  = regexp.MustCompile(`[ \t][ \t]+`)
)

// NormalizeWhitespace trims trailing whitespace per line, collapses runs of
// horizontal whitespace to a single space, and collapses 3+ consecutive
// newlines to a single blank line. Always succeeds, possibly with zero
// savings.
func NormalizeWhitespace(text string) PassResult {
	segs := splitFences(text)

	out := make([]byte, 0, len(text))
	for _, seg := range segs {
		if seg.fenced {
			out = append(out, seg.text...)
			continue
		}
		s := reTrailingWS.ReplaceAllString(seg.text, "")
		s = reSpaceRuns.ReplaceAllString(s, " ")
		s = reBlankRuns.ReplaceAllString(s, "\n\n")
		out = append(out, s...)
	}

	return PassResult{Text: string(out), CharsRemoved: len(text) - len(out)}
}
