package compressor

import (
	"sort"
	"strings"
)

// Pass 4: pattern abbreviation.
//
// Replaces known verbose boilerplate phrases with shorter equivalents from
// a fixed dictionary. Matching is case-sensitive - case-insensitive
// matching risks corrupting identifiers - so capitalized variants are
// enumerated explicitly. Fenced code regions are skipped.

// abbreviation is one dictionary entry. Replacements are never longer than
// the phrase they replace, keeping the pass non-expansive.
type abbreviation struct {
	phrase string
	repl   string
}

// abbreviations is the fixed dictionary, loaded once at process start.
var abbreviations = []abbreviation{
	{"It is important to note that ", ""},
	{"it is important to note that ", ""},
	{"Due to the fact that ", "Because "},
	{"due to the fact that ", "because "},
	{"As mentioned earlier, ", ""},
	{"as mentioned earlier, ", ""},
	{"For the purpose of ", "For "},
	{"for the purpose of ", "for "},
	{"At this point in time", "Now"},
	{"at this point in time", "now"},
	{"In the event that ", "If "},
	{"in the event that ", "if "},
	{"Please note that ", ""},
	{"please note that ", ""},
	{"With regard to ", "About "},
	{"with regard to ", "about "},
	{"In the context of ", "In "},
	{"in the context of ", "in "},
	{"In order to ", "To "},
	{"in order to ", "to "},
}

func init() {
	// Longest phrase first, so a short phrase's replacement never pre-empts
	// a longer phrase containing it.
	sort.SliceStable(abbreviations, func(i, j int) bool {
		return len(abbreviations[i].phrase) > len(abbreviations[j].phrase)
	})
}

// AbbreviatePatterns substitutes dictionary phrases in a single
// left-to-right scan, longest phrase first at each position. Fenced code
// regions pass through untouched.
func AbbreviatePatterns(text string) PassResult {
	segs := splitFences(text)

	var sb strings.Builder
	sb.Grow(len(text))
	for _, seg := range segs {
		if seg.fenced {
			sb.WriteString(seg.text)
			continue
		}
		abbreviate(&sb, seg.text)
	}

	out := sb.String()
	return PassResult{Text: out, CharsRemoved: len(text) - len(out)}
}

func abbreviate(sb *strings.Builder, text string) {
	for i := 0; i < len(text); {
		matched := false
		for _, a := range abbreviations {
			if strings.HasPrefix(text[i:], a.phrase) {
				sb.WriteString(a.repl)
				i += len(a.phrase)
				matched = true
				break
			}
		}
		if !matched {
			sb.WriteByte(text[i])
			i++
		}
	}
}
