// Package compressor types - the data model for the compression pipeline.
package compressor

import "fmt"

// Message roles as they appear in chat-completion requests.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one conversation turn. Content is the text payload; messages
// are immutable once received - compression produces a new copy.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Level selects which passes run. Levels are monotonic: level N applies
// every pass enabled at levels <= N.
type Level int

const (
	// LevelOff disables compression entirely (identity transform).
	LevelOff Level = iota
	// LevelLight normalizes whitespace.
	LevelLight
	// LevelBalanced adds code block compression and block deduplication.
	LevelBalanced
	// LevelAggressive adds pattern abbreviation.
	LevelAggressive
)

// Validate rejects levels outside the supported range.
func (l Level) Validate() error {
	if l < LevelOff || l > LevelAggressive {
		return fmt.Errorf("compression level must be 0-3, got %d", int(l))
	}
	return nil
}

// PassResult is the outcome of a single pass: the transformed text and the
// number of characters it removed. Passes are non-expansive, so CharsRemoved
// is never negative.
type PassResult struct {
	Text         string
	CharsRemoved int
}

// SavingsReport summarizes one Compress invocation.
type SavingsReport struct {
	OriginalChars   int     `json:"original_chars"`
	CompressedChars int     `json:"compressed_chars"`
	SavedChars      int     `json:"saved_chars"`
	SavingsPct      float64 `json:"savings_pct"`
}

func makeReport(original, compressed int) SavingsReport {
	r := SavingsReport{
		OriginalChars:   original,
		CompressedChars: compressed,
		SavedChars:      original - compressed,
	}
	if original > 0 {
		r.SavingsPct = float64(r.SavedChars) / float64(original) * 100
	}
	return r
}
