package compressor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAbbreviatePatterns(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "capitalized phrase",
			input: "In order to test this, run the suite.",
			want:  "To test this, run the suite.",
		},
		{
			name:  "lowercase phrase",
			input: "We do this in order to save tokens.",
			want:  "We do this to save tokens.",
		},
		{
			name:  "phrase dropped entirely",
			input: "It is important to note that caching helps.",
			want:  "caching helps.",
		},
		{
			name:  "multiple phrases",
			input: "Due to the fact that it failed, please note that we retried.",
			want:  "Because it failed, we retried.",
		},
		{
			name:  "case sensitive no match",
			input: "IN ORDER TO shout",
			want:  "IN ORDER TO shout",
		},
		{
			name:  "no phrases",
			input: "nothing verbose here",
			want:  "nothing verbose here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := AbbreviatePatterns(tt.input)
			assert.Equal(t, tt.want, res.Text)
			assert.Equal(t, len(tt.input)-len(tt.want), res.CharsRemoved)
		})
	}
}

func TestAbbreviatePatterns_SkipsFencedCode(t *testing.T) {
	input := "In order to run:\n```go\n// in order to do x\nrun()\n```\nin order to finish"
	res := AbbreviatePatterns(input)

	assert.Contains(t, res.Text, "To run:")
	assert.Contains(t, res.Text, "// in order to do x")
	assert.Contains(t, res.Text, "to finish")
}

func TestAbbreviatePatterns_NeverExpands(t *testing.T) {
	for _, a := range abbreviations {
		assert.LessOrEqual(t, len(a.repl), len(a.phrase), "phrase %q", a.phrase)
	}
}
