package compressor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "trailing whitespace trimmed",
			input: "hello   \nworld\t\n",
			want:  "hello\nworld\n",
		},
		{
			name:  "space runs collapsed",
			input: "too    many   spaces",
			want:  "too many spaces",
		},
		{
			name:  "blank line runs collapsed",
			input: "first\n\n\n\n\nsecond",
			want:  "first\n\nsecond",
		},
		{
			name:  "single blank line kept",
			input: "first\n\nsecond",
			want:  "first\n\nsecond",
		},
		{
			name:  "already clean",
			input: "nothing to do here",
			want:  "nothing to do here",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NormalizeWhitespace(tt.input)
			assert.Equal(t, tt.want, res.Text)
			assert.Equal(t, len(tt.input)-len(tt.want), res.CharsRemoved)
		})
	}
}

func TestNormalizeWhitespace_PreservesFencedCode(t *testing.T) {
	input := "prose   with   runs\n```go\nfunc main() {\n    x := 1\n\n\n\n    y := 2\n}\n```\ntrailing   prose"
	res := NormalizeWhitespace(input)

	assert.Contains(t, res.Text, "    x := 1\n\n\n\n    y := 2")
	assert.Contains(t, res.Text, "prose with runs")
	assert.Contains(t, res.Text, "trailing prose")
}

func TestNormalizeWhitespace_UnterminatedFence(t *testing.T) {
	input := "before    text\n```python\nx  =  1\n\n\n\ny = 2"
	res := NormalizeWhitespace(input)

	assert.Contains(t, res.Text, "before text")
	assert.Contains(t, res.Text, "x  =  1\n\n\n\ny = 2")
}

func TestNormalizeWhitespace_NeverExpands(t *testing.T) {
	inputs := []string{
		"plain",
		"a  b  c\n\n\n\nd",
		"```\ncode\n```",
		"  \t  \n\n\n",
	}
	for _, in := range inputs {
		res := NormalizeWhitespace(in)
		assert.GreaterOrEqual(t, res.CharsRemoved, 0, "input %q", in)
	}
}
