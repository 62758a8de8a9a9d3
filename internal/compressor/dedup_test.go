package compressor

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// repeatedBlock builds a block large enough that replacing one repeat
// outweighs the tag line and legend header.
func repeatedBlock(lines int) string {
	parts := make([]string, lines)
	for i := range parts {
		parts[i] = fmt.Sprintf("shared context line %d: %s", i, strings.Repeat("payload ", 6))
	}
	return strings.Join(parts, "\n")
}

func TestDeduplicateBlocks_ReplacesRepeat(t *testing.T) {
	block := repeatedBlock(5)
	msgs := []Message{
		{Role: RoleUser, Content: block + "\nafter text"},
		{Role: RoleUser, Content: "before text\n" + block},
	}

	out, legend, saved := DeduplicateBlocks(msgs, 5, 50)

	require.Len(t, legend, 1)
	require.Positive(t, saved)

	id := blockHash(block)
	assert.True(t, strings.HasPrefix(out[0].Content, legendHeader))
	assert.Contains(t, out[0].Content, blockMarker(id))
	assert.Contains(t, out[0].Content, block)
	assert.Contains(t, out[1].Content, refMarker(id))
	assert.NotContains(t, out[1].Content, block)
	assert.Equal(t, block, legend[refMarker(id)])

	totalBefore := len(msgs[0].Content) + len(msgs[1].Content)
	totalAfter := len(out[0].Content) + len(out[1].Content)
	assert.Equal(t, totalBefore-totalAfter, saved)
}

func TestDeduplicateBlocks_Deterministic(t *testing.T) {
	block := repeatedBlock(5)
	msgs := []Message{
		{Role: RoleSystem, Content: block},
		{Role: RoleUser, Content: block},
		{Role: RoleUser, Content: block},
	}

	out1, legend1, saved1 := DeduplicateBlocks(msgs, 5, 50)
	out2, legend2, saved2 := DeduplicateBlocks(msgs, 5, 50)

	assert.Equal(t, out1, out2)
	assert.Equal(t, legend1, legend2)
	assert.Equal(t, saved1, saved2)
}

func TestDeduplicateBlocks_NoRepeats(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Content: "unique content one\nwith multiple lines\nand more"},
		{Role: RoleUser, Content: "entirely different\nsecond message\nhere"},
	}

	out, legend, saved := DeduplicateBlocks(msgs, 3, 10)

	assert.Equal(t, msgs, out)
	assert.Nil(t, legend)
	assert.Zero(t, saved)
}

func TestDeduplicateBlocks_BelowByteThreshold(t *testing.T) {
	small := "a\nb\nc"
	msgs := []Message{
		{Role: RoleUser, Content: small},
		{Role: RoleUser, Content: small},
	}

	out, legend, saved := DeduplicateBlocks(msgs, 3, 100)

	assert.Equal(t, msgs, out)
	assert.Nil(t, legend)
	assert.Zero(t, saved)
}

func TestDeduplicateBlocks_SavingsTooSmall(t *testing.T) {
	// The repeat qualifies but replacing it saves less than the tag line
	// plus legend header cost, so the input must come back unchanged.
	small := "aa\nbb\ncc"
	msgs := []Message{
		{Role: RoleUser, Content: small},
		{Role: RoleUser, Content: small},
	}

	out, legend, saved := DeduplicateBlocks(msgs, 3, 5)

	assert.Equal(t, msgs, out)
	assert.Nil(t, legend)
	assert.Zero(t, saved)
}

func TestDeduplicateBlocks_MarkerCollision(t *testing.T) {
	block := repeatedBlock(5)
	id := blockHash(block)
	msgs := []Message{
		{Role: RoleUser, Content: refMarker(id) + "\n" + block},
		{Role: RoleUser, Content: block},
	}

	out, legend, saved := DeduplicateBlocks(msgs, 5, 50)

	assert.Equal(t, msgs, out)
	assert.Nil(t, legend)
	assert.Zero(t, saved)
}

func TestDeduplicateBlocks_EmptyInput(t *testing.T) {
	out, legend, saved := DeduplicateBlocks(nil, 3, 100)
	assert.Nil(t, out)
	assert.Nil(t, legend)
	assert.Zero(t, saved)
}
