package compressor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aipproxy/aip-proxy/internal/monitoring"
)

// sampleMsgs exercises every pass: whitespace runs, commented code, a
// repeated block, and verbose phrases.
func sampleMsgs() []Message {
	block := repeatedBlock(5)
	return []Message{
		{Role: RoleSystem, Content: "You are   a helpful   assistant.\n\n\n\n" + block},
		{Role: RoleUser, Content: "In order to fix this, look at:\n```go\n// setup\nx := 1  // inline\n```\n" + block},
	}
}

func totalChars(msgs []Message) int {
	n := 0
	for _, m := range msgs {
		n += len(m.Content)
	}
	return n
}

func TestEngine_New_RejectsInvalidLevel(t *testing.T) {
	_, err := New(Level(4))
	assert.Error(t, err)

	_, err = New(Level(-1))
	assert.Error(t, err)

	for lvl := LevelOff; lvl <= LevelAggressive; lvl++ {
		e, err := New(lvl)
		require.NoError(t, err)
		assert.Equal(t, lvl, e.Level())
	}
}

func TestEngine_LevelOff_Identity(t *testing.T) {
	e, err := New(LevelOff)
	require.NoError(t, err)

	msgs := sampleMsgs()
	out, report := e.Compress(msgs)

	assert.Equal(t, msgs, out)
	assert.Zero(t, report.SavedChars)
	assert.Zero(t, report.SavingsPct)
}

func TestEngine_Compress_NeverExpands(t *testing.T) {
	msgs := sampleMsgs()
	original := totalChars(msgs)

	for lvl := LevelOff; lvl <= LevelAggressive; lvl++ {
		e, err := New(lvl, WithChunkSize(5, 50))
		require.NoError(t, err)

		out, report := e.Compress(msgs)
		assert.LessOrEqual(t, totalChars(out), original, "level %d", lvl)
		assert.GreaterOrEqual(t, report.SavedChars, 0, "level %d", lvl)
	}
}

func TestEngine_Compress_HigherLevelsSaveMore(t *testing.T) {
	msgs := sampleMsgs()

	var sizes []int
	for lvl := LevelOff; lvl <= LevelAggressive; lvl++ {
		e, err := New(lvl, WithChunkSize(5, 50))
		require.NoError(t, err)
		out, _ := e.Compress(msgs)
		sizes = append(sizes, totalChars(out))
	}

	for i := 1; i < len(sizes); i++ {
		assert.LessOrEqual(t, sizes[i], sizes[i-1], "level %d vs %d", i, i-1)
	}
}

func TestEngine_Compress_PreservesOrderAndRoles(t *testing.T) {
	e, err := New(LevelAggressive, WithChunkSize(5, 50))
	require.NoError(t, err)

	msgs := sampleMsgs()
	out, _ := e.Compress(msgs)

	require.Len(t, out, len(msgs))
	for i := range msgs {
		assert.Equal(t, msgs[i].Role, out[i].Role)
	}
}

func TestEngine_Compress_InputNotMutated(t *testing.T) {
	e, err := New(LevelAggressive, WithChunkSize(5, 50))
	require.NoError(t, err)

	msgs := sampleMsgs()
	before := make([]Message, len(msgs))
	copy(before, msgs)

	e.Compress(msgs)
	assert.Equal(t, before, msgs)
}

func TestEngine_Compress_ReportsMetrics(t *testing.T) {
	metrics := monitoring.NewCollector()
	e, err := New(LevelBalanced, WithMetrics(metrics), WithChunkSize(5, 50))
	require.NoError(t, err)

	msgs := sampleMsgs()
	_, report := e.Compress(msgs)

	stats := metrics.Snapshot()
	assert.Equal(t, int64(totalChars(msgs)), stats.OriginalChars)
	assert.Equal(t, int64(totalChars(msgs)-report.SavedChars), stats.CompressedChars)
	assert.Equal(t, int64(1), stats.Calls)
}

func TestEngine_Compress_DedupAppliesAtBalanced(t *testing.T) {
	block := repeatedBlock(5)
	msgs := []Message{
		{Role: RoleUser, Content: block + "\nfirst tail"},
		{Role: RoleUser, Content: "second head\n" + block},
	}

	light, err := New(LevelLight)
	require.NoError(t, err)
	balanced, err := New(LevelBalanced, WithChunkSize(5, 50))
	require.NoError(t, err)

	outLight, _ := light.Compress(msgs)
	outBalanced, _ := balanced.Compress(msgs)

	for _, m := range outLight {
		assert.NotContains(t, m.Content, refMarkerPrefix)
	}
	joined := outBalanced[0].Content + outBalanced[1].Content
	assert.Contains(t, joined, refMarkerPrefix)
}

func TestEngine_CompressText(t *testing.T) {
	e, err := New(LevelAggressive)
	require.NoError(t, err)

	out := e.CompressText("In order to   win, try")
	assert.Equal(t, "To win, try", out)

	off, err := New(LevelOff)
	require.NoError(t, err)
	assert.Equal(t, "raw   text", off.CompressText("raw   text"))
}

func TestMakeReport(t *testing.T) {
	r := makeReport(1000, 600)
	assert.Equal(t, 1000, r.OriginalChars)
	assert.Equal(t, 600, r.CompressedChars)
	assert.Equal(t, 400, r.SavedChars)
	assert.InDelta(t, 40.0, r.SavingsPct, 0.01)

	zero := makeReport(0, 0)
	assert.Zero(t, zero.SavingsPct)
}

func TestSplitFences(t *testing.T) {
	text := "before\n```go\ncode\n```\nafter"
	segs := splitFences(text)

	require.Len(t, segs, 3)
	assert.False(t, segs[0].fenced)
	assert.True(t, segs[1].fenced)
	assert.False(t, segs[2].fenced)
	assert.Equal(t, text, segs[0].text+segs[1].text+segs[2].text)
	assert.True(t, strings.HasPrefix(segs[1].text, "```go\n"))
}
