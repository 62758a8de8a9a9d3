package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute_Deterministic(t *testing.T) {
	in := FingerprintInput{
		Level:   2,
		Model:   "gpt-4o",
		Path:    "/v1/chat/completions",
		Payload: []byte(`{"model":"gpt-4o","messages":[]}`),
	}

	assert.Equal(t, Compute(in), Compute(in))
	assert.Len(t, string(Compute(in)), 32)
}

func TestCompute_SensitiveToEveryField(t *testing.T) {
	base := FingerprintInput{
		Level:   2,
		Model:   "gpt-4o",
		Path:    "/v1/chat/completions",
		Payload: []byte("payload"),
	}

	variants := []FingerprintInput{
		{Level: 3, Model: base.Model, Path: base.Path, Payload: base.Payload},
		{Level: base.Level, Model: "gpt-4o-mini", Path: base.Path, Payload: base.Payload},
		{Level: base.Level, Model: base.Model, Path: "/other/chat/completions", Payload: base.Payload},
		{Level: base.Level, Model: base.Model, Path: base.Path, Payload: []byte("different")},
	}

	want := Compute(base)
	for i, v := range variants {
		assert.NotEqual(t, want, Compute(v), "variant %d", i)
	}
}

func TestCompute_FieldBoundaries(t *testing.T) {
	// Length prefixing: shifting bytes between adjacent fields must change
	// the digest even though the concatenation is identical.
	a := FingerprintInput{Model: "ab", Path: "c"}
	b := FingerprintInput{Model: "a", Path: "bc"}

	assert.NotEqual(t, Compute(a), Compute(b))
}
