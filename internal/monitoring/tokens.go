package monitoring

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/aipproxy/aip-proxy/internal/config"
)

// Token estimation for savings reporting. Counts are estimates only; the
// upstream provider's billing is authoritative.

var (
	encOnce sync.Once
	encoder *tiktoken.Tiktoken
)

// EstimateTokens returns an approximate token count for text using the
// cl100k_base encoding. If the encoder cannot be initialized (e.g. no BPE
// data available), it falls back to the chars-per-token ratio.
func EstimateTokens(text string) int {
	encOnce.Do(func() {
		encoder, _ = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
	})
	if encoder == nil {
		return len(text) / config.TokenEstimateRatio
	}
	return len(encoder.Encode(text, nil, nil))
}
