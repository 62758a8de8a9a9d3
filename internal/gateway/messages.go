// Message extraction - locating compressible text in raw request bodies.
//
// DESIGN: The proxy does not understand the upstream wire protocol beyond
// locating message-content fields. gjson reads and sjson patches the raw
// body in place, so unknown fields survive byte-for-byte and anything the
// proxy doesn't recognize is forwarded unmodified.
package gateway

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/aipproxy/aip-proxy/internal/compressor"
)

// extractMessages pulls every compressible text field out of the request
// body's messages array. Plain string content yields one entry per message;
// multi-part content (text + images) yields one entry per text part, so the
// deduplicator still sees the full conversation in order. paths[i] is the
// sjson path that writes entry i back.
func extractMessages(body []byte) (msgs []compressor.Message, paths []string) {
	messages := gjson.GetBytes(body, "messages")
	if !messages.IsArray() {
		return nil, nil
	}

	for i, msg := range messages.Array() {
		role := msg.Get("role").String()
		content := msg.Get("content")

		switch {
		case content.Type == gjson.String:
			msgs = append(msgs, compressor.Message{Role: role, Content: content.String()})
			paths = append(paths, fmt.Sprintf("messages.%d.content", i))
		case content.IsArray():
			for j, part := range content.Array() {
				if part.Get("type").String() != "text" {
					continue
				}
				msgs = append(msgs, compressor.Message{Role: role, Content: part.Get("text").String()})
				paths = append(paths, fmt.Sprintf("messages.%d.content.%d.text", i, j))
			}
		}
	}
	return msgs, paths
}

// patchMessages writes compressed content back into the body at the
// recorded paths. On any patch error the original body is returned - a
// half-patched request must never be forwarded.
func patchMessages(body []byte, msgs []compressor.Message, paths []string) []byte {
	patched := body
	var err error
	for i, path := range paths {
		patched, err = sjson.SetBytes(patched, path, msgs[i].Content)
		if err != nil {
			return body
		}
	}
	return patched
}

// compressBody compresses the message content of a chat request body and
// returns the patched body plus the savings report. Bodies without a
// recognizable messages array pass through unchanged.
func (g *Gateway) compressBody(body []byte) ([]byte, compressor.SavingsReport) {
	msgs, paths := extractMessages(body)
	if len(msgs) == 0 {
		return body, compressor.SavingsReport{}
	}
	compressed, report := g.engine.Compress(msgs)
	return patchMessages(body, compressed, paths), report
}
