package compressor

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"
)

// Pass 3: block deduplication.
//
// Operates across the whole message list, not per message. Multi-line
// blocks that repeat are replaced by a short reference marker; the first
// occurrence stays in place, tagged so the model can resolve markers back
// to it. A one-line legend explaining the scheme is prepended to the first
// message when at least one marker was emitted.
//
// Markers are derived from a content hash, so the pass is deterministic:
// identical input with an identical minimum chunk size yields identical
// markers and identical tag ordering. This matters for cache correctness -
// the request fingerprint is computed over deduplicated text.

// DedupLegend maps each emitted reference marker to the original block
// text. It is scoped to one compression invocation and discarded when the
// request completes; markers are never reused across requests.
type DedupLegend map[string]string

const (
	refMarkerPrefix   = "[ref:"
	blockMarkerPrefix = "[blk:"
	markerSuffix      = "]"
	hashPrefixLen     = 8
)

// legendHeader is the one-line instruction prepended to the first message
// when markers were emitted.
const legendHeader = "[dedup: each [ref:ID] marker repeats the earlier block tagged [blk:ID]]\n"

// blockHash returns the marker ID for a block: a short hex prefix of its
// BLAKE3 digest.
func blockHash(block string) string {
	sum := blake3.Sum256([]byte(block))
	return hex.EncodeToString(sum[:])[:hashPrefixLen]
}

// refMarker builds the reference marker emitted in place of a repeated block.
func refMarker(id string) string {
	return refMarkerPrefix + id + markerSuffix
}

// blockMarker builds the tag inserted above a block's first occurrence.
func blockMarker(id string) string {
	return blockMarkerPrefix + id + markerSuffix
}

// span is a half-open line range [start, end) within one message.
type span struct {
	msg   int
	start int
	end   int
}

func (s span) overlaps(o span) bool {
	return s.msg == o.msg && s.start < o.end && o.start < s.end
}

func overlapsAny(s span, claimed []span) bool {
	for _, c := range claimed {
		if s.overlaps(c) {
			return true
		}
	}
	return false
}

// DeduplicateBlocks replaces repeated multi-line blocks across msgs with
// reference markers. minLines is the minimum block size in lines, minBytes
// the minimum block size in bytes. Returns the rewritten list, the legend,
// and the net number of characters removed. If deduplication would not
// shrink the payload, or every candidate marker collides with input text,
// the input is returned unchanged.
func DeduplicateBlocks(msgs []Message, minLines, minBytes int) ([]Message, DedupLegend, int) {
	if minLines < 1 || len(msgs) == 0 {
		return msgs, nil, 0
	}

	split := make([][]string, len(msgs))
	for i, m := range msgs {
		split[i] = strings.Split(m.Content, "\n")
	}

	// Scan pass: record the first occurrence of each qualifying block and
	// collect repeats. Repeats advance by the block length so replacement
	// candidates never overlap each other.
	firstSeen := make(map[string]span)
	repeats := make(map[string][]span)
	var order []string // ids with at least one repeat, first-seen order

	for mi := range split {
		lines := split[mi]
		for li := 0; li+minLines <= len(lines); {
			block := strings.Join(lines[li:li+minLines], "\n")
			if len(block) < minBytes {
				li++
				continue
			}
			id := blockHash(block)
			if _, seen := firstSeen[id]; seen {
				if len(repeats[id]) == 0 {
					order = append(order, id)
				}
				repeats[id] = append(repeats[id], span{msg: mi, start: li, end: li + minLines})
				li += minLines
				continue
			}
			firstSeen[id] = span{msg: mi, start: li, end: li + minLines}
			li++
		}
	}

	if len(order) == 0 {
		return msgs, nil, 0
	}

	// A legend token must never appear in the original input; on collision
	// the affected block is left verbatim rather than risking corruption.
	collides := func(id string) bool {
		for _, m := range msgs {
			if strings.Contains(m.Content, refMarker(id)) || strings.Contains(m.Content, blockMarker(id)) {
				return true
			}
		}
		return false
	}

	// Claim pass: keep only ids whose first occurrence and at least one
	// repeat occupy line ranges untouched by other replacements. Disjoint
	// spans keep the rewrite unambiguous and the tags truthful.
	legend := make(DedupLegend)
	var claimed []span
	tags := make(map[span]string)     // first-occurrence span -> id
	replaced := make(map[span]string) // repeat span -> id

	for _, id := range order {
		if collides(id) {
			continue
		}
		first := firstSeen[id]
		if overlapsAny(first, claimed) {
			continue
		}
		var kept []span
		for _, rep := range repeats[id] {
			if rep.overlaps(first) || overlapsAny(rep, claimed) {
				continue
			}
			kept = append(kept, rep)
		}
		if len(kept) == 0 {
			continue
		}
		claimed = append(claimed, first)
		claimed = append(claimed, kept...)
		tags[first] = id
		for _, rep := range kept {
			replaced[rep] = id
		}
		legend[refMarker(id)] = strings.Join(split[first.msg][first.start:first.end], "\n")
	}

	if len(tags) == 0 {
		return msgs, nil, 0
	}

	out := rewriteWithMarkers(msgs, split, tags, replaced)
	out[0] = Message{Role: out[0].Role, Content: legendHeader + out[0].Content}

	saved := 0
	for i := range msgs {
		saved += len(msgs[i].Content) - len(out[i].Content)
	}
	if saved <= 0 {
		return msgs, nil, 0
	}
	return out, legend, saved
}

// rewriteWithMarkers produces the deduplicated message list: repeat spans
// become reference markers, first occurrences gain a tag line above them.
// All spans are disjoint by construction.
func rewriteWithMarkers(msgs []Message, split [][]string, tags, replaced map[span]string) []Message {
	tagAt := make(map[int]map[int]string)
	repAt := make(map[int]map[int]span)
	for s, id := range tags {
		if tagAt[s.msg] == nil {
			tagAt[s.msg] = make(map[int]string)
		}
		tagAt[s.msg][s.start] = id
	}
	for s := range replaced {
		if repAt[s.msg] == nil {
			repAt[s.msg] = make(map[int]span)
		}
		repAt[s.msg][s.start] = s
	}

	out := make([]Message, len(msgs))
	for mi, m := range msgs {
		if tagAt[mi] == nil && repAt[mi] == nil {
			out[mi] = m
			continue
		}
		lines := split[mi]
		var sb strings.Builder
		sb.Grow(len(m.Content))
		for li := 0; li < len(lines); {
			if id, ok := tagAt[mi][li]; ok {
				sb.WriteString(blockMarker(id))
				sb.WriteString("\n")
			}
			if s, ok := repAt[mi][li]; ok {
				sb.WriteString(refMarker(replaced[s]))
				if s.end < len(lines) {
					sb.WriteString("\n")
				}
				li = s.end
				continue
			}
			sb.WriteString(lines[li])
			if li < len(lines)-1 {
				sb.WriteString("\n")
			}
			li++
		}
		out[mi] = Message{Role: m.Role, Content: sb.String()}
	}
	return out
}
