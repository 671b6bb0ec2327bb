package feedback

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// MapIndexesMetadata is attached to a test case when BitmapFeedback accepts
// it, recording exactly which edges it exercised.
type MapIndexesMetadata struct {
	List []int
}

// BitmapFeedback decodes a shared-memory coverage map into the edge indices
// the last execution exercised, and decides acceptance against a bound
// State. Two instances over the same observer but distinct States implement
// queue-acceptance and crash-deduplication respectively.
type BitmapFeedback struct {
	state       *State
	current     []int
	currentHash uint64
}

// NewBitmapFeedback binds a BitmapFeedback to state. state is not shared
// between a queue-acceptance feedback and a crash-dedup feedback.
func NewBitmapFeedback(state *State) *BitmapFeedback {
	return &BitmapFeedback{state: state}
}

// Consume decodes m byte-by-byte, little-endian bit order (bit 0 of byte b is
// edge b*8+0), rebuilding current_coverage, and reports whether the decoded
// path is interesting relative to the bound State.
func (b *BitmapFeedback) Consume(m []byte) (bool, error) {
	b.current = b.current[:0]
	for i, byt := range m {
		if byt == 0 {
			continue
		}
		for bit := 0; bit < 8; bit++ {
			if byt&(1<<uint(bit)) != 0 {
				b.current = append(b.current, i*8+bit)
			}
		}
	}
	b.currentHash = pathHash(b.current)
	return b.state.IsPathInteresting(b.current)
}

// PathHash returns the deterministic hash of the most recently consumed
// path, valid until the next Consume.
func (b *BitmapFeedback) PathHash() uint64 { return b.currentHash }

// EdgeCount returns the number of edges in the most recently consumed path.
func (b *BitmapFeedback) EdgeCount() int { return len(b.current) }

// MarkAccepted calls mark_path on the bound State and returns the metadata
// to attach to the test case. It must not run before every other feedback
// bound to the same observer has consumed the same map: marking first would
// hide newness from them (e.g. crash-dedup consuming the same map). The fuzz
// loop also calls it for non-crashing rounds that are not queued, so that
// the path's visit count still advances.
func (b *BitmapFeedback) MarkAccepted() (*MapIndexesMetadata, error) {
	if err := b.state.MarkPath(b.current, b.currentHash); err != nil {
		return nil, err
	}
	md := &MapIndexesMetadata{List: append([]int(nil), b.current...)}
	b.current = nil
	return md, nil
}

// DiscardMetadata clears current_coverage without marking it, for a test
// case that was not accepted.
func (b *BitmapFeedback) DiscardMetadata() {
	b.current = nil
	b.currentHash = 0
}

// pathHash computes a deterministic, order-sensitive hash of an edge-index
// path using xxhash over each index's fixed-width encoding.
func pathHash(path []int) uint64 {
	h := xxhash.New()
	var buf [8]byte
	for _, e := range path {
		binary.LittleEndian.PutUint64(buf[:], uint64(e))
		h.Write(buf[:])
	}
	return h.Sum64()
}
