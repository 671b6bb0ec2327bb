// Package feedback tracks which coverage edges have ever been seen and
// decodes a shared-memory bitmap into the set of edges a single execution
// exercised, deciding whether that execution deserves queueing.
package feedback

import (
	"fmt"

	"github.com/bitterbit/fuzzer-qemu/internal/ferrors"
)

// State is a bit-per-edge presence vector over M*8 edges, plus a count of
// the edges set in it and a visit count per path hash. Two independent States exist per run: one for
// queue acceptance, one for crash deduplication, both fed from the same
// observer bitmap but never sharing a seen-set.
type State struct {
	seen      []bool
	count     int
	pathCount map[uint64]int
}

// NewState allocates a State sized for numEdges distinct edge indices.
func NewState(numEdges int) *State {
	return &State{
		seen:      make([]bool, numEdges),
		pathCount: make(map[uint64]int),
	}
}

func (s *State) checkBounds(path []int) error {
	for _, e := range path {
		if e < 0 || e >= len(s.seen) {
			return ferrors.New("check_bounds", ferrors.ErrCodeEdgeOutOfRange,
				fmt.Sprintf("edge index %d out of range [0,%d)", e, len(s.seen)))
		}
	}
	return nil
}

// IsPathInteresting reports whether any edge in path is unset in seen.
func (s *State) IsPathInteresting(path []int) (bool, error) {
	if err := s.checkBounds(path); err != nil {
		return false, err
	}
	for _, e := range path {
		if !s.seen[e] {
			return true, nil
		}
	}
	return false, nil
}

// MarkPath sets every edge index in path, incrementing the all-time count by
// the number of edges newly set, and bumps the path's visit count keyed by
// pathHash. Deferred to acceptance time: see the BitmapFeedback contract in
// Consume/MarkAccepted.
func (s *State) MarkPath(path []int, pathHash uint64) error {
	if err := s.checkBounds(path); err != nil {
		return err
	}
	for _, e := range path {
		if !s.seen[e] {
			s.seen[e] = true
			s.count++
		}
	}
	s.pathCount[pathHash]++
	return nil
}

// GetAllTimeCount returns the total number of distinct edges ever marked.
func (s *State) GetAllTimeCount() int { return s.count }

// VisitCount returns how many times pathHash has been marked, 0 if never.
func (s *State) VisitCount(pathHash uint64) int { return s.pathCount[pathHash] }
