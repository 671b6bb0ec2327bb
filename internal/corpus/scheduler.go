package corpus

import "sort"

// Scheduler is a FIFO queue wrapped in a length x time minimizer: among a
// favored subset (the shortest, fastest queue entries), it round-robins.
// While favoring is on, entries outside the favored subset are not
// scheduled; the subset is recomputed from the queue on every call.
type Scheduler struct {
	q          *Queue
	cursor     int
	favoredLen int
}

// NewScheduler binds a Scheduler to q. favoredLen caps how many of the
// shortest/fastest entries count as "favored"; 0 means no favoring, plain
// round-robin over the whole queue.
func NewScheduler(q *Queue, favoredLen int) *Scheduler {
	return &Scheduler{q: q, favoredLen: favoredLen}
}

// Next returns the index of the next test case to run, or (-1, false) if
// the queue is empty.
func (s *Scheduler) Next() (int, bool) {
	n := s.q.Len()
	if n == 0 {
		return -1, false
	}

	favored := s.favoredIndices()
	if len(favored) == 0 {
		idx := s.cursor % n
		s.cursor++
		return idx, true
	}

	idx := favored[s.cursor%len(favored)]
	s.cursor++
	return idx, true
}

// favoredIndices returns up to favoredLen queue indices, ordered by
// ascending input length then ascending exec time — the length x time
// minimizer's notion of "favored".
func (s *Scheduler) favoredIndices() []int {
	if s.favoredLen <= 0 {
		return nil
	}
	all := s.q.All()
	idx := make([]int, len(all))
	for i := range all {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		ta, tb := all[idx[a]], all[idx[b]]
		if ta.Len() != tb.Len() {
			return ta.Len() < tb.Len()
		}
		return ta.ExecTimeNs < tb.ExecTimeNs
	})
	if len(idx) > s.favoredLen {
		idx = idx[:s.favoredLen]
	}
	return idx
}
