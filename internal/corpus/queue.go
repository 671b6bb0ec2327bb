package corpus

import "sync"

// Queue is the append-only, index-addressable sequence of accepted
// test cases — the "Corpus (Queue)" entity.
type Queue struct {
	mu    sync.Mutex
	items []*Testcase
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Add appends tc and returns its index.
func (q *Queue) Add(tc *Testcase) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, tc)
	return len(q.items) - 1
}

// Len returns the number of queued test cases.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Get returns the test case at index i.
func (q *Queue) Get(i int) *Testcase {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items[i]
}

// All returns a snapshot slice of every queued test case.
func (q *Queue) All() []*Testcase {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Testcase, len(q.items))
	copy(out, q.items)
	return out
}

// AvgEdges returns the average edge count across the current corpus, 0 if
// empty. Lazily recomputed on each call since the mutational stage only
// needs it once per turn through the power stage.
func (q *Queue) AvgEdges() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return 0
	}
	var total float64
	for _, tc := range q.items {
		total += float64(len(tc.Edges))
	}
	return total / float64(len(q.items))
}

// AvgExecTime returns the average recorded execution time across the
// current corpus, 0 if empty or none yet measured.
func (q *Queue) AvgExecTime() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return 0
	}
	var total float64
	for _, tc := range q.items {
		total += tc.ExecTimeNs
	}
	return total / float64(len(q.items))
}
