// Package corpus holds the queue of interesting inputs, the set of
// persisted crashing solutions, and the scheduler that picks which queued
// input runs next.
package corpus

// Testcase is one accepted input: its bytes, the edges it exercised (if
// kept in the queue), and bookkeeping the power stage and scheduler read.
type Testcase struct {
	ID   string
	Input []byte

	// ExecTimeNs is set once the input has actually been executed and
	// timed; zero means "unmeasured".
	ExecTimeNs float64

	// Edges holds the sorted, de-duplicated edge indices from
	// feedback.MapIndexesMetadata; nil iff this testcase is not kept in a
	// queue (e.g. a throwaway solution-only testcase).
	Edges []int

	// PathHash identifies the coverage path this testcase exercised.
	PathHash uint64

	// VisitCount is the path's visit count in the queue feedback state at
	// the time this testcase was queued; it is not updated afterwards.
	VisitCount int
}

// Len returns the byte length of the input, used by the length/time
// minimizer to favor shorter inputs.
func (t *Testcase) Len() int { return len(t.Input) }
