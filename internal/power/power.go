// Package power implements the mutational stage's perf_score and iteration
// budget, deciding how many mutate-evaluate rounds a queued input deserves.
package power

import "math"

// beta dampens the iteration count by how many times a path has already
// been revisited.
const beta = 100.0

// Inputs bundles the per-input and per-corpus figures the perf_score
// formula needs.
type Inputs struct {
	// Edges is the number of edges this input's last execution exercised.
	Edges int
	// AvgEdges is the average edge count across the current corpus.
	AvgEdges float64
	// ExecTimeNs is this input's recorded execution time.
	ExecTimeNs float64
	// AvgExecTimeNs is the average execution time across the current corpus.
	AvgExecTimeNs float64
	// FuzzLevel increments each time the stage completes a full sweep of
	// one input; starts at 1.
	FuzzLevel int
	// VisitCount is the number of times this input's path has been
	// revisited; Iterations treats values below 1 (never recorded) as 1.
	VisitCount int
}

// PerfScore computes the piecewise-adjusted performance score described by
// the mutational stage's exec-time and edge-count tables, starting from a
// base of 100.0.
func PerfScore(in Inputs) float64 {
	score := 100.0

	t, T := in.ExecTimeNs, in.AvgExecTimeNs
	switch {
	case T > 0 && t*0.1 > T:
		score = 10
	case T > 0 && t*0.25 > T:
		score = 25
	case T > 0 && t*0.5 > T:
		score = 50
	case T > 0 && t*0.75 > T:
		score = 75
	case T > 0 && t*4 < T:
		score = 300
	case T > 0 && t*3 < T:
		score = 200
	case T > 0 && t*2 < T:
		score = 150
	default:
		score = 100
	}

	e, E := float64(in.Edges), in.AvgEdges
	switch {
	case E > 0 && e*0.3 > E:
		score *= 3.0
	case E > 0 && e*0.5 > E:
		score *= 2.0
	case E > 0 && e*0.75 > E:
		score *= 1.5
	case E > 0 && e*3 < E:
		score *= 0.25
	case E > 0 && e*2 < E:
		score *= 0.5
	case E > 0 && e*1.5 < E:
		score *= 0.75
	default:
		score *= 1.0
	}

	return score
}

// Iterations computes N, the number of mutate-evaluate rounds this input's
// turn through the mutational stage deserves: floor(perf_score) *
// (1<<fuzz_level) / (beta * visit_count), clamped to at least 1.
func Iterations(in Inputs) int {
	score := math.Floor(PerfScore(in))
	p := float64(in.VisitCount)
	if p < 1 {
		p = 1
	}
	level := in.FuzzLevel
	if level < 0 {
		level = 0
	}
	n := score * float64(uint64(1)<<uint(level)) / (beta * p)
	if n < 1 {
		return 1
	}
	return int(n)
}
