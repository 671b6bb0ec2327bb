package power

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPerfScoreDefaultIsBaseline(t *testing.T) {
	assert.Equal(t, 100.0, PerfScore(Inputs{}))
}

func TestPerfScoreFastExecutionRewarded(t *testing.T) {
	got := PerfScore(Inputs{ExecTimeNs: 20, AvgExecTimeNs: 100}) // t*0.1=2 <=100, t*0.25=5<=100... check thresholds
	// t=20,T=100: t*0.1=2 (not >100); t*0.25=5(not>100); t*0.5=10(not>100); t*0.75=15(not>100)
	// t*4=80 < 100 -> score 300
	assert.Equal(t, 300.0, got)
}

func TestPerfScoreVerySlowExecutionDrastic(t *testing.T) {
	// t*0.1 > T => score 10
	got := PerfScore(Inputs{ExecTimeNs: 2000, AvgExecTimeNs: 100})
	assert.Equal(t, 10.0, got)
}

func TestPerfScoreEdgeCountFactor(t *testing.T) {
	// No exec-time data (T=0) leaves the time multiplier at baseline 100;
	// edges*0.3 > avgEdges (e.g. e=100, E=10 -> 30>10) -> factor 3.0
	got := PerfScore(Inputs{Edges: 100, AvgEdges: 10})
	assert.Equal(t, 300.0, got)
}

func TestIterationsClampedToAtLeastOne(t *testing.T) {
	n := Iterations(Inputs{FuzzLevel: 1, VisitCount: 100000})
	assert.Equal(t, 1, n)
}

func TestIterationsScalesWithFuzzLevel(t *testing.T) {
	low := Iterations(Inputs{FuzzLevel: 1, VisitCount: 1})
	high := Iterations(Inputs{FuzzLevel: 4, VisitCount: 1})
	assert.Greater(t, high, low)
}

func TestIterationsDampensWithVisitCount(t *testing.T) {
	seldom := Iterations(Inputs{FuzzLevel: 3, VisitCount: 1})
	often := Iterations(Inputs{FuzzLevel: 3, VisitCount: 10})
	assert.Greater(t, seldom, often)
}
