package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueAddAndGet(t *testing.T) {
	q := NewQueue()
	idx := q.Add(&Testcase{Input: []byte("abc"), Edges: []int{1, 2}})
	assert.Equal(t, 0, idx)
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, "abc", string(q.Get(0).Input))
}

func TestQueueAvgEdgesAndExecTime(t *testing.T) {
	q := NewQueue()
	q.Add(&Testcase{Edges: []int{1, 2}, ExecTimeNs: 100})
	q.Add(&Testcase{Edges: []int{1, 2, 3, 4}, ExecTimeNs: 300})

	assert.Equal(t, 3.0, q.AvgEdges())
	assert.Equal(t, 200.0, q.AvgExecTime())
}

func TestQueueAvgOnEmpty(t *testing.T) {
	q := NewQueue()
	assert.Equal(t, 0.0, q.AvgEdges())
	assert.Equal(t, 0.0, q.AvgExecTime())
}
