package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolutionsAddWritesUniqueFiles(t *testing.T) {
	dir := t.TempDir()
	sol, err := NewSolutions(dir)
	require.NoError(t, err)

	p1, err := sol.Add(&Testcase{Input: []byte("crash one")})
	require.NoError(t, err)
	p2, err := sol.Add(&Testcase{Input: []byte("crash two")})
	require.NoError(t, err)

	assert.NotEqual(t, p1, p2)
	assert.Equal(t, 2, sol.Len())

	data, err := os.ReadFile(p1)
	require.NoError(t, err)
	assert.Equal(t, "crash one", string(data))
}

func TestQueueWriterWritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "queue")
	qw, err := NewQueueWriter(dir)
	require.NoError(t, err)

	path, err := qw.Write(&Testcase{Input: []byte("seed")})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "seed", string(data))
}
