package outfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteBufTruncatesAndFlushes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")
	of, err := New(path, 4)
	require.NoError(t, err)
	defer of.Close()

	require.NoError(t, of.WriteBuf([]byte("hello world")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hell", string(data))
}

func TestWriteBufShorterThanMaxLen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")
	of, err := New(path, 2048)
	require.NoError(t, err)
	defer of.Close()

	require.NoError(t, of.WriteBuf([]byte("AB")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "AB", string(data))
}

func TestWriteBufReplacesPriorContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")
	of, err := New(path, 2048)
	require.NoError(t, err)
	defer of.Close()

	require.NoError(t, of.WriteBuf([]byte("first input, quite long")))
	require.NoError(t, of.WriteBuf([]byte("AB")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "AB", string(data))
}

func TestSubstituteArgvReplacesToken(t *testing.T) {
	got := SubstituteArgv([]string{"--file", "@@", "--verbose"}, "/tmp/out-1")
	assert.Equal(t, []string{"--file", "/tmp/out-1", "--verbose"}, got)
}

func TestSubstituteArgvAppendsWhenMissing(t *testing.T) {
	got := SubstituteArgv([]string{"--verbose"}, "/tmp/out-1")
	assert.Equal(t, []string{"--verbose", "/tmp/out-1"}, got)
}

func TestSubstituteArgvAppendsOnEmpty(t *testing.T) {
	got := SubstituteArgv(nil, "/tmp/out-1")
	assert.Equal(t, []string{"/tmp/out-1"}, got)
}
