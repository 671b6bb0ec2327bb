package mutate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetScratchReturnsRequestedLength(t *testing.T) {
	b := GetScratch(100)
	assert.Len(t, b, 100)
	PutScratch(b)
}

func TestGetScratchAboveLargestTierFallsBack(t *testing.T) {
	b := GetScratch(size64k + 1)
	assert.Len(t, b, size64k+1)
	PutScratch(b) // dropped silently, must not panic
}

func TestPutScratchRoundTrip(t *testing.T) {
	b := GetScratch(size16k)
	b[0] = 0xAB
	PutScratch(b)

	b2 := GetScratch(size16k)
	assert.Len(t, b2, size16k)
}
