package umath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindNearestPow2(t *testing.T) {
	for in, want := range map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 100: 128, 1 << 20: 1 << 20, 1<<20 + 1: 1 << 21} {
		assert.Equal(t, want, FindNearestPow2(in), "FindNearestPow2(%d)", in)
	}
}

func TestAlignUp(t *testing.T) {
	for in, want := range map[int]int{0: 0, 1: 4, 3: 4, 4: 4, 5: 8, 17: 20} {
		assert.Equal(t, want, AlignUp(in, 4), "AlignUp(%d, 4)", in)
	}
}
