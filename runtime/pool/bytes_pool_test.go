package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBytes(t *testing.T) {
	b := GetBytes(100)
	require.NotNil(t, b)
	assert.Equal(t, 0, len(*b))
	assert.Equal(t, 128, cap(*b))
	assert.NoError(t, PutBytes(*b))

	huge := GetBytes(MaxPooledSize + 1)
	assert.Equal(t, 2*MaxPooledSize, cap(*huge))
	assert.NoError(t, PutBytes(*huge))
}

func TestPutBytesRejectsOddCapacity(t *testing.T) {
	assert.Error(t, PutBytes(make([]byte, 0, 12)))
	assert.NoError(t, PutBytes(nil))
}
