package pool

import (
	"fmt"
	"sync"

	"github.com/kanengo/parcelgen/internal/umath"
)

// MaxPooledSize is the largest buffer capacity kept in a pool. Larger
// buffers are allocated and dropped normally.
const MaxPooledSize = 1 << 24

var bytesPools = func() map[int]*sync.Pool {
	pools := make(map[int]*sync.Pool, 25)
	for n := 1; n <= MaxPooledSize; n *= 2 {
		pools[n] = &sync.Pool{New: func() any {
			s := make([]byte, 0, n)
			return &s
		}}
	}
	return pools
}()

// GetBytes returns an empty buffer whose capacity is the power of two
// nearest to size.
func GetBytes(size int) *[]byte {
	size = umath.FindNearestPow2(size)
	p, ok := bytesPools[size]
	if !ok {
		s := make([]byte, 0, size)
		return &s
	}
	return p.Get().(*[]byte)
}

// PutBytes returns a buffer obtained from GetBytes to its pool.
func PutBytes(data []byte) error {
	size := cap(data)
	if size == 0 {
		return nil
	}
	if size > MaxPooledSize {
		return nil
	}
	p, ok := bytesPools[size]
	if !ok {
		return fmt.Errorf("buffer capacity %d is not a power of two", size)
	}
	data = data[:0]
	p.Put(&data)
	return nil
}
