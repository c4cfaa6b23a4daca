package tensor

import (
	"math/bits"
	"sync"
)

// Buffers are pooled by power-of-two capacity so a slice released by one
// batch can serve any later request of up to the same size.
const maxPoolBits = 31

var pools [maxPoolBits + 1]sync.Pool

func bucket(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

// Get returns a slice of length n. Its contents are unspecified.
func Get(n int) []float32 {
	if n <= 0 {
		return nil
	}
	b := bucket(n)
	if b > maxPoolBits {
		return make([]float32, n)
	}
	if p, ok := pools[b].Get().(*[]float32); ok && cap(*p) >= n {
		return (*p)[:n]
	}
	return make([]float32, n, 1<<b)
}

// Put recycles buf. Slices whose capacity is not a pool size are dropped.
func Put(buf []float32) {
	c := cap(buf)
	if c == 0 {
		return
	}
	b := bucket(c)
	if b > maxPoolBits || 1<<b != c {
		return
	}
	buf = buf[:c]
	pools[b].Put(&buf)
}
