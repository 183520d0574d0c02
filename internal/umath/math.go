package umath

// FindNearestPow2 returns the smallest power of two >= x, or 1 for x <= 1.
func FindNearestPow2(x int) int {
	x -= 1
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	x |= x >> 32

	if x < 0 {
		return 1
	}

	return x + 1
}

// AlignUp rounds n up to a multiple of unit, which must be a power of two.
func AlignUp(n, unit int) int {
	return (n + unit - 1) &^ (unit - 1)
}
