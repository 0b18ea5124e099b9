package utils

// GridSize is the number of combinations spanned by dims. Any empty axis makes the
// grid empty.
func GridSize(dims []int) int {
	if len(dims) == 0 {
		return 0
	}
	n := 1
	for _, v := range dims {
		if v <= 0 {
			return 0
		}
		n *= v
	}
	return n
}

// SubFor constructs the multi-dimensional subscript for the input linear index.
// Dims specifies the maximum size in each dimension.
//
// If sub is non-nil the result is stored in-place into sub. If it is nil a new
// slice of the appropriate length is allocated.
func SubFor(sub []int, idx int, dims []int) []int {
	for _, v := range dims {
		if v <= 0 {
			panic("bad dims")
		}
	}
	if sub == nil {
		sub = make([]int, len(dims))
	}
	if len(sub) != len(dims) {
		panic("size mismatch")
	}
	if idx < 0 || idx >= GridSize(dims) {
		panic("bad index")
	}
	for i := len(dims) - 1; i >= 0; i-- {
		sub[i] = idx % dims[i]
		idx /= dims[i]
	}
	return sub
}
