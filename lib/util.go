package lib

import "unsafe"
import "reflect"

// Nextpow2 return the smallest power of two greater than or equal to n,
// n as zero returns 1. Implemented by smearing the highest set bit into
// every lower position and adding one.
func Nextpow2(n int64) int64 {
	if n == 0 {
		return 1
	}
	s := uint64(n - 1)
	s |= s >> 1
	s |= s >> 2
	s |= s >> 4
	s |= s >> 8
	s |= s >> 16
	s |= s >> 32
	return int64(s + 1)
}

// Ceil integer division of a by b rounded towards positive infinity,
// for non-negative a and positive b.
func Ceil(a, b int64) int64 {
	if a == 0 {
		return 0
	}
	return ((a - 1) / b) + 1
}

// Minint64 minimum of a and b.
func Minint64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// Maxint64 maximum of a and b.
func Maxint64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// Swapint64 exchange the values held by a and b.
func Swapint64(a, b *int64) {
	*a, *b = *b, *a
}

// Str2bytes morph string to a byte-slice without copying. Note that the
// source string should remain in scope as long as byte-slice is in scope.
func Str2bytes(str string) []byte {
	if str == "" {
		return nil
	}
	st := (*reflect.StringHeader)(unsafe.Pointer(&str))
	sl := &reflect.SliceHeader{Data: st.Data, Len: st.Len, Cap: st.Len}
	return *(*[]byte)(unsafe.Pointer(sl))
}

// Memcpy copy memory block of length `ln` from `src` to `dst`. This
// function is useful if memory block is obtained outside golang runtime.
func Memcpy(dst, src unsafe.Pointer, ln int) int {
	var srcnd, dstnd []byte
	srcsl := (*reflect.SliceHeader)(unsafe.Pointer(&srcnd))
	srcsl.Len, srcsl.Cap = ln, ln
	srcsl.Data = (uintptr)(unsafe.Pointer(src))
	dstsl := (*reflect.SliceHeader)(unsafe.Pointer(&dstnd))
	dstsl.Len, dstsl.Cap = ln, ln
	dstsl.Data = (uintptr)(unsafe.Pointer(dst))
	return copy(dstnd, srcnd)
}
