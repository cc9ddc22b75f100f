package lib

import "unsafe"

// Ptradd return pointer advanced by `off` bytes.
func Ptradd(ptr unsafe.Pointer, off int64) unsafe.Pointer {
	return unsafe.Pointer(uintptr(ptr) + uintptr(off))
}

// Ptrsub return pointer moved back by `off` bytes.
func Ptrsub(ptr unsafe.Pointer, off int64) unsafe.Pointer {
	return unsafe.Pointer(uintptr(ptr) - uintptr(off))
}

// Ptrdiff return (a - b) as a signed byte count.
func Ptrdiff(a, b unsafe.Pointer) int64 {
	return int64(uintptr(a)) - int64(uintptr(b))
}
