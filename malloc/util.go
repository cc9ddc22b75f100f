package malloc

import "fmt"
import "errors"
import "unsafe"

// ErrorOutofMemory allocation failed because a new node is needed and
// the node cap is reached, or the runtime refused more memory.
var ErrorOutofMemory = errors.New("malloc.outofmemory")

// Sword width in bytes of an allocation's size header, same as the
// machine's pointer width.
const Sword = int64(unsafe.Sizeof(uintptr(0)))

// Maxarenasize maximum size of a single backing node.
const Maxarenasize = int64(1024 * 1024 * 1024 * 1024) // 1TB

// bounds for the sizing heuristic of a pool's free-list arena.
const flarenamin = int64(1024)               // 1KB
const flarenamax = int64(10 * 1024 * 1024)   // 10MB

func panicerr(fmsg string, args ...interface{}) {
	panic(fmt.Errorf(fmsg, args...))
}

func zeroout(buf []byte, from, till int64) {
	buf = buf[from:till]
	for i := range buf {
		buf[i] = 0
	}
}
