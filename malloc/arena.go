// Functions and methods are not thread safe.

package malloc

import "unsafe"

import "github.com/bnclabs/memalloc/lib"
import s "github.com/bnclabs/gosettings"
import "github.com/dustin/go-humanize"

// Arena a bump allocator over a chain of owned byte buffers. Alloc
// advances a pointer within the first node, counting from the head,
// that has room, spawning
// a fresh node when every node is full and the chain is under its
// cap. Individual allocations cannot be freed, Reset reclaims the
// head node wholesale.
//
// The head node exclusively owns the chain and the node counters,
// those fields are unused on chained nodes.
type Arena struct {
	capacity int64 // node length in bytes, power of two
	maxnodes int64 // chain cap, head node only
	nnodes   int64 // chain length, head node only
	buf      []byte
	base     unsafe.Pointer
	ptr      int64 // bump offset into buf
	next     *Arena
}

// NewArena create a bump allocator with nodes of `capacity` bytes,
// rounded up to the next power of two. Relevant settings:
// "maxnodes". Returns nil if capacity is zero or settings are
// unusable.
func NewArena(capacity int64, setts s.Settings) *Arena {
	if capacity <= 0 {
		return nil
	} else if capacity > Maxarenasize {
		panicerr("arena node cannot exceed %v bytes (%v)", Maxarenasize, capacity)
	}
	maxnodes := setts.Int64("maxnodes")
	if maxnodes <= 0 {
		return nil
	}
	return newarenanode(lib.Nextpow2(capacity), maxnodes)
}

// capacity is already a power of two. The buffer comes back zeroed
// from the runtime.
func newarenanode(capacity, maxnodes int64) *Arena {
	arena := &Arena{
		capacity: capacity,
		maxnodes: maxnodes,
		nnodes:   1,
		buf:      make([]byte, capacity),
	}
	arena.base = unsafe.Pointer(&arena.buf[0])
	return arena
}

//---- operations

// Alloc carve `n` bytes out of the first node with room for the
// header and the payload, spawning a fresh node if the chain is under
// its cap. Returns nil on zero size, exhausted cap or released arena.
func (arena *Arena) Alloc(n int64) unsafe.Pointer {
	if arena == nil || arena.buf == nil || n <= 0 {
		return nil
	}
	if Sword+n > arena.capacity {
		return nil
	}

	node := arena
	for node.next != nil && node.isfull(n) {
		node = node.next
	}
	if node.next == nil && node.isfull(n) {
		if arena.nnodes >= arena.maxnodes {
			return nil
		}
		node.next = newarenanode(arena.capacity, arena.maxnodes)
		arena.nnodes++
		node = node.next
	}

	hdr := lib.Ptradd(node.base, node.ptr)
	*(*int64)(hdr) = n
	node.ptr += Sword + n
	return lib.Ptradd(hdr, Sword)
}

// Allocarray carve a contiguous chunk for `count` objects of `sobj`
// bytes each.
func (arena *Arena) Allocarray(sobj int64, count int) unsafe.Pointer {
	return arena.Alloc(sobj * int64(count))
}

// Strdup copy `str` into the arena along with a trailing NUL byte.
func (arena *Arena) Strdup(str string) unsafe.Pointer {
	ptr := arena.Alloc(int64(len(str)) + 1)
	if ptr == nil {
		return nil
	}
	if bs := lib.Str2bytes(str); bs != nil {
		lib.Memcpy(ptr, unsafe.Pointer(&bs[0]), len(bs))
	}
	*(*byte)(lib.Ptradd(ptr, int64(len(str)))) = 0
	return ptr
}

// Realloc move the chunk at ptr into a fresh chunk of `n` bytes,
// carrying over min(oldsize, n) bytes of content. The old chunk is
// abandoned until Reset. Note that ptr is validated against the head
// node's range, chunks handed out by chained nodes cannot be
// reallocated.
func (arena *Arena) Realloc(ptr unsafe.Pointer, n int64) unsafe.Pointer {
	if arena == nil || arena.buf == nil || ptr == nil {
		return nil
	}
	if !arena.inrange(ptr) {
		return nil
	}
	newptr := arena.Alloc(n)
	if newptr == nil {
		return nil
	}
	oldsize := *(*int64)(lib.Ptrsub(ptr, Sword))
	lib.Memcpy(newptr, ptr, int(lib.Minint64(oldsize, n)))
	return newptr
}

// Reset scrub the head node's buffer and rewind its bump pointer,
// chained nodes are left untouched.
func (arena *Arena) Reset() bool {
	if arena == nil || arena.buf == nil {
		return false
	}
	zeroout(arena.buf, 0, arena.capacity)
	arena.ptr = 0
	return true
}

// Release every node's buffer back to the runtime. The arena should
// not be used after Release.
func (arena *Arena) Release() bool {
	if arena == nil {
		return false
	}
	for node := arena; node != nil; {
		next := node.next
		node.buf, node.base, node.next = nil, nil, nil
		node.ptr = 0
		node = next
	}
	return true
}

//---- statistics

// Size of a single backing node in bytes.
func (arena *Arena) Size() int64 {
	return arena.capacity
}

// Sizeused bytes handed out from the head node, headers included.
func (arena *Arena) Sizeused() int64 {
	if arena == nil || arena.buf == nil {
		return 0
	}
	return arena.ptr
}

// Nodes chained so far.
func (arena *Arena) Nodes() int64 {
	return arena.nnodes
}

// Maxnodes cap on the chain length.
func (arena *Arena) Maxnodes() int64 {
	return arena.maxnodes
}

// Info implement api.Mallocer{} interface.
func (arena *Arena) Info() (capacity, heap, alloc, overhead int64) {
	capacity = arena.capacity * arena.maxnodes
	for node := arena; node != nil; node = node.next {
		heap += int64(len(node.buf))
		alloc += node.ptr
		overhead += int64(unsafe.Sizeof(*node))
	}
	return capacity, heap, alloc, overhead
}

// Logstatistics emit a one line summary of this arena via the
// package logger.
func (arena *Arena) Logstatistics() {
	if arena == nil {
		return
	}
	fmsg := "arena size:%v used:%v nodes:%v of %v\n"
	used := humanize.Bytes(uint64(arena.Sizeused()))
	infof(fmsg, humanize.Bytes(uint64(arena.capacity)), used,
		arena.nnodes, arena.maxnodes)
}

//---- local functions

// room for the header and the payload within this node.
func (arena *Arena) isfull(n int64) bool {
	return arena.ptr+Sword+n > arena.capacity
}

// range check against this node, the header in front of ptr supplies
// the chunk's extent.
func (arena *Arena) inrange(ptr unsafe.Pointer) bool {
	if arena.buf == nil {
		return false
	}
	start := lib.Ptrdiff(ptr, arena.base) - Sword
	if start < 0 || start+Sword > arena.capacity {
		return false
	}
	oldsize := *(*int64)(lib.Ptradd(arena.base, start))
	if oldsize <= 0 {
		return false
	}
	return start+Sword+oldsize <= arena.capacity
}
