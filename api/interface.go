package api

import "unsafe"

// Mallocer interface for custom memory management. Arena and Pool
// from the malloc package implement this interface. Methods are not
// thread safe, failures are surfaced as nil/false sentinels.
type Mallocer interface {
	// Alloc a chunk of `n` bytes. The size of the chunk is remembered
	// in a word-sized header preceding the returned pointer, there is
	// no need to supply it back for Realloc or Free.
	Alloc(n int64) unsafe.Pointer

	// Realloc allocate a fresh chunk of `n` bytes and carry over the
	// contents of ptr. The old chunk is reclaimed if the allocator
	// supports individual frees, else abandoned.
	Realloc(ptr unsafe.Pointer, n int64) unsafe.Pointer

	// Reset forget live allocations and scrub the backing buffer, the
	// allocator is ready for reuse. Pool resets every node in its
	// chain, Arena resets its head node only and leaves chained nodes
	// as they are.
	Reset() bool

	// Release the allocator and all its resources back to the
	// runtime. The handle should not be used after Release.
	Release() bool

	// Size of a single backing node in bytes.
	Size() int64

	// Sizeused number of bytes in use. Arena reports its head node's
	// bump offset, per-allocation headers included. Pool reports the
	// whole blocks held by live allocations across every node, header
	// slots excluded.
	Sizeused() int64

	// Nodes number of backing nodes chained so far.
	Nodes() int64

	// Maxnodes limit on the number of backing nodes.
	Maxnodes() int64

	// Info of memory accounting for this allocator: configured
	// capacity, heap memory acquired from the runtime, bytes
	// allocated to the application and book-keeping overhead.
	Info() (capacity, heap, alloc, overhead int64)
}

// Pooler a Mallocer that supports freeing individual chunks back to
// the allocator.
type Pooler interface {
	Mallocer

	// Free the chunk at ptr. Returns false for pointers that do not
	// belong to this pool and for chunks that are not live.
	Free(ptr unsafe.Pointer) bool

	// Blocksize allocation quantum in bytes, every chunk occupies an
	// integral number of blocks.
	Blocksize() int64
}
