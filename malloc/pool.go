// Functions and methods are not thread safe.

package malloc

import "unsafe"

import "github.com/bnclabs/memalloc/lib"
import s "github.com/bnclabs/gosettings"
import "github.com/dustin/go-humanize"

// Pool a best-fit block allocator over a chain of owned byte buffers.
// Each node's buffer is partitioned into fixed sized blocks, every
// block carries a word sized header slot in front of its payload so
// that block-index and byte-offset arithmetic stays uniform. Runs of
// free blocks are tracked by a size ascending doubly linked list of
// descriptors, carved out of a private Arena owned by the node.
//
// The head node exclusively owns the chain and the node counters,
// those fields are unused on chained nodes.
type Pool struct {
	capacity   int64 // usable bytes per node, power of two
	blocksize  int64 // block length in bytes, power of two, >= Sword
	maxnodes   int64 // chain cap, head node only
	nnodes     int64 // chain length, head node only
	flcapacity int64 // byte size of each node's free-list arena
	flmaxnodes int64 // node cap of each node's free-list arena
	flarena    *Arena
	freelist   *freeregion
	buf        []byte
	base       unsafe.Pointer
	next       *Pool
}

// NewPool create a block allocator with nodes of `capacity` usable
// bytes, rounded up to the next power of two. Relevant settings:
// "blocksize", "maxnodes", "flarena.capacity", "flarena.maxnodes".
// Returns nil if capacity is zero, blocksize is less than Sword or
// settings are unusable.
//
// Each node's buffer is overcommitted by a factor of
// (blocksize+Sword)/blocksize to hold the per-block header slots.
func NewPool(capacity int64, setts s.Settings) *Pool {
	if capacity <= 0 {
		return nil
	} else if capacity > Maxarenasize {
		panicerr("pool node cannot exceed %v bytes (%v)", Maxarenasize, capacity)
	}
	blocksize := setts.Int64("blocksize")
	maxnodes := setts.Int64("maxnodes")
	if blocksize < Sword || maxnodes <= 0 {
		return nil
	}
	capacity = lib.Nextpow2(capacity)
	blocksize = lib.Nextpow2(blocksize)

	flcapacity := setts.Int64("flarena.capacity")
	if flcapacity <= 0 {
		flcapacity = lib.Minint64(flarenamax, lib.Maxint64(flarenamin, capacity/100))
	}
	flmaxnodes := setts.Int64("flarena.maxnodes")
	if flmaxnodes <= 0 {
		flmaxnodes = 5
	}
	return newpoolnode(capacity, blocksize, maxnodes, flcapacity, flmaxnodes)
}

// capacity and blocksize are already powers of two. The buffer comes
// back zeroed from the runtime, a single region covering every block
// seeds the free list.
func newpoolnode(capacity, blocksize, maxnodes, flcapacity, flmaxnodes int64) *Pool {
	pool := &Pool{
		capacity:   capacity,
		blocksize:  blocksize,
		maxnodes:   maxnodes,
		nnodes:     1,
		flcapacity: flcapacity,
		flmaxnodes: flmaxnodes,
		flarena:    newarenanode(lib.Nextpow2(flcapacity), flmaxnodes),
	}
	pool.appendregion(capacity/blocksize, 0)
	pool.buf = make([]byte, pool.sizememory())
	pool.base = unsafe.Pointer(&pool.buf[0])
	return pool
}

//---- operations

// Alloc carve `n` bytes, rounded up to a whole number of blocks, out
// of the first node whose free list has a large enough region. On a
// miss across every node a fresh node is chained, if the cap allows,
// and the request is served from its initial full-cover region.
// Returns nil on zero size, exhausted cap or released pool.
func (pool *Pool) Alloc(n int64) unsafe.Pointer {
	if pool == nil || pool.buf == nil || n <= 0 {
		return nil
	}
	blocks := lib.Ceil(n, pool.blocksize)
	if blocks > pool.capacity/pool.blocksize {
		return nil
	}

	var index int64
	node := pool
	for {
		if node.regionfind(blocks, &index) {
			break
		}
		if node.next != nil {
			node = node.next
			continue
		}
		if pool.nnodes >= pool.maxnodes {
			return nil
		}
		node.next = newpoolnode(
			pool.capacity, pool.blocksize, pool.maxnodes,
			pool.flcapacity, pool.flmaxnodes)
		pool.nnodes++
		node = node.next
	}

	ptr := lib.Ptradd(node.base, index*(Sword+node.blocksize)+Sword)
	*(*int64)(lib.Ptrsub(ptr, Sword)) = n
	return ptr
}

// Allocarray carve a contiguous chunk for `count` objects of `sobj`
// bytes each.
func (pool *Pool) Allocarray(sobj int64, count int) unsafe.Pointer {
	return pool.Alloc(sobj * int64(count))
}

// Strdup copy `str` into the pool along with a trailing NUL byte.
func (pool *Pool) Strdup(str string) unsafe.Pointer {
	ptr := pool.Alloc(int64(len(str)) + 1)
	if ptr == nil {
		return nil
	}
	if bs := lib.Str2bytes(str); bs != nil {
		lib.Memcpy(ptr, unsafe.Pointer(&bs[0]), len(bs))
	}
	*(*byte)(lib.Ptradd(ptr, int64(len(str)))) = 0
	return ptr
}

// Free return the chunk at ptr to its owning node and coalesce it
// with adjacent free runs. Returns false for pointers outside every
// node's buffer and for chunks whose header reads zero, a zero header
// means the chunk was never allocated or was already freed. The
// header and the payload are scrubbed.
func (pool *Pool) Free(ptr unsafe.Pointer) bool {
	if pool == nil || pool.buf == nil || ptr == nil {
		return false
	}
	n := *(*int64)(lib.Ptrsub(ptr, Sword))
	if n <= 0 {
		return false
	}
	node := pool.validalloc(ptr)
	if node == nil {
		return false
	}

	off := lib.Ptrdiff(ptr, node.base)
	zeroout(node.buf, off-Sword, off+n)

	index := off / (Sword + node.blocksize)
	blocks := lib.Ceil(n, node.blocksize)
	return node.regionupdate(index, blocks)
}

// Realloc move the chunk at ptr into a fresh chunk of `n` bytes and
// free the old chunk. Shrinking is not supported, a request smaller
// than the chunk's original size returns nil. If freeing the old
// chunk fails the fresh chunk is freed and nil is returned.
func (pool *Pool) Realloc(ptr unsafe.Pointer, n int64) unsafe.Pointer {
	if pool == nil || pool.buf == nil || ptr == nil {
		return nil
	}
	node := pool.validalloc(ptr)
	if node == nil {
		return nil
	}
	newptr := pool.Alloc(n)
	if newptr == nil {
		return nil
	}

	oldsize := *(*int64)(lib.Ptrsub(ptr, Sword))
	if oldsize > n {
		return nil
	}
	copyn := lib.Minint64(n, int64(len(node.buf))-lib.Ptrdiff(ptr, node.base))
	lib.Memcpy(newptr, ptr, int(copyn))

	if !pool.Free(ptr) {
		pool.Free(newptr)
		return nil
	}
	return newptr
}

// Reset forget every live allocation on every node in the chain,
// scrub the block buffers and rebuild each node's free list as a
// single full-cover region. Each node's free-list arena is Reset,
// which reclaims the descriptors held in the arena's head node;
// descriptors in the arena's chained nodes stay allocated.
func (pool *Pool) Reset() bool {
	if pool == nil || pool.buf == nil {
		return false
	}
	for node := pool; node != nil; node = node.next {
		node.flarena.Reset()
		node.freelist = nil
		node.appendregion(node.capacity/node.blocksize, 0)
		zeroout(node.buf, 0, int64(len(node.buf)))
	}
	return true
}

// Release every node's buffer and free-list arena back to the
// runtime. The pool should not be used after Release.
func (pool *Pool) Release() bool {
	if pool == nil {
		return false
	}
	for node := pool; node != nil; {
		next := node.next
		node.flarena.Release()
		node.flarena, node.freelist = nil, nil
		node.buf, node.base, node.next = nil, nil, nil
		node = next
	}
	return true
}

//---- statistics

// Size usable bytes of a single backing node, headers excluded.
func (pool *Pool) Size() int64 {
	return pool.capacity
}

// Blocksize allocation quantum in bytes.
func (pool *Pool) Blocksize() int64 {
	return pool.blocksize
}

// Sizeused bytes held by live allocations across every node, counted
// in whole blocks.
func (pool *Pool) Sizeused() int64 {
	if pool == nil || pool.buf == nil {
		return 0
	}
	total := int64(0)
	for node := pool; node != nil; node = node.next {
		count := int64(0)
		for region := node.freelist; region != nil; region = region.next {
			count += region.nblocks
		}
		total += node.capacity - count*pool.blocksize
	}
	return total
}

// Nodes chained so far.
func (pool *Pool) Nodes() int64 {
	return pool.nnodes
}

// Maxnodes cap on the chain length.
func (pool *Pool) Maxnodes() int64 {
	return pool.maxnodes
}

// Info implement api.Mallocer{} interface. Heap and overhead include
// each node's free-list arena.
func (pool *Pool) Info() (capacity, heap, alloc, overhead int64) {
	capacity = pool.capacity * pool.maxnodes
	alloc = pool.Sizeused()
	for node := pool; node != nil; node = node.next {
		heap += int64(len(node.buf))
		overhead += int64(unsafe.Sizeof(*node))
		if node.flarena != nil {
			_, flheap, _, floverhead := node.flarena.Info()
			heap += flheap
			overhead += flheap + floverhead
		}
	}
	return capacity, heap, alloc, overhead
}

// Logstatistics emit a one line summary of this pool via the package
// logger.
func (pool *Pool) Logstatistics() {
	if pool == nil {
		return
	}
	fmsg := "pool size:%v block:%v used:%v nodes:%v of %v\n"
	used := humanize.Bytes(uint64(pool.Sizeused()))
	infof(fmsg, humanize.Bytes(uint64(pool.capacity)),
		humanize.Bytes(uint64(pool.blocksize)), used,
		pool.nnodes, pool.maxnodes)
}

//---- local functions

// buffer length for one node, block payloads plus one header slot
// per block.
func (pool *Pool) sizememory() int64 {
	return pool.capacity + Sword*(pool.capacity/pool.blocksize)
}

// locate the node whose buffer holds ptr, nil if the pointer is
// foreign to every node in the chain.
func (pool *Pool) validalloc(ptr unsafe.Pointer) *Pool {
	for node := pool; node != nil; node = node.next {
		if node.inrange(ptr) {
			return node
		}
	}
	return nil
}

// range check against this node, the header in front of ptr supplies
// the chunk's extent.
func (pool *Pool) inrange(ptr unsafe.Pointer) bool {
	if pool.buf == nil {
		return false
	}
	start := lib.Ptrdiff(ptr, pool.base) - Sword
	if start < 0 || start+Sword > int64(len(pool.buf)) {
		return false
	}
	n := *(*int64)(lib.Ptradd(pool.base, start))
	if n <= 0 {
		return false
	}
	return start+Sword+n <= int64(len(pool.buf))
}
