package malloc

import "unsafe"

import "github.com/bnclabs/memalloc/lib"

// freeregion describe a maximal run of free blocks within one pool
// node. Descriptors are carved out of the node's flarena and linked
// into a doubly linked list kept in ascending nblocks order, ties
// preserve insertion order. Descriptors are never returned to the
// flarena individually, Reset reclaims those held in the flarena's
// head node.
type freeregion struct {
	startblock int64 // block index of the first free block
	nblocks    int64 // run length in blocks
	prev       *freeregion
	next       *freeregion
}

func (region *freeregion) end() int64 {
	return region.startblock + region.nblocks
}

// carve a fresh descriptor out of the node's flarena. Exhaustion of
// the flarena is an invariant breach, not a recoverable failure.
func (pool *Pool) newregion() *freeregion {
	ptr := pool.flarena.Alloc(int64(unsafe.Sizeof(freeregion{})))
	if ptr == nil {
		panicerr("pool freelist arena exhausted (%v nodes)", pool.flarena.Nodes())
	}
	return (*freeregion)(ptr)
}

// best-fit find for `blocks` on this node. The list ascends by
// nblocks, so the first region that satisfies the request is the
// smallest fit. The winning region is shrunk in place, an emptied
// region is unlinked, otherwise the shrunk region bubbles towards the
// head by swapping content with its left neighbour until the order
// invariant is restored. List links stay stable, at most the shrunk
// region moves.
func (pool *Pool) regionfind(blocks int64, index *int64) bool {
	if blocks <= 0 {
		return false
	}
	for region := pool.freelist; region != nil; region = region.next {
		if region.nblocks < blocks {
			continue
		}
		*index = region.startblock
		region.nblocks -= blocks
		region.startblock += blocks
		if region.nblocks == 0 {
			pool.unlinkregion(region)
		} else {
			for region.prev != nil && region.nblocks < region.prev.nblocks {
				lib.Swapint64(&region.startblock, &region.prev.startblock)
				lib.Swapint64(&region.nblocks, &region.prev.nblocks)
				region = region.prev
			}
		}
		return true
	}
	return false
}

// coalescing update for a freed run [index, index+blocks). The scan
// ignores list order, adjacency is a property of block indices. Merge
// with the left neighbour, the right neighbour, both, or insert a
// fresh region, re-sorting whatever changed size.
func (pool *Pool) regionupdate(index, blocks int64) bool {
	if blocks <= 0 {
		return false
	}

	var left, right *freeregion
	for region := pool.freelist; region != nil; region = region.next {
		if region.end() == index {
			left = region
		} else if region.startblock == index+blocks {
			right = region
		}
		if left != nil && right != nil {
			break
		}
	}

	if left != nil && right != nil {
		// [left][freed][right] merge into one region, right's
		// descriptor leaks until Reset.
		pool.unlinkregion(left)
		pool.unlinkregion(right)
		left.nblocks += blocks + right.nblocks
		pool.insertregion(left)
		return true
	}
	if left != nil {
		// [left][freed]
		pool.unlinkregion(left)
		left.nblocks += blocks
		pool.insertregion(left)
		return true
	}
	if right != nil {
		// [freed][right]
		pool.unlinkregion(right)
		right.startblock = index
		right.nblocks += blocks
		pool.insertregion(right)
		return true
	}

	region := pool.newregion()
	region.startblock, region.nblocks = index, blocks
	region.prev, region.next = nil, nil
	pool.insertregion(region)
	return true
}

// append a fresh region at the tail, only used to seed an empty list
// at create and reset time.
func (pool *Pool) appendregion(nblocks, startblock int64) {
	region := pool.newregion()
	region.startblock, region.nblocks = startblock, nblocks
	region.prev, region.next = nil, nil

	var prev *freeregion
	node := pool.freelist
	for node != nil {
		prev, node = node, node.next
	}
	region.prev = prev
	if prev != nil {
		prev.next = region
	} else {
		pool.freelist = region
	}
}

func (pool *Pool) unlinkregion(region *freeregion) {
	if region.prev != nil {
		region.prev.next = region.next
	} else {
		pool.freelist = region.next
	}
	if region.next != nil {
		region.next.prev = region.prev
	}
	region.prev, region.next = nil, nil
}

// splice region before the first strictly greater neighbour, ties
// land after existing equals.
func (pool *Pool) insertregion(region *freeregion) {
	var prev *freeregion
	curr := pool.freelist
	for curr != nil && curr.nblocks <= region.nblocks {
		prev, curr = curr, curr.next
	}
	region.prev, region.next = prev, curr
	if prev != nil {
		prev.next = region
	} else {
		pool.freelist = region
	}
	if curr != nil {
		curr.prev = region
	}
}
