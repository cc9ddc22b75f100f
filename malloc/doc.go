// Package malloc supplies custom memory management over heap backed
// byte buffers, with a limited scope:
//
//   - Types and Functions exported by this package are not thread safe.
//   - Two cooperating disciplines are supplied, a bump allocator
//     called Arena and a best-fit block allocator called Pool.
//   - Both allocators grow by chaining fixed sized backing buffers,
//     called nodes, up to a caller specified cap.
//   - Every allocation is preceded by a word sized header holding the
//     requested byte count, later calls recover original sizes from
//     the header without an external ledger.
//   - Memory is given back to the runtime only when the allocator is
//     Released.
//
// Arena serves requests by advancing a single pointer, individual
// frees are unsupported, Reset reclaims everything at once. Use it
// for per-task lifetimes where all memory is released together.
//
// Pool partitions each node into fixed sized blocks and maintains a
// size-sorted doubly linked list of free-region descriptors. Alloc
// performs best-fit selection with in-place sort repair, Free
// performs three-way adjacency coalescing. The descriptors themselves
// are carved out of a private Arena owned by each Pool node, so that
// free-list metadata does not fragment the system heap.
package malloc
