package malloc

import "fmt"
import "testing"

import "github.com/bnclabs/memalloc/lib"
import s "github.com/bnclabs/gosettings"

var _ = fmt.Sprintf("dummy")

func TestNewarena(t *testing.T) {
	marena := NewArena(100, s.Settings{"maxnodes": int64(4)})
	if marena == nil {
		t.Fatalf("unexpected nil arena")
	}
	if x := marena.Size(); x != 128 {
		t.Errorf("expected %v, got %v", 128, x)
	} else if x := marena.Nodes(); x != 1 {
		t.Errorf("expected %v, got %v", 1, x)
	} else if x := marena.Maxnodes(); x != 4 {
		t.Errorf("expected %v, got %v", 4, x)
	} else if x := marena.Sizeused(); x != 0 {
		t.Errorf("expected %v, got %v", 0, x)
	}
	marena.Release()

	if marena := NewArena(0, s.Settings{"maxnodes": int64(4)}); marena != nil {
		t.Errorf("expected nil for zero capacity")
	}
	if marena := NewArena(64, s.Settings{"maxnodes": int64(0)}); marena != nil {
		t.Errorf("expected nil for zero maxnodes")
	}

	// panic case
	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Errorf("expected panic")
			}
		}()
		NewArena(Maxarenasize+1, s.Settings{"maxnodes": int64(1)})
	}()
}

func TestArenaAlloc(t *testing.T) {
	// scenario: 64 byte nodes, two node cap.
	marena := NewArena(64, s.Settings{"maxnodes": int64(2)})
	p1 := marena.Alloc(40)
	if p1 == nil {
		t.Fatalf("unexpected allocation failure")
	}
	if x := marena.Nodes(); x != 1 {
		t.Errorf("expected %v, got %v", 1, x)
	} else if x := marena.Sizeused(); x != 48 {
		t.Errorf("expected %v, got %v", 48, x)
	}

	p2 := marena.Alloc(40)
	if p2 == nil {
		t.Fatalf("unexpected allocation failure")
	}
	if x := marena.Nodes(); x != 2 {
		t.Errorf("expected %v, got %v", 2, x)
	}

	if p3 := marena.Alloc(40); p3 != nil {
		t.Errorf("expected nil, node cap reached")
	}
	marena.Release()

	// zero and negative sizes.
	marena = NewArena(64, s.Settings{"maxnodes": int64(1)})
	if ptr := marena.Alloc(0); ptr != nil {
		t.Errorf("expected nil for zero size")
	}
	if ptr := marena.Alloc(-1); ptr != nil {
		t.Errorf("expected nil for negative size")
	}
	var nilarena *Arena
	if ptr := nilarena.Alloc(10); ptr != nil {
		t.Errorf("expected nil for nil arena")
	}
	// header and payload can never fit a node.
	if ptr := marena.Alloc(64); ptr != nil {
		t.Errorf("expected nil for oversized request")
	}
	marena.Release()
}

func TestArenaHeader(t *testing.T) {
	marena := NewArena(1024, s.Settings{"maxnodes": int64(1)})
	for _, n := range []int64{1, 7, 8, 100, 333} {
		ptr := marena.Alloc(n)
		if ptr == nil {
			t.Fatalf("unexpected allocation failure for %v", n)
		}
		if x := *(*int64)(lib.Ptrsub(ptr, Sword)); x != n {
			t.Errorf("expected %v, got %v", n, x)
		}
	}
	marena.Release()
}

func TestArenaExactfill(t *testing.T) {
	// header and payload together land exactly on the node boundary.
	marena := NewArena(64, s.Settings{"maxnodes": int64(1)})
	if ptr := marena.Alloc(56); ptr == nil {
		t.Errorf("expected chunk filling node exactly")
	}
	if x := marena.Sizeused(); x != 64 {
		t.Errorf("expected %v, got %v", 64, x)
	}
	if ptr := marena.Alloc(1); ptr != nil {
		t.Errorf("expected nil on full node")
	}
	marena.Release()
}

func TestArenaRealloc(t *testing.T) {
	marena := NewArena(1024, s.Settings{"maxnodes": int64(2)})
	ptr := marena.Alloc(16)
	for i := int64(0); i < 16; i++ {
		*(*byte)(lib.Ptradd(ptr, i)) = byte(i + 1)
	}

	newptr := marena.Realloc(ptr, 40)
	if newptr == nil {
		t.Fatalf("unexpected realloc failure")
	}
	for i := int64(0); i < 16; i++ {
		if x := *(*byte)(lib.Ptradd(newptr, i)); x != byte(i+1) {
			t.Errorf("expected %v, got %v", byte(i+1), x)
		}
	}
	// the tail comes from a zeroed buffer.
	for i := int64(16); i < 40; i++ {
		if x := *(*byte)(lib.Ptradd(newptr, i)); x != 0 {
			t.Errorf("expected %v, got %v", 0, x)
		}
	}

	// shrinking copies only the requested count.
	smallptr := marena.Realloc(newptr, 8)
	if smallptr == nil {
		t.Fatalf("unexpected realloc failure")
	}
	for i := int64(0); i < 8; i++ {
		if x := *(*byte)(lib.Ptradd(smallptr, i)); x != byte(i+1) {
			t.Errorf("expected %v, got %v", byte(i+1), x)
		}
	}

	// nil and out of range pointers.
	if x := marena.Realloc(nil, 10); x != nil {
		t.Errorf("expected nil for nil pointer")
	}
	if x := marena.Realloc(lib.Ptradd(marena.base, 2048), 10); x != nil {
		t.Errorf("expected nil for pointer past the node")
	}
	if x := marena.Realloc(lib.Ptradd(marena.base, 4), 10); x != nil {
		t.Errorf("expected nil for pointer into the head word")
	}
	marena.Release()
}

func TestArenaReallocChained(t *testing.T) {
	// pointers handed out by chained nodes are rejected, only the
	// head node's range participates in validation.
	marena := NewArena(64, s.Settings{"maxnodes": int64(2)})
	p1 := marena.Alloc(40)
	p2 := marena.Alloc(40) // lands on the second node
	if marena.Nodes() != 2 {
		t.Fatalf("expected two nodes")
	}
	// the head node still has room for a 4 byte chunk, so a nil here
	// comes from the range check and not from a failed Alloc.
	if x := marena.Realloc(p2, 4); x != nil {
		t.Errorf("expected nil for chained node pointer")
	}
	if x := marena.Realloc(p1, 4); x == nil {
		t.Errorf("unexpected realloc failure for head pointer")
	}
	marena.Release()
}

func TestArenaReset(t *testing.T) {
	marena := NewArena(1024, s.Settings{"maxnodes": int64(2)})
	offsets := []int64{}
	for i := 0; i < 8; i++ {
		ptr := marena.Alloc(56)
		offsets = append(offsets, lib.Ptrdiff(ptr, marena.base))
	}
	if ok := marena.Reset(); !ok {
		t.Errorf("expected true")
	}
	if x := marena.Sizeused(); x != 0 {
		t.Errorf("expected %v, got %v", 0, x)
	}
	for i := range marena.buf {
		if marena.buf[i] != 0 {
			t.Fatalf("buffer not scrubbed at %v", i)
		}
	}
	// the same sequence produces the same pointers.
	for i := 0; i < 8; i++ {
		ptr := marena.Alloc(56)
		if x := lib.Ptrdiff(ptr, marena.base); x != offsets[i] {
			t.Errorf("expected %v, got %v", offsets[i], x)
		}
	}

	var nilarena *Arena
	if ok := nilarena.Reset(); ok {
		t.Errorf("expected false for nil arena")
	}
	marena.Release()
	if ok := marena.Reset(); ok {
		t.Errorf("expected false after release")
	}
}

func TestArenaAllocarray(t *testing.T) {
	marena := NewArena(1024, s.Settings{"maxnodes": int64(1)})
	ptr := marena.Allocarray(24, 10)
	if ptr == nil {
		t.Fatalf("unexpected allocation failure")
	}
	if x := *(*int64)(lib.Ptrsub(ptr, Sword)); x != 240 {
		t.Errorf("expected %v, got %v", 240, x)
	}
	marena.Release()
}

func TestArenaStrdup(t *testing.T) {
	marena := NewArena(1024, s.Settings{"maxnodes": int64(1)})
	ptr := marena.Strdup("hello world")
	if ptr == nil {
		t.Fatalf("unexpected allocation failure")
	}
	if x := *(*int64)(lib.Ptrsub(ptr, Sword)); x != 12 {
		t.Errorf("expected %v, got %v", 12, x)
	}
	for i, ch := range []byte("hello world\x00") {
		if x := *(*byte)(lib.Ptradd(ptr, int64(i))); x != ch {
			t.Errorf("expected %v, got %v", ch, x)
		}
	}
	if ptr := marena.Strdup(""); ptr == nil {
		t.Errorf("unexpected failure for empty string")
	} else if x := *(*int64)(lib.Ptrsub(ptr, Sword)); x != 1 {
		t.Errorf("expected %v, got %v", 1, x)
	}
	marena.Release()
}

func TestArenaInfo(t *testing.T) {
	marena := NewArena(1024, s.Settings{"maxnodes": int64(4)})
	capacity, heap, alloc, overhead := marena.Info()
	if capacity != 4096 {
		t.Errorf("unexpected capacity %v", capacity)
	} else if heap != 1024 {
		t.Errorf("unexpected heap %v", heap)
	} else if alloc != 0 {
		t.Errorf("unexpected alloc %v", alloc)
	} else if overhead <= 0 {
		t.Errorf("unexpected overhead %v", overhead)
	}

	marena.Alloc(100)
	marena.Alloc(1000) // spills into a second node
	_, heap, alloc, _ = marena.Info()
	if heap != 2048 {
		t.Errorf("unexpected heap %v", heap)
	} else if alloc != (108 + 1008) {
		t.Errorf("unexpected alloc %v", alloc)
	}
	marena.Logstatistics()
	marena.Release()
}

func TestArenaRelease(t *testing.T) {
	marena := NewArena(64, s.Settings{"maxnodes": int64(8)})
	for i := 0; i < 10; i++ {
		marena.Alloc(40)
	}
	if ok := marena.Release(); !ok {
		t.Errorf("expected true")
	}
	if ptr := marena.Alloc(10); ptr != nil {
		t.Errorf("expected nil after release")
	}
	var nilarena *Arena
	if ok := nilarena.Release(); ok {
		t.Errorf("expected false for nil arena")
	}
}
