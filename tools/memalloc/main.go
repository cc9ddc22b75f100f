package main

import "flag"
import "fmt"
import "os"
import "math/rand"
import "unsafe"

import "github.com/bnclabs/memalloc/api"
import "github.com/bnclabs/memalloc/lib"
import "github.com/bnclabs/memalloc/malloc"
import s "github.com/bnclabs/gosettings"
import hm "github.com/dustin/go-humanize"
import "github.com/bnclabs/golog"

var options struct {
	capacity  int
	blocksize int
	maxnodes  int
	n         int
	seed      int
	log       string
}

func argParse() {
	flag.IntVar(&options.capacity, "capacity", 10*1024*1024,
		"capacity in bytes for a single backing node")
	flag.IntVar(&options.blocksize, "blocksize", 64,
		"pool's block size in bytes")
	flag.IntVar(&options.maxnodes, "maxnodes", 8,
		"maximum number of backing nodes")
	flag.IntVar(&options.n, "n", 1000000,
		"number of operations to run against each allocator")
	flag.IntVar(&options.seed, "seed", 42,
		"seed for the random workload")
	flag.StringVar(&options.log, "log", "info",
		"log level")
	flag.Parse()
}

func main() {
	argParse()
	log.SetLogger(nil, map[string]interface{}{"log.level": options.log})
	malloc.LogComponents("all")

	setts := malloc.Defaultsettings().Mixin(s.Settings{
		"blocksize": int64(options.blocksize),
		"maxnodes":  int64(options.maxnodes),
	})

	marena := malloc.NewArena(int64(options.capacity), setts)
	if marena == nil {
		fmt.Println("unable to create arena")
		os.Exit(1)
	}
	arenaload(marena)
	marena.Logstatistics()
	printinfo("arena", marena)
	marena.Release()

	mpool := malloc.NewPool(int64(options.capacity), setts)
	if mpool == nil {
		fmt.Println("unable to create pool")
		os.Exit(1)
	}
	poolload(mpool)
	mpool.Logstatistics()
	printinfo("pool", mpool)
	mpool.Release()
}

// bump allocations until the chain is exhausted, reset and repeat.
func arenaload(marena *malloc.Arena) {
	rnd := rand.New(rand.NewSource(int64(options.seed)))
	allocs, resets := 0, 0
	for i := 0; i < options.n; i++ {
		n := int64(1 + rnd.Intn(4096))
		ptr := marena.Alloc(n)
		if ptr == nil {
			if ok := marena.Reset(); !ok {
				log.Fatalf("arena reset failed\n")
			}
			resets++
			continue
		}
		verifyheader(ptr, n)
		allocs++
	}
	fmt.Printf("arena: %v allocations, %v resets, %v nodes\n",
		allocs, resets, marena.Nodes())
}

// mixed alloc/free workload, every live chunk is eventually freed and
// the pool must drain back to empty.
func poolload(mpool *malloc.Pool) {
	rnd := rand.New(rand.NewSource(int64(options.seed)))
	live := make([]unsafe.Pointer, 0, 1024)
	allocs, frees, misses := 0, 0, 0
	for i := 0; i < options.n; i++ {
		if len(live) == 0 || rnd.Intn(100) < 55 {
			n := int64(1 + rnd.Intn(4*options.blocksize))
			ptr := mpool.Alloc(n)
			if ptr == nil {
				misses++
				continue
			}
			verifyheader(ptr, n)
			live = append(live, ptr)
			allocs++
		} else {
			k := rnd.Intn(len(live))
			if ok := mpool.Free(live[k]); !ok {
				log.Fatalf("pool free failed\n")
			}
			live = append(live[:k], live[k+1:]...)
			frees++
		}
	}
	for _, ptr := range live {
		if ok := mpool.Free(ptr); !ok {
			log.Fatalf("pool drain failed\n")
		}
	}
	if used := mpool.Sizeused(); used != 0 {
		log.Fatalf("pool did not drain, %v bytes still used\n", used)
	}
	fmt.Printf("pool: %v allocations, %v frees, %v misses, %v nodes\n",
		allocs, frees, misses, mpool.Nodes())
}

func verifyheader(ptr unsafe.Pointer, n int64) {
	if x := *(*int64)(lib.Ptrsub(ptr, malloc.Sword)); x != n {
		log.Fatalf("size header roundtrip: expected %v, got %v\n", n, x)
	}
}

func printinfo(name string, m api.Mallocer) {
	capacity, heap, alloc, overhead := m.Info()
	fmt.Printf("%v: capacity:%v heap:%v alloc:%v overhead:%v\n",
		name, hm.Bytes(uint64(capacity)), hm.Bytes(uint64(heap)),
		hm.Bytes(uint64(alloc)), hm.Bytes(uint64(overhead)))
}
