package malloc

import s "github.com/bnclabs/gosettings"
import "github.com/cloudfoundry/gosigar"

// Defaultsettings for malloc allocators, applications can override
// individual parameters with Settings.Mixin before passing them to
// NewArena or NewPool.
//
// "capacity" (int64, default: freeRAM/4)
//		Suggested capacity, in bytes, for a single backing node.
//		Supplied for applications that have no better estimate,
//		NewArena and NewPool take capacity as an argument.
//
// "maxnodes" (int64, default: 8)
//		Maximum number of backing nodes an allocator will chain
//		before failing allocations.
//
// "blocksize" (int64, default: 64)
//		Pool's allocation quantum in bytes, will be rounded up to
//		a power of two, cannot be less than Sword. Ignored by
//		NewArena.
//
// "flarena.capacity" (int64, default: 0)
//		Size, in bytes, of the arena backing a pool node's
//		free-region descriptors. Zero picks capacity/100 clamped
//		to [1KB, 10MB]. Ignored by NewArena.
//
// "flarena.maxnodes" (int64, default: 5)
//		Node cap for the free-list arena. Ignored by NewArena.
func Defaultsettings() s.Settings {
	_, _, free := getsysmem()
	return s.Settings{
		"capacity":         int64(free / 4),
		"maxnodes":         int64(8),
		"blocksize":        int64(64),
		"flarena.capacity": int64(0),
		"flarena.maxnodes": int64(5),
	}
}

func getsysmem() (total, used, free uint64) {
	mem := sigar.Mem{}
	mem.Get()
	return mem.Total, mem.Used, mem.Free
}
