package soalloc

import (
	"fmt"
	"log/slog"
	"sort"
	"unsafe"
)

// PoolManager is the top-level dispatcher: it routes an allocation of n
// bytes to the FixedAllocator serving exactly that size, creating one on
// demand, and forwards anything larger than its configured max object
// size straight to the Go runtime's own allocator.
//
// A PoolManager is not safe for concurrent use by multiple goroutines.
// See ThreadLocal and ShardedRegistry for the two supported
// multi-goroutine usage patterns.
type PoolManager struct {
	cfg config

	// pool is kept sorted strictly ascending by blockSize so Allocate
	// and Deallocate can binary-search it.
	pool []*fixedAllocator

	// lastAlloc/lastDealloc are indices into pool, -1 meaning "none".
	// Using indices rather than *fixedAllocator references means an
	// insertion into pool (which can shift every element after it)
	// never leaves a hint dangling; see DESIGN.md's Open Question #2.
	lastAlloc   int
	lastDealloc int

	// oversize tracks allocations forwarded to the Go runtime allocator,
	// keyed by the pointer handed back to the caller. Go has no manual
	// free, so this table exists only to keep the backing array
	// reachable for as long as the caller holds the unsafe.Pointer and
	// to let Deallocate detect a double-free or foreign pointer on the
	// oversize path.
	oversize map[unsafe.Pointer][]byte
}

// NewPoolManager creates a PoolManager with the given options applied
// over the defaults (DefaultChunkSize, DefaultMaxObjectSize, no secure
// wipe, no debug assertions, no logger).
func NewPoolManager(opts ...Option) *PoolManager {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &PoolManager{
		cfg:         cfg,
		lastAlloc:   -1,
		lastDealloc: -1,
		oversize:    make(map[unsafe.Pointer][]byte),
	}
}

// Allocate returns an uninitialized buffer of at least n bytes. Zero is
// normalised to 1, matching the adapter contract in spec.md §6.
func (pm *PoolManager) Allocate(n int) (unsafe.Pointer, error) {
	if n <= 0 {
		n = 1
	}

	if n > pm.cfg.maxObjectSize {
		return pm.allocateOversize(n)
	}

	if pm.lastAlloc >= 0 && pm.pool[pm.lastAlloc].blockSize == n {
		return pm.pool[pm.lastAlloc].allocate()
	}

	idx, found := pm.search(n)
	if !found {
		fa := newFixedAllocator(n, &pm.cfg)
		pm.insert(idx, fa) // insert() already fixes up lastDealloc for the shift
		if pm.lastDealloc < 0 {
			pm.lastDealloc = 0
		}
	}
	pm.lastAlloc = idx
	return pm.pool[idx].allocate()
}

// Deallocate releases a buffer previously returned by Allocate(n) from
// this same PoolManager.
func (pm *PoolManager) Deallocate(p unsafe.Pointer, n int) error {
	if p == nil {
		return nil
	}
	if n <= 0 {
		n = 1
	}

	if n > pm.cfg.maxObjectSize {
		return pm.deallocateOversize(p)
	}

	if pm.lastDealloc >= 0 && pm.pool[pm.lastDealloc].blockSize == n {
		return pm.pool[pm.lastDealloc].deallocate(p)
	}

	idx, found := pm.search(n)
	if !found {
		return fmt.Errorf("%w: size %d", ErrSizeMismatch, n)
	}
	pm.lastDealloc = idx
	return pm.pool[idx].deallocate(p)
}

// search binary-searches pool for the FixedAllocator serving exactly n
// bytes, returning its index and whether it was found. When not found,
// the returned index is where a new entry for n must be inserted to
// keep pool sorted.
func (pm *PoolManager) search(n int) (int, bool) {
	idx := sort.Search(len(pm.pool), func(i int) bool {
		return pm.pool[i].blockSize >= n
	})
	if idx < len(pm.pool) && pm.pool[idx].blockSize == n {
		return idx, true
	}
	return idx, false
}

// insert adds fa to pool at idx, preserving sort order, and fixes up
// lastAlloc/lastDealloc so they keep pointing at the entries they
// pointed at before the shift (spec.md §4.3's "hint invalidation").
func (pm *PoolManager) insert(idx int, fa *fixedAllocator) {
	pm.pool = append(pm.pool, nil)
	copy(pm.pool[idx+1:], pm.pool[idx:])
	pm.pool[idx] = fa

	if pm.lastAlloc >= idx {
		pm.lastAlloc++
	}
	if pm.lastDealloc >= idx {
		pm.lastDealloc++
	}
}

func (pm *PoolManager) allocateOversize(n int) (unsafe.Pointer, error) {
	buf := make([]byte, n)
	if len(buf) == 0 {
		return nil, ErrOutOfMemory
	}
	p := unsafe.Pointer(&buf[0])
	pm.oversize[p] = buf
	if pm.cfg.logger != nil {
		pm.cfg.logger.Debug("soalloc: oversize allocation forwarded to runtime allocator",
			slog.Int("size", n))
	}
	return p, nil
}

func (pm *PoolManager) deallocateOversize(p unsafe.Pointer) error {
	if _, ok := pm.oversize[p]; !ok {
		return ErrDoubleFree
	}
	delete(pm.oversize, p)
	return nil
}

// Close releases every chunk owned by every FixedAllocator in the pool.
// Callers must ensure every outstanding allocation has already been
// deallocated; Close releases the chunks regardless. Only when both
// WithDebugAssertions and a logger are set does it log a warning for
// each size class that still has used blocks.
func (pm *PoolManager) Close() {
	if pm.cfg.debugAssertions && pm.cfg.logger != nil {
		for _, fa := range pm.pool {
			if used := fa.usedBlocks(); used > 0 {
				pm.cfg.logger.Warn("soalloc: closing pool manager with live allocations",
					slog.Int("block_size", fa.blockSize),
					slog.Int("leaked_blocks", used))
			}
		}
	}
	for _, fa := range pm.pool {
		fa.release()
	}
	pm.pool = nil
	pm.lastAlloc, pm.lastDealloc = -1, -1
	pm.oversize = make(map[unsafe.Pointer][]byte)
}
