package soalloc

import (
	"fmt"
	"unsafe"
)

// fixedAllocator serves allocate()/deallocate(p) for exactly one block
// size, growing by appending Chunks and shrinking by releasing empty
// ones under the retention policy below. It is not safe for concurrent
// use; it is always accessed through its owning PoolManager.
type fixedAllocator struct {
	blockSize int
	numBlocks int
	chunks    []chunk

	// allocHint/deallocHint are indices into chunks, not pointers or
	// slice-element references: chunks grows by append, which may move
	// the backing array, so any raw reference into it would need
	// re-establishing on every growth. An index never needs that (see
	// spec.md's Design Notes and DESIGN.md's Open Question #2).
	allocHint   int
	deallocHint int

	cfg *config
}

func newFixedAllocator(blockSize int, cfg *config) *fixedAllocator {
	numBlocks := cfg.chunkSize / blockSize
	if numBlocks < 1 {
		numBlocks = 1
	}
	if numBlocks > maxBlocksPerChunk {
		numBlocks = maxBlocksPerChunk
	}
	return &fixedAllocator{
		blockSize:   blockSize,
		numBlocks:   numBlocks,
		allocHint:   -1,
		deallocHint: -1,
		cfg:         cfg,
	}
}

// allocate returns a pointer to an uninitialized block of blockSize
// bytes, growing the chunk collection if every existing chunk is full.
func (fa *fixedAllocator) allocate() (unsafe.Pointer, error) {
	if fa.allocHint >= 0 && fa.chunks[fa.allocHint].available > 0 {
		return fa.chunks[fa.allocHint].allocate(fa.blockSize), nil
	}

	for i := range fa.chunks {
		if fa.chunks[i].available > 0 {
			fa.allocHint = i
			return fa.chunks[i].allocate(fa.blockSize), nil
		}
	}

	c, err := initChunk(fa.blockSize, fa.numBlocks)
	if err != nil {
		return nil, fmt.Errorf("soalloc: growing pool for block size %d: %w", fa.blockSize, err)
	}
	fa.chunks = append(fa.chunks, c)
	fa.allocHint = len(fa.chunks) - 1
	if fa.deallocHint < 0 {
		fa.deallocHint = 0
	}
	return fa.chunks[fa.allocHint].allocate(fa.blockSize), nil
}

// deallocate returns the block at p to its owning chunk's free list and
// applies the empty-chunk retention policy.
func (fa *fixedAllocator) deallocate(p unsafe.Pointer) error {
	idx, ok := fa.vicinityFind(p)
	if !ok {
		return ErrForeignPointer
	}
	if fa.cfg.debugAssertions && !fa.chunks[idx].aligned(p, fa.blockSize) {
		return ErrForeignPointer
	}

	fa.deallocHint = idx
	target := &fa.chunks[idx]

	if fa.cfg.secureWipe {
		target.wipe(target.indexOf(p, fa.blockSize), fa.blockSize)
	}
	target.deallocate(p, fa.blockSize)

	if target.available < fa.numBlocks {
		return nil
	}
	return fa.applyRetentionPolicy(idx)
}

// applyRetentionPolicy implements the three cases from spec.md §4.2 for
// the chunk at idx, which has just become fully empty. Only the tail
// chunk is ever released; Case B keeps the emptied chunk at idx, which
// need not be the tail, so more than one empty chunk can be retained.
func (fa *fixedAllocator) applyRetentionPolicy(idx int) error {
	lastIdx := len(fa.chunks) - 1

	if idx == lastIdx {
		// Case A: the chunk that just went empty is already the tail.
		if len(fa.chunks) > 1 && fa.chunks[lastIdx-1].available == fa.numBlocks {
			fa.chunks[lastIdx].release()
			fa.chunks = fa.chunks[:lastIdx]
			fa.allocHint = 0
			fa.deallocHint = 0
		}
		// Otherwise keep it as the single spare.
		return nil
	}

	if fa.chunks[lastIdx].available == fa.numBlocks {
		// Case B: the tail is already empty; release it and keep idx's
		// chunk (now also empty) as the candidate for reuse.
		fa.chunks[lastIdx].release()
		fa.chunks = fa.chunks[:lastIdx]
		fa.allocHint = idx
		return nil
	}

	// Case C: the tail is still in use. Move the now-empty chunk to the
	// tail by swapping contents with the in-use tail chunk.
	fa.chunks[idx], fa.chunks[lastIdx] = fa.chunks[lastIdx], fa.chunks[idx]
	// allocHint now points at chunks.back(), i.e. the chunk that was just
	// emptied and swapped to the tail. This refills a chunk that was
	// just marked as the retention spare on the very next allocation;
	// spec.md calls this out as a tunable the source leaves unresolved
	// rather than a bug, and this port preserves that behavior verbatim.
	fa.allocHint = lastIdx
	return nil
}

// vicinityFind maps an interior pointer back to the index of its owning
// chunk, starting from deallocHint and alternating outward — the
// strategy spec.md §4.2 describes, exploiting temporal locality of
// deallocations. Returns ok=false only if p belongs to none of this
// allocator's chunks, which is a caller precondition violation; spec.md
// leaves that case as undefined behaviour, but this port fails safe by
// reporting it instead of looping forever or reading out of bounds.
func (fa *fixedAllocator) vicinityFind(p unsafe.Pointer) (int, bool) {
	n := len(fa.chunks)
	if n == 0 {
		return 0, false
	}

	start := fa.deallocHint
	if start < 0 || start >= n {
		start = 0
	}

	lo, hi := start, start+1
	loLive, hiLive := true, hi < n
	for loLive || hiLive {
		if loLive {
			if fa.chunks[lo].contains(p, fa.blockSize, fa.numBlocks) {
				return lo, true
			}
			if lo == 0 {
				loLive = false
			} else {
				lo--
			}
		}
		if hiLive {
			if fa.chunks[hi].contains(p, fa.blockSize, fa.numBlocks) {
				return hi, true
			}
			hi++
			hiLive = hi < n
		}
	}
	return 0, false
}

// clone returns a FixedAllocator over the same block size with its own,
// independently-growable chunk collection. Per spec.md's Design Notes
// ("in a language with explicit ownership, simply forbid copying;
// require move only"), this is an explicit method rather than an
// implicit copy: calling it on an allocator with live (non-empty)
// chunks is a programmer error, since the clone's chunks share no
// backing storage with the original and any pointer returned by one
// is meaningless to the other.
func (fa *fixedAllocator) clone() *fixedAllocator {
	clone := &fixedAllocator{
		blockSize:   fa.blockSize,
		numBlocks:   fa.numBlocks,
		allocHint:   -1,
		deallocHint: -1,
		cfg:         fa.cfg,
	}
	for _, c := range fa.chunks {
		if c.available != fa.numBlocks {
			continue // live chunk: cannot be safely duplicated, see doc comment
		}
		dup, err := initChunk(fa.blockSize, fa.numBlocks)
		if err != nil {
			continue
		}
		clone.chunks = append(clone.chunks, dup)
	}
	if len(clone.chunks) > 0 {
		clone.allocHint, clone.deallocHint = 0, 0
	}
	return clone
}

// release frees every chunk owned by this allocator. Callers must
// ensure every block has been deallocated first; releasing a chunk with
// live blocks invalidates any outstanding pointer into it.
func (fa *fixedAllocator) release() {
	for i := range fa.chunks {
		fa.chunks[i].release()
	}
	fa.chunks = nil
	fa.allocHint, fa.deallocHint = -1, -1
}

// usedBlocks returns the number of blocks currently allocated across all
// of this allocator's chunks, used by Stats().
func (fa *fixedAllocator) usedBlocks() int {
	used := 0
	for i := range fa.chunks {
		used += fa.numBlocks - fa.chunks[i].available
	}
	return used
}
