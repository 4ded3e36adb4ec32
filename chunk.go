package soalloc

import "unsafe"

// chunk is a single contiguous slab holding up to maxBlocksPerChunk
// fixed-size blocks, with a zero-overhead intrusive singly-linked free
// list: the first byte of each free block stores the index of the next
// free block. A chunk at rest with available == numBlocks has free list
// [1, 2, ..., numBlocks] written into the head of each block.
//
// chunk is not safe for concurrent use; it is always accessed through
// its owning FixedAllocator.
type chunk struct {
	data           []byte
	firstAvailable int // index of the head of the free list, numBlocks means empty
	available      int // count of free blocks
}

// initChunk allocates the backing buffer for a chunk of numBlocks blocks
// of blockSize bytes each and writes the initial free list.
func initChunk(blockSize, numBlocks int) (chunk, error) {
	if blockSize <= 0 || numBlocks <= 0 || numBlocks > maxBlocksPerChunk {
		return chunk{}, ErrInvalidSize
	}
	total := blockSize * numBlocks
	if total/numBlocks != blockSize {
		return chunk{}, ErrSizeOverflow
	}

	c := chunk{data: make([]byte, total)}
	c.reset(blockSize, numBlocks)
	return c, nil
}

// reset rewrites the free list as if the chunk had just been
// initialized: block i holds the value i+1 at its head, firstAvailable
// is 0, available is numBlocks. Assumes the backing buffer already
// exists and is at least blockSize*numBlocks bytes.
func (c *chunk) reset(blockSize, numBlocks int) {
	for i := 0; i < numBlocks; i++ {
		c.data[i*blockSize] = byte(i + 1)
	}
	c.firstAvailable = 0
	c.available = numBlocks
}

// allocate returns a pointer to a free block, or nil if the chunk has
// none left. O(1), never fails.
func (c *chunk) allocate(blockSize int) unsafe.Pointer {
	if c.available == 0 {
		return nil
	}
	p := &c.data[c.firstAvailable*blockSize]
	c.firstAvailable = int(*p)
	c.available--
	return unsafe.Pointer(p)
}

// deallocate returns the block at p to the free list. The caller (via
// FixedAllocator) is responsible for having already established that p
// lies within this chunk's buffer and is aligned to blockSize; deallocate
// itself trusts that and just does the O(1) pointer arithmetic.
func (c *chunk) deallocate(p unsafe.Pointer, blockSize int) {
	index := c.indexOf(p, blockSize)
	c.data[index*blockSize] = byte(c.firstAvailable)
	c.firstAvailable = index
	c.available++
}

// indexOf computes the block index of p within this chunk, assuming p
// is already known to lie within the chunk's buffer.
func (c *chunk) indexOf(p unsafe.Pointer, blockSize int) int {
	base := uintptr(unsafe.Pointer(&c.data[0]))
	off := uintptr(p) - base
	return int(off) / blockSize
}

// contains reports whether p lies within this chunk's buffer of
// blockSize*numBlocks bytes, using the unsigned-difference comparison
// spec.md's VicinityFind calls for.
func (c *chunk) contains(p unsafe.Pointer, blockSize, numBlocks int) bool {
	if len(c.data) == 0 {
		return false
	}
	base := uintptr(unsafe.Pointer(&c.data[0]))
	diff := uintptr(p) - base
	return diff < uintptr(blockSize*numBlocks)
}

// aligned reports whether p sits exactly on a block boundary within this
// chunk, for debug-assertion mode only.
func (c *chunk) aligned(p unsafe.Pointer, blockSize int) bool {
	base := uintptr(unsafe.Pointer(&c.data[0]))
	off := uintptr(p) - base
	return off%uintptr(blockSize) == 0
}

// wipe zeroes the block at index i, used by WithSecureWipe before the
// block is relinked into the free list.
func (c *chunk) wipe(index, blockSize int) {
	start := index * blockSize
	clear(c.data[start : start+blockSize])
}

// isEmpty reports whether every block in the chunk is free.
func (c *chunk) isEmpty(numBlocks int) bool {
	return c.available == numBlocks
}

// release drops the chunk's reference to its backing buffer. Must be
// called exactly once before the chunk is discarded; Go's GC reclaims
// the memory once nothing else references it, but release makes the
// chunk unusable immediately and matches the explicit-lifetime contract
// spec.md describes for the underlying systems-language implementation.
func (c *chunk) release() {
	c.data = nil
	c.firstAvailable = 0
	c.available = 0
}
