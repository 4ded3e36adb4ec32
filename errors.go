package soalloc

import "errors"

// Sentinel errors for the conditions spec.md §7 classifies as
// OutOfMemory and PreconditionViolation. Only the conditions the
// allocator can actually detect return these. A double-free of a
// pooled block is undefined behaviour in every configuration, even
// with WithDebugAssertions set: nothing marks an individual block as
// already-free beyond its presence on the free list, so ErrDoubleFree
// is only ever returned for oversize allocations, which are tracked
// individually. On the pooled path a pointer outside every chunk is
// always reported as ErrForeignPointer; WithDebugAssertions adds the
// same error for a misaligned pointer instead of corrupting the free
// list silently.
var (
	// ErrOutOfMemory is returned by the oversize path if the Go runtime
	// hands back an empty buffer. Growing a Chunk allocates with make and
	// does not return this error.
	ErrOutOfMemory = errors.New("soalloc: out of memory")

	// ErrInvalidSize is returned during Chunk construction for a zero or
	// negative blockSize, or a numBlocks outside [1, 255].
	ErrInvalidSize = errors.New("soalloc: invalid allocation size")

	// ErrSizeOverflow is returned when blockSize * numBlocks would
	// overflow during Chunk construction.
	ErrSizeOverflow = errors.New("soalloc: chunk size overflow")

	// ErrDoubleFree is returned when an oversize allocation (tracked
	// individually, unlike pooled blocks) is deallocated twice.
	ErrDoubleFree = errors.New("soalloc: double free detected")

	// ErrForeignPointer is returned when a pointer deallocated through a
	// FixedAllocator does not belong to any of its chunks, or, only when
	// WithDebugAssertions is set, when it is misaligned for its block
	// size.
	ErrForeignPointer = errors.New("soalloc: pointer not owned by this allocator")

	// ErrSizeMismatch is returned when PoolManager.Deallocate is called
	// with a size at or below the max object size that no FixedAllocator
	// serves.
	ErrSizeMismatch = errors.New("soalloc: no allocator for requested size")
)
