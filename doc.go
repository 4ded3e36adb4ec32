// Package soalloc provides a small-object pool allocator: a user-space
// memory manager that services many small, short-lived allocations of
// heterogeneous sizes faster and more densely than the general-purpose
// allocator underneath it.
//
// The package is built from three layered components. A Chunk holds up
// to 255 fixed-size blocks with a zero-overhead intrusive free list. A
// FixedAllocator serves one block size by growing and shrinking a
// collection of Chunks. A PoolManager dispatches requests of n bytes to
// the FixedAllocator for that size, creating one on demand, and forwards
// anything above its size threshold straight to the Go runtime's own
// allocator.
//
// Basic usage:
//
//	pm := soalloc.NewPoolManager()
//	defer pm.Close()
//
//	p, err := pm.Allocate(24)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pm.Deallocate(p, 24)
//
// Advanced usage with options:
//
//	pm := soalloc.NewPoolManager(
//		soalloc.WithChunkSize(64*1024),
//		soalloc.WithMaxObjectSize(512),
//		soalloc.WithSecureWipe(),
//		soalloc.WithDebugAssertions(),
//		soalloc.WithLogger(slog.Default()),
//	)
//
// A PoolManager is not safe for concurrent use by multiple goroutines;
// see the package-level ThreadLocal and ShardedRegistry helpers for the
// two supported ways to use soalloc from a multi-goroutine program.
package soalloc
