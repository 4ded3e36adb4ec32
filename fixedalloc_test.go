package soalloc

import (
	"testing"
	"unsafe"
)

func newTestFixedAllocator(blockSize int) *fixedAllocator {
	cfg := defaultConfig()
	cfg.chunkSize = blockSize * 4 // force small chunks (4 blocks each) for tests
	return newFixedAllocator(blockSize, &cfg)
}

func TestFixedAllocatorGrowsOnDemand(t *testing.T) {
	fa := newTestFixedAllocator(16)
	if len(fa.chunks) != 0 {
		t.Fatalf("expected no chunks before first allocation, got %d", len(fa.chunks))
	}

	p, err := fa.allocate()
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}
	if p == nil {
		t.Fatal("allocate returned nil pointer")
	}
	if len(fa.chunks) != 1 {
		t.Errorf("expected 1 chunk after first allocation, got %d", len(fa.chunks))
	}
}

func TestFixedAllocatorAppendsNewChunkWhenFull(t *testing.T) {
	fa := newTestFixedAllocator(16) // numBlocks = 4 per chunk
	for i := 0; i < fa.numBlocks; i++ {
		if _, err := fa.allocate(); err != nil {
			t.Fatalf("allocate %d failed: %v", i, err)
		}
	}
	if len(fa.chunks) != 1 {
		t.Fatalf("expected 1 chunk after filling it, got %d", len(fa.chunks))
	}

	if _, err := fa.allocate(); err != nil {
		t.Fatalf("allocate into new chunk failed: %v", err)
	}
	if len(fa.chunks) != 2 {
		t.Errorf("expected a second chunk to have been grown, got %d chunks", len(fa.chunks))
	}
}

func TestFixedAllocatorVicinityFindAfterGrowth(t *testing.T) {
	fa := newTestFixedAllocator(16) // 4 blocks per chunk

	var ptrs []unsafe.Pointer
	// Fill 3 chunks worth of blocks.
	for i := 0; i < fa.numBlocks*3; i++ {
		p, err := fa.allocate()
		if err != nil {
			t.Fatalf("allocate %d failed: %v", i, err)
		}
		ptrs = append(ptrs, p)
	}
	if len(fa.chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(fa.chunks))
	}

	// Free one pointer from the first chunk.
	if err := fa.deallocate(ptrs[0]); err != nil {
		t.Fatalf("deallocate from first chunk failed: %v", err)
	}
	if fa.deallocHint != 0 {
		t.Errorf("expected deallocHint to point at the first chunk, got %d", fa.deallocHint)
	}

	// A pointer from the third chunk must still be freeable.
	last := ptrs[len(ptrs)-1]
	if err := fa.deallocate(last); err != nil {
		t.Fatalf("deallocate from third chunk failed: %v", err)
	}
}

func TestFixedAllocatorRetentionKeepsAtMostOneSpare(t *testing.T) {
	fa := newTestFixedAllocator(16) // 4 blocks per chunk

	var ptrs []unsafe.Pointer
	for i := 0; i < fa.numBlocks*4; i++ {
		p, err := fa.allocate()
		if err != nil {
			t.Fatalf("allocate %d failed: %v", i, err)
		}
		ptrs = append(ptrs, p)
	}

	// Free everything in allocation order.
	for i, p := range ptrs {
		if err := fa.deallocate(p); err != nil {
			t.Fatalf("deallocate %d failed: %v", i, err)
		}
	}

	if len(fa.chunks) > 1 {
		t.Errorf("expected at most one retained chunk, got %d", len(fa.chunks))
	}
}

func TestFixedAllocatorDeallocateForeignPointerFails(t *testing.T) {
	fa := newTestFixedAllocator(16)
	other := newTestFixedAllocator(16)

	if _, err := fa.allocate(); err != nil {
		t.Fatalf("allocate failed: %v", err)
	}
	foreign, err := other.allocate()
	if err != nil {
		t.Fatalf("allocate on other allocator failed: %v", err)
	}

	if err := fa.deallocate(foreign); err == nil {
		t.Error("expected error deallocating a pointer from a different allocator")
	}
}

func TestFixedAllocatorSumInvariant(t *testing.T) {
	fa := newTestFixedAllocator(16)

	const k = 37
	var ptrs []unsafe.Pointer
	for i := 0; i < k; i++ {
		p, err := fa.allocate()
		if err != nil {
			t.Fatalf("allocate %d failed: %v", i, err)
		}
		ptrs = append(ptrs, p)
	}

	if got := fa.usedBlocks(); got != k {
		t.Errorf("expected %d used blocks, got %d", k, got)
	}

	const d = 15
	for i := 0; i < d; i++ {
		if err := fa.deallocate(ptrs[i]); err != nil {
			t.Fatalf("deallocate %d failed: %v", i, err)
		}
	}

	if got := fa.usedBlocks(); got != k-d {
		t.Errorf("expected %d used blocks after %d deallocations, got %d", k-d, d, got)
	}
}

func TestFixedAllocatorCloneOnlyDuplicatesEmptyChunks(t *testing.T) {
	fa := newTestFixedAllocator(16)
	if _, err := fa.allocate(); err != nil {
		t.Fatalf("allocate failed: %v", err)
	}
	// fa now has exactly one chunk, not fully empty.

	clone := fa.clone()
	if len(clone.chunks) != 0 {
		t.Errorf("expected clone to skip the live chunk, got %d chunks", len(clone.chunks))
	}
}
