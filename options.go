package soalloc

import "log/slog"

const (
	// DefaultChunkSize is the target number of bytes per Chunk, used to
	// derive numBlocks = clamp(chunkSize/blockSize, 1, 255). 4096 matches
	// one typical page size; see WithChunkSize to raise it toward 65536
	// for workloads dominated by larger small-object sizes.
	DefaultChunkSize = 4096

	// DefaultMaxObjectSize is the size threshold above which Allocate
	// forwards straight to the Go runtime's own allocator instead of
	// routing through a FixedAllocator.
	DefaultMaxObjectSize = 256

	// maxBlocksPerChunk is the hard cap from the free list's one-byte
	// stealth index (spec.md §3): a chunk can never hold more than 255
	// blocks, since the index written into each free block's head byte
	// must fit in a single byte and numBlocks itself is a valid index
	// value (meaning "empty list").
	maxBlocksPerChunk = 255
)

type config struct {
	chunkSize       int
	maxObjectSize   int
	secureWipe      bool
	debugAssertions bool
	logger          *slog.Logger
}

func defaultConfig() config {
	return config{
		chunkSize:     DefaultChunkSize,
		maxObjectSize: DefaultMaxObjectSize,
	}
}

// Option configures a PoolManager at construction time. There are no
// runtime flags (spec.md §6) — every knob is fixed for the lifetime of
// the PoolManager it's applied to.
type Option func(*config)

// WithChunkSize sets the target byte size of each Chunk a FixedAllocator
// allocates. The actual numBlocks derived from it is clamped to
// [1, 255] regardless of this value.
func WithChunkSize(bytes int) Option {
	return func(c *config) {
		if bytes > 0 {
			c.chunkSize = bytes
		}
	}
}

// WithMaxObjectSize sets the size threshold above which requests bypass
// the pool and go straight to the Go runtime allocator.
func WithMaxObjectSize(bytes int) Option {
	return func(c *config) {
		if bytes > 0 {
			c.maxObjectSize = bytes
		}
	}
}

// WithSecureWipe zeroes a block's bytes before relinking it into its
// Chunk's free list, so a deallocated block never leaks its previous
// contents to the next allocation that reuses it.
func WithSecureWipe() Option {
	return func(c *config) {
		c.secureWipe = true
	}
}

// WithDebugAssertions enables the precondition checks spec.md §7 calls
// out as "debug builds should include": an alignment check on the chunk
// FixedAllocator's vicinity search found, surfacing ErrForeignPointer
// instead of silently corrupting the free list (the bounds check that
// rejects a pointer outside every chunk runs in every configuration).
// This does not cover double-free
// of a pooled block, which stays undefined behaviour in every
// configuration (see errors.go); ErrDoubleFree is only ever returned
// for oversize allocations, which track liveness individually. Off by
// default, since spec.md's baseline contract leaves these as undefined
// behaviour the caller must avoid.
func WithDebugAssertions() Option {
	return func(c *config) {
		c.debugAssertions = true
	}
}

// WithLogger sets a structured logger used for operational diagnostics
// (chunk growth failures already surface as errors; this covers things
// like leak detection in the generic adapter). Nil (no logging) by
// default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}
