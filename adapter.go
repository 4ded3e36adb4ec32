package soalloc

import (
	"log/slog"
	"runtime"
	"unsafe"
)

// New allocates space for a T through pm and returns a pointer to a
// zero-valued T backed by that space. Failure surfaces as an error
// rather than a null pointer; see NewNoThrow for the other form.
func New[T any](pm *PoolManager) (*T, error) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	p, err := pm.Allocate(size)
	if err != nil {
		return nil, err
	}
	t := (*T)(p)
	*t = zero
	return t, nil
}

// NewNoThrow is the non-throwing allocation hook: failure returns nil
// instead of an error, matching the nothrow operator new form spec.md
// §6 requires the adapter to expose.
func NewNoThrow[T any](pm *PoolManager) *T {
	t, err := New[T](pm)
	if err != nil {
		return nil
	}
	return t
}

// NewPlacement returns ptr unchanged, reinterpreted as *T. It performs
// no allocation: this is the placement-new hook spec.md §6 calls for,
// which exists purely so callers have a uniform way to spell
// "construct a T at an address I already have".
func NewPlacement[T any](ptr unsafe.Pointer) *T {
	return (*T)(ptr)
}

// Delete returns the space backing t to pm. t must have been obtained
// from New or NewNoThrow against the same pm; deleting anything else is
// undefined behaviour, same as PoolManager.Deallocate's own contract.
func Delete[T any](pm *PoolManager, t *T) error {
	if t == nil {
		return nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	return pm.Deallocate(unsafe.Pointer(t), size)
}

// NewSlice allocates a slice of n Ts directly from the Go runtime
// allocator, bypassing pm entirely. spec.md §6 is explicit that array
// forms must not go through the pool: per-element size dispatch can't
// recover how many elements an array held, so there is no blockSize to
// hand PoolManager.Deallocate on the matching free. NewSlice exists so
// callers have one adapter surface for both scalar and array
// allocation, with the array case documented as always bypassing the
// pool rather than silently doing so.
func NewSlice[T any](n int) []T {
	return make([]T, n)
}

// NewGuarded behaves like New, but additionally arranges for pm's
// configured logger (if any) to report a leak if the returned value is
// garbage collected without its release func having been called first.
// This costs a runtime.SetFinalizer per allocation, so it is meant for
// debugging, not hot paths — adapted from the teacher's
// WithFinalizers/finalizeReference pattern, moved to the adapter layer
// because the core's raw unsafe.Pointer has nothing a finalizer can
// attach to.
func NewGuarded[T any](pm *PoolManager) (value *T, release func() error, err error) {
	t, err := New[T](pm)
	if err != nil {
		return nil, nil, err
	}

	released := false
	release = func() error {
		if released {
			return nil
		}
		released = true
		runtime.SetFinalizer(t, nil)
		return Delete(pm, t)
	}

	if pm.cfg.logger != nil {
		logger := pm.cfg.logger
		size := unsafe.Sizeof(*t)
		runtime.SetFinalizer(t, func(*T) {
			if !released {
				logger.Error("soalloc: memory leak detected",
					slog.Uint64("type_size_bytes", uint64(size)))
			}
		})
	}

	return t, release, nil
}
