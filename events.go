package alloctrace

import "unsafe"

// Notification core shared by the interceptors. Kept free of cgo so
// the ordering rules can be exercised directly in tests.

// allocationReturned reports a single-address allocation. A null
// return means the allocator failed and nothing is reported.
func allocationReturned(ptr unsafe.Pointer, size uintptr, alloc Allocator) {
	if ptr == nil {
		return
	}
	if t := currentTracker; t != nil {
		t.TrackAllocation(uintptr(ptr), size, alloc)
	}
}

// deallocating reports a free. Runs before the real call so the
// tracker records the event while the address is still uniquely owned
// by the caller; if the notification path itself allocates, the
// just-freed pointer must not yet be reusable.
func deallocating(ptr unsafe.Pointer, size uintptr, alloc Allocator) {
	if t := currentTracker; t != nil {
		t.TrackDeallocation(uintptr(ptr), size, alloc)
	}
}

// reallocReturned reports a successful realloc as a free of the input
// pointer followed by an allocation of the new one. A null return is
// a failed resize: the input pointer is still live and nothing is
// reported.
func reallocReturned(old, ptr unsafe.Pointer, size uintptr) {
	if ptr == nil {
		return
	}
	if t := currentTracker; t != nil {
		t.TrackDeallocation(uintptr(old), 0, FREE)
		t.TrackAllocation(uintptr(ptr), size, REALLOC)
	}
}

// posixMemalignReturned reports an aligned allocation keyed on the
// call's status code rather than the returned pointer.
func posixMemalignReturned(status int, ptr unsafe.Pointer, size uintptr) {
	if status != 0 {
		return
	}
	allocationReturned(ptr, size, POSIX_MEMALIGN)
}

// mmapReturned reports a mapped range. MAP_FAILED, not NULL, signals
// failure here.
func mmapReturned(ptr unsafe.Pointer, length uintptr) {
	if uintptr(ptr) == ^uintptr(0) {
		return
	}
	if t := currentTracker; t != nil {
		t.TrackAllocation(uintptr(ptr), length, MMAP)
	}
}

func moduleMapChanged() {
	if t := currentTracker; t != nil {
		t.InvalidateModuleCache()
	}
}

func flushNativeCache() {
	if t := currentTracker; t != nil {
		t.FlushNativeTraceCache()
	}
}

func installTraceFunction() {
	if t := currentTracker; t != nil {
		t.InstallTraceFunction()
	}
}
