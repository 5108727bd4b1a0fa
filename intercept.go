package alloctrace

// The interceptors. Each has exactly the C signature of the symbol it
// replaces; the patcher writes their addresses into GOT slots, so from
// the application's point of view these are the allocator entry
// points. Every wrapper calls the real implementation exactly once.

/*
#include <stddef.h>
#include <sys/types.h>
*/
import "C"

import "unsafe"

//export alloctrace_malloc
func alloctrace_malloc(size C.size_t) unsafe.Pointer {
	ptr := callMalloc(hookMalloc.mustOriginal(), uintptr(size))
	allocationReturned(ptr, uintptr(size), MALLOC)
	return ptr
}

//export alloctrace_free
func alloctrace_free(ptr unsafe.Pointer) {
	fn := hookFree.mustOriginal()
	deallocating(ptr, 0, FREE)
	callFree(fn, ptr)
}

//export alloctrace_calloc
func alloctrace_calloc(num, size C.size_t) unsafe.Pointer {
	ptr := callCalloc(hookCalloc.mustOriginal(), uintptr(num), uintptr(size))
	allocationReturned(ptr, uintptr(num)*uintptr(size), CALLOC)
	return ptr
}

//export alloctrace_realloc
func alloctrace_realloc(ptr unsafe.Pointer, size C.size_t) unsafe.Pointer {
	ret := callRealloc(hookRealloc.mustOriginal(), ptr, uintptr(size))
	reallocReturned(ptr, ret, uintptr(size))
	return ret
}

//export alloctrace_posix_memalign
func alloctrace_posix_memalign(memptr *unsafe.Pointer, alignment, size C.size_t) C.int {
	ret := callPosixMemalign(hookPosixMemalign.mustOriginal(), unsafe.Pointer(memptr), uintptr(alignment), uintptr(size))
	posixMemalignReturned(ret, *memptr, uintptr(size))
	return C.int(ret)
}

//export alloctrace_memalign
func alloctrace_memalign(alignment, size C.size_t) unsafe.Pointer {
	ptr := callMemalign(hookMemalign.mustOriginal(), uintptr(alignment), uintptr(size))
	allocationReturned(ptr, uintptr(size), MEMALIGN)
	return ptr
}

//export alloctrace_valloc
func alloctrace_valloc(size C.size_t) unsafe.Pointer {
	ptr := callValloc(hookValloc.mustOriginal(), uintptr(size))
	allocationReturned(ptr, uintptr(size), VALLOC)
	return ptr
}

//export alloctrace_pvalloc
func alloctrace_pvalloc(size C.size_t) unsafe.Pointer {
	ptr := callPvalloc(hookPvalloc.mustOriginal(), uintptr(size))
	allocationReturned(ptr, uintptr(size), PVALLOC)
	return ptr
}

//export alloctrace_mmap
func alloctrace_mmap(addr unsafe.Pointer, length C.size_t, prot, flags, fd C.int, offset C.off_t) unsafe.Pointer {
	ptr := callMmap(hookMmap.mustOriginal(), addr, uintptr(length), int(prot), int(flags), int(fd), int64(offset))
	mmapReturned(ptr, uintptr(length))
	return ptr
}

//export alloctrace_mmap64
func alloctrace_mmap64(addr unsafe.Pointer, length C.size_t, prot, flags, fd C.int, offset C.off_t) unsafe.Pointer {
	ptr := callMmap(hookMmap64.mustOriginal(), addr, uintptr(length), int(prot), int(flags), int(fd), int64(offset))
	mmapReturned(ptr, uintptr(length))
	return ptr
}

//export alloctrace_munmap
func alloctrace_munmap(addr unsafe.Pointer, length C.size_t) C.int {
	fn := hookMunmap.mustOriginal()
	deallocating(addr, uintptr(length), MUNMAP)
	return C.int(callMunmap(fn, addr, uintptr(length)))
}

//export alloctrace_dlopen
func alloctrace_dlopen(filename *C.char, flags C.int) unsafe.Pointer {
	ret := callDlopen(hookDlopen.mustOriginal(), unsafe.Pointer(filename), int(flags))
	if ret != nil {
		moduleMapChanged()
		// The new object's GOT has to point at the wrappers before
		// any of its own allocations can slip past the tracker.
		OverwriteSymbols()
	}
	return ret
}

//export alloctrace_dlclose
func alloctrace_dlclose(handle unsafe.Pointer) C.int {
	ret := callDlclose(hookDlclose.mustOriginal(), handle)
	// Addresses in the unloaded object are gone as symbolisation
	// targets no matter what dlclose returned.
	flushNativeCache()
	if ret == 0 {
		moduleMapChanged()
	}
	return C.int(ret)
}

//export alloctrace_PyGILState_Ensure
func alloctrace_PyGILState_Ensure() C.int {
	ret := callGILEnsure(hookGILEnsure.mustOriginal())
	// First acquisition of the GIL by a thread the tracer did not
	// create is the moment that thread becomes traceable.
	installTraceFunction()
	return C.int(ret)
}
