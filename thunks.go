package alloctrace

// The original pointers live in Go as untyped cells; these thunks give
// them back their C signatures at the call site. The extern
// declarations below name the Go wrappers exported from intercept.go,
// so their addresses can be written into GOT slots.

/*
#include <stddef.h>
#include <stdint.h>
#include <sys/types.h>

typedef void *(*alloctrace_malloc_t)(size_t);
typedef void (*alloctrace_free_t)(void *);
typedef void *(*alloctrace_calloc_t)(size_t, size_t);
typedef void *(*alloctrace_realloc_t)(void *, size_t);
typedef int (*alloctrace_posix_memalign_t)(void **, size_t, size_t);
typedef void *(*alloctrace_memalign_t)(size_t, size_t);
typedef void *(*alloctrace_valloc_t)(size_t);
typedef void *(*alloctrace_pvalloc_t)(size_t);
typedef void *(*alloctrace_dlopen_t)(char *, int);
typedef int (*alloctrace_dlclose_t)(void *);
typedef void *(*alloctrace_mmap_t)(void *, size_t, int, int, int, off_t);
typedef int (*alloctrace_munmap_t)(void *, size_t);
typedef int (*alloctrace_gil_ensure_t)(void);

static void *alloctrace_call_malloc(void *fn, size_t size)
{
	return ((alloctrace_malloc_t)fn)(size);
}

static void alloctrace_call_free(void *fn, void *ptr)
{
	((alloctrace_free_t)fn)(ptr);
}

static void *alloctrace_call_calloc(void *fn, size_t num, size_t size)
{
	return ((alloctrace_calloc_t)fn)(num, size);
}

static void *alloctrace_call_realloc(void *fn, void *ptr, size_t size)
{
	return ((alloctrace_realloc_t)fn)(ptr, size);
}

static int alloctrace_call_posix_memalign(void *fn, void **memptr, size_t alignment, size_t size)
{
	return ((alloctrace_posix_memalign_t)fn)(memptr, alignment, size);
}

static void *alloctrace_call_memalign(void *fn, size_t alignment, size_t size)
{
	return ((alloctrace_memalign_t)fn)(alignment, size);
}

static void *alloctrace_call_valloc(void *fn, size_t size)
{
	return ((alloctrace_valloc_t)fn)(size);
}

static void *alloctrace_call_pvalloc(void *fn, size_t size)
{
	return ((alloctrace_pvalloc_t)fn)(size);
}

static void *alloctrace_call_dlopen(void *fn, char *filename, int flags)
{
	return ((alloctrace_dlopen_t)fn)(filename, flags);
}

static int alloctrace_call_dlclose(void *fn, void *handle)
{
	return ((alloctrace_dlclose_t)fn)(handle);
}

static void *alloctrace_call_mmap(void *fn, void *addr, size_t length, int prot, int flags, int fd, off_t offset)
{
	return ((alloctrace_mmap_t)fn)(addr, length, prot, flags, fd, offset);
}

static int alloctrace_call_munmap(void *fn, void *addr, size_t length)
{
	return ((alloctrace_munmap_t)fn)(addr, length);
}

static int alloctrace_call_gil_ensure(void *fn)
{
	return ((alloctrace_gil_ensure_t)fn)();
}

extern void *alloctrace_malloc(size_t size);
extern void alloctrace_free(void *ptr);
extern void *alloctrace_calloc(size_t num, size_t size);
extern void *alloctrace_realloc(void *ptr, size_t size);
extern int alloctrace_posix_memalign(void **memptr, size_t alignment, size_t size);
extern void *alloctrace_memalign(size_t alignment, size_t size);
extern void *alloctrace_valloc(size_t size);
extern void *alloctrace_pvalloc(size_t size);
extern void *alloctrace_dlopen(char *filename, int flags);
extern int alloctrace_dlclose(void *handle);
extern void *alloctrace_mmap(void *addr, size_t length, int prot, int flags, int fd, off_t offset);
extern void *alloctrace_mmap64(void *addr, size_t length, int prot, int flags, int fd, off_t offset);
extern int alloctrace_munmap(void *addr, size_t length);
extern int alloctrace_PyGILState_Ensure(void);

static void *alloctrace_wrapper_malloc(void) { return (void *)alloctrace_malloc; }
static void *alloctrace_wrapper_free(void) { return (void *)alloctrace_free; }
static void *alloctrace_wrapper_calloc(void) { return (void *)alloctrace_calloc; }
static void *alloctrace_wrapper_realloc(void) { return (void *)alloctrace_realloc; }
static void *alloctrace_wrapper_posix_memalign(void) { return (void *)alloctrace_posix_memalign; }
static void *alloctrace_wrapper_memalign(void) { return (void *)alloctrace_memalign; }
static void *alloctrace_wrapper_valloc(void) { return (void *)alloctrace_valloc; }
static void *alloctrace_wrapper_pvalloc(void) { return (void *)alloctrace_pvalloc; }
static void *alloctrace_wrapper_dlopen(void) { return (void *)alloctrace_dlopen; }
static void *alloctrace_wrapper_dlclose(void) { return (void *)alloctrace_dlclose; }
static void *alloctrace_wrapper_mmap(void) { return (void *)alloctrace_mmap; }
static void *alloctrace_wrapper_mmap64(void) { return (void *)alloctrace_mmap64; }
static void *alloctrace_wrapper_munmap(void) { return (void *)alloctrace_munmap; }
static void *alloctrace_wrapper_gil_ensure(void) { return (void *)alloctrace_PyGILState_Ensure; }
*/
import "C"

import "unsafe"

func callMalloc(fn unsafe.Pointer, size uintptr) unsafe.Pointer {
	return C.alloctrace_call_malloc(fn, C.size_t(size))
}

func callFree(fn, ptr unsafe.Pointer) {
	C.alloctrace_call_free(fn, ptr)
}

func callCalloc(fn unsafe.Pointer, num, size uintptr) unsafe.Pointer {
	return C.alloctrace_call_calloc(fn, C.size_t(num), C.size_t(size))
}

func callRealloc(fn, ptr unsafe.Pointer, size uintptr) unsafe.Pointer {
	return C.alloctrace_call_realloc(fn, ptr, C.size_t(size))
}

func callPosixMemalign(fn, memptr unsafe.Pointer, alignment, size uintptr) int {
	return int(C.alloctrace_call_posix_memalign(fn, (*unsafe.Pointer)(memptr), C.size_t(alignment), C.size_t(size)))
}

func callMemalign(fn unsafe.Pointer, alignment, size uintptr) unsafe.Pointer {
	return C.alloctrace_call_memalign(fn, C.size_t(alignment), C.size_t(size))
}

func callValloc(fn unsafe.Pointer, size uintptr) unsafe.Pointer {
	return C.alloctrace_call_valloc(fn, C.size_t(size))
}

func callPvalloc(fn unsafe.Pointer, size uintptr) unsafe.Pointer {
	return C.alloctrace_call_pvalloc(fn, C.size_t(size))
}

func callDlopen(fn, filename unsafe.Pointer, flags int) unsafe.Pointer {
	return C.alloctrace_call_dlopen(fn, (*C.char)(filename), C.int(flags))
}

func callDlclose(fn, handle unsafe.Pointer) int {
	return int(C.alloctrace_call_dlclose(fn, handle))
}

func callMmap(fn, addr unsafe.Pointer, length uintptr, prot, flags, fd int, offset int64) unsafe.Pointer {
	return C.alloctrace_call_mmap(fn, addr, C.size_t(length), C.int(prot), C.int(flags), C.int(fd), C.off_t(offset))
}

func callMunmap(fn, addr unsafe.Pointer, length uintptr) int {
	return int(C.alloctrace_call_munmap(fn, addr, C.size_t(length)))
}

func callGILEnsure(fn unsafe.Pointer) int {
	return int(C.alloctrace_call_gil_ensure(fn))
}

func wrapperMalloc() unsafe.Pointer        { return C.alloctrace_wrapper_malloc() }
func wrapperFree() unsafe.Pointer          { return C.alloctrace_wrapper_free() }
func wrapperCalloc() unsafe.Pointer        { return C.alloctrace_wrapper_calloc() }
func wrapperRealloc() unsafe.Pointer       { return C.alloctrace_wrapper_realloc() }
func wrapperPosixMemalign() unsafe.Pointer { return C.alloctrace_wrapper_posix_memalign() }
func wrapperMemalign() unsafe.Pointer      { return C.alloctrace_wrapper_memalign() }
func wrapperValloc() unsafe.Pointer        { return C.alloctrace_wrapper_valloc() }
func wrapperPvalloc() unsafe.Pointer       { return C.alloctrace_wrapper_pvalloc() }
func wrapperDlopen() unsafe.Pointer        { return C.alloctrace_wrapper_dlopen() }
func wrapperDlclose() unsafe.Pointer       { return C.alloctrace_wrapper_dlclose() }
func wrapperMmap() unsafe.Pointer          { return C.alloctrace_wrapper_mmap() }
func wrapperMmap64() unsafe.Pointer        { return C.alloctrace_wrapper_mmap64() }
func wrapperMunmap() unsafe.Pointer        { return C.alloctrace_wrapper_munmap() }
func wrapperGILEnsure() unsafe.Pointer     { return C.alloctrace_wrapper_gil_ensure() }
