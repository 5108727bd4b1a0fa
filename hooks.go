package alloctrace

import (
	"strings"
	"unsafe"

	"github.com/k2io/alloctrace/internal/elfview"
	"github.com/k2io/alloctrace/internal/logger"
)

// symbolHook pairs a tracked symbol name with the wrapper that will be
// written into GOT slots and the real implementation the wrapper
// delegates to. The original pointer is a single-width cell cast to
// the symbol's signature at the call site; the set of signatures is
// closed, so no further typing is needed.
type symbolHook struct {
	symbol   string
	wrapper  unsafe.Pointer
	original unsafe.Pointer
}

func (h *symbolHook) initialised() bool {
	return h.original != nil
}

// mustOriginal returns the real implementation. Entering a wrapper
// whose original was never resolved is a programming error: the
// registry population step was skipped.
func (h *symbolHook) mustOriginal() unsafe.Pointer {
	if h.original == nil {
		logger.Fatalw("hook entered with unresolved original symbol", "symbol", h.symbol)
	}
	return h.original
}

// The registry. Fixed at compile time; wrapper addresses come from the
// cgo side, originals are filled in by resolveHookOriginals.
var (
	hookMalloc        = &symbolHook{symbol: "malloc", wrapper: wrapperMalloc()}
	hookFree          = &symbolHook{symbol: "free", wrapper: wrapperFree()}
	hookCalloc        = &symbolHook{symbol: "calloc", wrapper: wrapperCalloc()}
	hookRealloc       = &symbolHook{symbol: "realloc", wrapper: wrapperRealloc()}
	hookPosixMemalign = &symbolHook{symbol: "posix_memalign", wrapper: wrapperPosixMemalign()}
	hookMemalign      = &symbolHook{symbol: "memalign", wrapper: wrapperMemalign()}
	hookValloc        = &symbolHook{symbol: "valloc", wrapper: wrapperValloc()}
	hookPvalloc       = &symbolHook{symbol: "pvalloc", wrapper: wrapperPvalloc()}
	hookDlopen        = &symbolHook{symbol: "dlopen", wrapper: wrapperDlopen()}
	hookDlclose       = &symbolHook{symbol: "dlclose", wrapper: wrapperDlclose()}
	hookMmap          = &symbolHook{symbol: "mmap", wrapper: wrapperMmap()}
	hookMmap64        = &symbolHook{symbol: "mmap64", wrapper: wrapperMmap64()}
	hookMunmap        = &symbolHook{symbol: "munmap", wrapper: wrapperMunmap()}
	hookGILEnsure     = &symbolHook{symbol: "PyGILState_Ensure", wrapper: wrapperGILEnsure()}
)

var hookTable = []*symbolHook{
	hookMalloc,
	hookFree,
	hookCalloc,
	hookRealloc,
	hookPosixMemalign,
	hookMemalign,
	hookValloc,
	hookPvalloc,
	hookDlopen,
	hookDlclose,
	hookMmap,
	hookMmap64,
	hookMunmap,
	hookGILEnsure,
}

var (
	hooksByName   map[string]*symbolHook
	hooksResolved bool
)

func init() {
	hooksByName = make(map[string]*symbolHook, len(hookTable))
	for _, h := range hookTable {
		hooksByName[h.symbol] = h
	}
}

// TrackedSymbols returns the names of the tracked symbols in registry
// order.
func TrackedSymbols() []string {
	names := make([]string, len(hookTable))
	for i, h := range hookTable {
		names[i] = h.symbol
	}
	return names
}

// resolveHookOriginals populates the original pointers with the
// addresses the dynamic linker would have produced before any
// patching. Single-threaded by contract; runs once.
func resolveHookOriginals() {
	if hooksResolved {
		return
	}
	for _, h := range hookTable {
		addr := lookupSymbol(h.symbol)
		if addr == 0 {
			logger.Warnw("no loaded object defines tracked symbol", "symbol", h.symbol)
			continue
		}
		h.original = unsafe.Pointer(addr)
	}
	hooksResolved = true
}

// EnsureAllHooksAreValid aborts unless every registry entry resolved
// to a real implementation. An unresolved entry would make its wrapper
// dereference a null pointer on first use, so this cannot be a
// recoverable error.
func EnsureAllHooksAreValid() {
	for _, h := range hookTable {
		if !h.initialised() {
			logger.Fatalw("tracked symbol has no resolved original", "symbol", h.symbol)
		}
	}
}

// lookupSymbol finds name in the executable's resolution order: the
// first definition in link-map order wins, as with normal dynamic
// linking. Of the maps without a name only the first (the executable
// itself) is considered, and the vDSO is always skipped because it has
// no usable symbol table.
func lookupSymbol(name string) uintptr {
	var addr uintptr
	mapsVisited := 0
	iterateObjects(func(obj objectInfo) int {
		mapsVisited++
		if mapsVisited > 1 && obj.name == "" {
			return 0
		}
		if strings.Contains(obj.name, vdsoName) {
			return 0
		}
		if obj.dyn == 0 {
			return 0
		}
		view := elfview.New(obj.base, obj.dyn)
		if a := view.AddressOf(name); a != 0 {
			addr = a
			return 1
		}
		return 0
	})
	return addr
}
