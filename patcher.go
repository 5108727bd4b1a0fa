package alloctrace

import (
	"sort"
	"strings"
	"unsafe"

	"golang.org/x/exp/maps"
	"golang.org/x/sys/unix"

	"github.com/k2io/alloctrace/internal/elfview"
	"github.com/k2io/alloctrace/internal/logger"
)

const (
	vdsoName = "linux-vdso.so.1"
	ldLinux  = "/ld-linux"
	// The tracer's own shared object. Patching it would send the
	// tracker's internal allocations back through the wrappers.
	selfObject = "liballoctrace"
)

var pageSize uintptr

// patched holds the names of the objects an install pass already
// processed. Owned by the install/uninstall caller; an uninstall pass
// empties it so the next install re-patches everything.
var patched map[string]struct{}

func init() {
	pageSize = uintptr(unix.Getpagesize())
	patched = make(map[string]struct{})
}

func makeSlice(addr, length uintptr) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), length)
}

// OverwriteSymbols installs the wrappers across all currently loaded
// objects. Not safe to run concurrently with itself or with
// RestoreSymbols; callers serialise.
func OverwriteSymbols() {
	resolveHookOriginals()
	iterateObjects(func(obj objectInfo) int {
		patchObject(obj, false)
		return 0
	})
}

// RestoreSymbols writes the original addresses back into every slot
// the install pass rewrote.
func RestoreSymbols() {
	patched = make(map[string]struct{})
	iterateObjects(func(obj objectInfo) int {
		patchObject(obj, true)
		return 0
	})
}

// PatchedObjects returns the names of the objects processed by the
// current install cycle, sorted.
func PatchedObjects() []string {
	names := maps.Keys(patched)
	sort.Strings(names)
	return names
}

func skipObject(name string) bool {
	if strings.Contains(name, vdsoName) {
		// No usable symbol table.
		return true
	}
	if strings.Contains(name, ldLinux) {
		// Patching the dynamic linker would deadlock the next
		// symbol resolution.
		return true
	}
	if strings.Contains(name, selfObject) {
		return true
	}
	for _, pattern := range cfg.excludes {
		if strings.Contains(name, pattern) {
			return true
		}
	}
	return false
}

func patchObject(obj objectInfo, restore bool) {
	if !restore {
		if _, done := patched[obj.name]; done {
			return
		}
		patched[obj.name] = struct{}{}
	}
	if skipObject(obj.name) {
		return
	}
	if obj.dyn == 0 {
		return
	}
	logger.Infow("patching symbols", "object", obj.name, "restore", restore)
	patchTables(elfview.New(obj.base, obj.dyn), obj.base, restore)
}

// patchTables walks an object's three relocation tables in order and
// rewrites every slot that resolves a tracked symbol.
func patchTables(view *elfview.View, base uintptr, restore bool) {
	for _, table := range view.RelocationTables() {
		for _, rel := range table.Entries {
			name := view.SymbolName(rel.SymbolIndex)
			hook, tracked := hooksByName[name]
			if !tracked {
				continue
			}
			patchSlot(hook, base+rel.Offset, restore)
		}
	}
}

// patchSlot writes the wrapper (or, when restoring, the original)
// into one GOT slot. The write is a naturally aligned pointer store,
// atomic with respect to concurrent readers: a racing thread sees
// either function, and both are correct.
func patchSlot(hook *symbolHook, slot uintptr, restore bool) {
	if err := unprotectPage(slot); err != nil {
		// Typically a read-only GOT under full RELRO; the rest of
		// the scan may still succeed.
		logger.Warnw("could not prepare memory page for patching",
			"symbol", hook.symbol, "error", err)
		return
	}
	target := hook.wrapper
	if restore {
		target = hook.original
	}
	*(*unsafe.Pointer)(unsafe.Pointer(slot)) = target
	logger.Debugw("symbol intercepted", "symbol", hook.symbol, "slot", slot, "restore", restore)
}

// unprotectPage makes the page containing addr writable. The original
// protection is not restored afterwards.
func unprotectPage(addr uintptr) error {
	page := addr &^ (pageSize - 1)
	return unix.Mprotect(makeSlice(page, pageSize), unix.PROT_READ|unix.PROT_WRITE)
}
