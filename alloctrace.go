// Package alloctrace intercepts the allocator and dynamic-linker entry
// points of an already-loaded process by rewriting the GOT slots of
// every mapped shared object. No recompilation and no LD_PRELOAD: the
// relocation tables are walked at runtime and the resolved addresses
// of the tracked symbols are swapped for wrappers that delegate to the
// real implementation and notify a Tracker (after the real call for
// allocations, before it for free and munmap).
//
// The package is Linux-only and is built into a shared object
// (liballoctrace.so, via the cmd/liballoctrace main package and
// -buildmode=c-shared) that is loaded into the target process.
package alloctrace

import "errors"

var (
	// ErrNoTracker means tracking was started without a tracker.
	ErrNoTracker = errors.New("no tracker registered")
	// ErrNotPatched means the hooks are not installed.
	ErrNotPatched = errors.New("hooks are not installed")
	// ErrDoublePatch means the hooks are already installed.
	ErrDoublePatch = errors.New("hooks are already installed")
	// ErrNoGOTSlot means a PLT stub decoded without an
	// indirect-jump memory operand.
	ErrNoGOTSlot = errors.New("no got slot referenced by stub")
)

// Tracker receives the allocation events observed by the interceptors.
// Its notification path must carry its own per-thread reentrancy
// guard; the interceptors call it from arbitrary application threads.
type Tracker interface {
	TrackAllocation(addr uintptr, size uintptr, alloc Allocator)
	TrackDeallocation(addr uintptr, size uintptr, alloc Allocator)

	// InvalidateModuleCache is called after the set of loaded
	// objects changed under dlopen or dlclose.
	InvalidateModuleCache()

	// InstallTraceFunction installs the tracker's per-thread trace
	// hook into the host runtime.
	InstallTraceFunction()

	// FlushNativeTraceCache drops cached native stacks; called when
	// an object is about to be unloaded and its addresses become
	// invalid symbolisation targets.
	FlushNativeTraceCache()
}

// currentTracker is written once, before OverwriteSymbols, and is
// read-only afterwards.
var currentTracker Tracker

// SetTracker registers the tracker the interceptors notify. Must be
// called before installing the hooks.
func SetTracker(t Tracker) {
	currentTracker = t
}

// CurrentTracker returns the registered tracker, or nil.
func CurrentTracker() Tracker {
	return currentTracker
}

// tracking reports whether an install pass is in effect. Owned by the
// single controller thread that drives StartTracking/StopTracking.
var tracking bool

// StartTracking registers the tracker and installs the wrappers
// across all currently loaded objects. Same single-threaded contract
// as OverwriteSymbols.
func StartTracking(t Tracker) error {
	if t == nil {
		return ErrNoTracker
	}
	if tracking {
		return ErrDoublePatch
	}
	SetTracker(t)
	OverwriteSymbols()
	tracking = true
	return nil
}

// StopTracking restores the original addresses and ends the tracking
// cycle.
func StopTracking() error {
	if !tracking {
		return ErrNotPatched
	}
	RestoreSymbols()
	tracking = false
	return nil
}
