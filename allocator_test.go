package alloctrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allAllocators = []Allocator{
	MALLOC, CALLOC, REALLOC, MEMALIGN, POSIX_MEMALIGN,
	VALLOC, PVALLOC, FREE, MMAP, MUNMAP,
}

func TestKindOfIsTotal(t *testing.T) {
	for _, a := range allAllocators {
		assert.NotPanics(t, func() { KindOf(a) }, "allocator %s", a)
	}
}

func TestKindOf(t *testing.T) {
	testCases := []struct {
		allocator Allocator
		kind      AllocatorKind
	}{
		{MALLOC, SimpleAllocator},
		{CALLOC, SimpleAllocator},
		{REALLOC, SimpleAllocator},
		{MEMALIGN, SimpleAllocator},
		{POSIX_MEMALIGN, SimpleAllocator},
		{VALLOC, SimpleAllocator},
		{PVALLOC, SimpleAllocator},
		{FREE, SimpleDeallocator},
		{MMAP, RangedAllocator},
		{MUNMAP, RangedDeallocator},
	}
	for _, tc := range testCases {
		t.Run(tc.allocator.String(), func(t *testing.T) {
			assert.Equal(t, tc.kind, KindOf(tc.allocator))
		})
	}
}

func TestTrackedSymbols(t *testing.T) {
	names := TrackedSymbols()
	require.Len(t, names, 14)

	want := []string{
		"malloc", "free", "calloc", "realloc", "posix_memalign",
		"memalign", "valloc", "pvalloc", "dlopen", "dlclose",
		"mmap", "mmap64", "munmap", "PyGILState_Ensure",
	}
	assert.Equal(t, want, names)
}

func TestRegistryWrappersPopulated(t *testing.T) {
	for _, h := range hookTable {
		assert.NotNil(t, h.wrapper, "wrapper for %s", h.symbol)
	}
}
