//go:build amd64 || arm64

package alloctrace

import (
	"debug/elf"
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k2io/alloctrace/internal/elfview"
)

// The synthetic object. Package-level so the GOT slots and tables sit
// on stable storage while raw addresses to them float around.
var (
	synSlots  [3]unsafe.Pointer
	synStrtab []byte
	synSymtab []elf.Sym64
	synHash   [2]uint32
	synRela   []elf.Rela64
	synDyn    []elf.Dyn64
)

// buildSyntheticObject lays out a minimal dynamic section whose Rela
// table points three GOT slots at malloc, free and an untracked
// symbol. The object's load base is zero, so relocation offsets are
// absolute addresses of the slot variables.
func buildSyntheticObject(t *testing.T) uintptr {
	t.Helper()

	synStrtab = []byte("\x00malloc\x00free\x00sqlite3_open\x00")
	synSymtab = []elf.Sym64{
		{}, // null symbol
		{Name: 1, Value: 0x1000},  // malloc
		{Name: 8, Value: 0x2000},  // free
		{Name: 13, Value: 0x3000}, // sqlite3_open
	}
	synHash = [2]uint32{1, uint32(len(synSymtab))}
	synRela = []elf.Rela64{
		{Off: uint64(uintptr(unsafe.Pointer(&synSlots[0]))), Info: elf.R_INFO(1, 7)},
		{Off: uint64(uintptr(unsafe.Pointer(&synSlots[1]))), Info: elf.R_INFO(2, 7)},
		{Off: uint64(uintptr(unsafe.Pointer(&synSlots[2]))), Info: elf.R_INFO(3, 7)},
	}
	synDyn = []elf.Dyn64{
		{Tag: int64(elf.DT_SYMTAB), Val: uint64(uintptr(unsafe.Pointer(&synSymtab[0])))},
		{Tag: int64(elf.DT_SYMENT), Val: uint64(unsafe.Sizeof(elf.Sym64{}))},
		{Tag: int64(elf.DT_STRTAB), Val: uint64(uintptr(unsafe.Pointer(&synStrtab[0])))},
		{Tag: int64(elf.DT_STRSZ), Val: uint64(len(synStrtab))},
		{Tag: int64(elf.DT_HASH), Val: uint64(uintptr(unsafe.Pointer(&synHash[0])))},
		{Tag: int64(elf.DT_RELA), Val: uint64(uintptr(unsafe.Pointer(&synRela[0])))},
		{Tag: int64(elf.DT_RELASZ), Val: uint64(len(synRela)) * uint64(unsafe.Sizeof(elf.Rela64{}))},
		{Tag: int64(elf.DT_RELAENT), Val: uint64(unsafe.Sizeof(elf.Rela64{}))},
		{Tag: int64(elf.DT_NULL)},
	}
	return uintptr(unsafe.Pointer(&synDyn[0]))
}

func keepSyntheticAlive() {
	runtime.KeepAlive(synStrtab)
	runtime.KeepAlive(synSymtab)
	runtime.KeepAlive(synRela)
	runtime.KeepAlive(synDyn)
}

func TestPatchTablesInstallAndRestore(t *testing.T) {
	resolveHookOriginals()
	require.True(t, hookMalloc.initialised(), "malloc must resolve in a dynamically linked test binary")
	require.True(t, hookFree.initialised())

	dyn := buildSyntheticObject(t)
	defer keepSyntheticAlive()

	untouched := unsafe.Pointer(&synHash[0])
	synSlots = [3]unsafe.Pointer{nil, nil, untouched}

	view := elfview.New(0, dyn)
	patchTables(view, 0, false)

	assert.Equal(t, hookMalloc.wrapper, synSlots[0], "malloc slot must hold the wrapper")
	assert.Equal(t, hookFree.wrapper, synSlots[1], "free slot must hold the wrapper")
	assert.Equal(t, untouched, synSlots[2], "untracked slot must stay as it was")

	patchTables(view, 0, true)

	assert.Equal(t, hookMalloc.original, synSlots[0], "restore must write the original back")
	assert.Equal(t, hookFree.original, synSlots[1])
	assert.Equal(t, untouched, synSlots[2])
}

func TestPatchObjectDeduplicatesAcrossInstallPasses(t *testing.T) {
	resolveHookOriginals()

	dyn := buildSyntheticObject(t)
	defer keepSyntheticAlive()

	patched = make(map[string]struct{})
	t.Cleanup(func() { patched = make(map[string]struct{}) })

	obj := objectInfo{name: "synthetic-test-object", base: 0, dyn: dyn}

	synSlots = [3]unsafe.Pointer{}
	patchObject(obj, false)
	assert.Equal(t, hookMalloc.wrapper, synSlots[0])
	assert.Equal(t, []string{"synthetic-test-object"}, PatchedObjects())

	// A second install pass must skip the object entirely.
	synSlots = [3]unsafe.Pointer{}
	patchObject(obj, false)
	assert.Nil(t, synSlots[0], "deduplicated object must not be re-patched")

	// Emptying the set forces a fresh install, as an uninstall does.
	patched = make(map[string]struct{})
	patchObject(obj, false)
	assert.Equal(t, hookMalloc.wrapper, synSlots[0])
}

func TestRestorePassIgnoresPatchedSet(t *testing.T) {
	resolveHookOriginals()

	dyn := buildSyntheticObject(t)
	defer keepSyntheticAlive()

	patched = make(map[string]struct{})
	t.Cleanup(func() { patched = make(map[string]struct{}) })

	obj := objectInfo{name: "synthetic-test-object", base: 0, dyn: dyn}
	patchObject(obj, false)
	require.Equal(t, hookMalloc.wrapper, synSlots[0])

	// Restore runs even though the object sits in the patched set.
	patchObject(obj, true)
	assert.Equal(t, hookMalloc.original, synSlots[0])
}

func TestSkipObject(t *testing.T) {
	testCases := []struct {
		name string
		skip bool
	}{
		{"", false},
		{"/usr/lib/libc.so.6", false},
		{"linux-vdso.so.1", true},
		{"/lib64/ld-linux-x86-64.so.2", true},
		{"/opt/tracer/liballoctrace.so", true},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.skip, skipObject(tc.name), "object %q", tc.name)
	}
}

func TestSkipObjectHonoursConfiguredExcludes(t *testing.T) {
	old := cfg.excludes
	cfg.excludes = []string{"libjemalloc"}
	t.Cleanup(func() { cfg.excludes = old })

	assert.True(t, skipObject("/usr/lib/libjemalloc.so.2"))
	assert.False(t, skipObject("/usr/lib/libm.so.6"))
}

func TestLookupSymbolFindsLibcMalloc(t *testing.T) {
	addr := lookupSymbol("malloc")
	assert.NotZero(t, addr, "a dynamically linked process must resolve malloc")
}

func TestLookupSymbolAbsent(t *testing.T) {
	assert.Zero(t, lookupSymbol("alloctrace_no_such_symbol_anywhere"))
}
