//go:build amd64 || arm64

package elfview

import (
	"debug/elf"
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A crafted in-memory image: the same structures the loader maps, laid
// out in package variables so their addresses stay put.
var (
	imgStrtab []byte
	imgSymtab []elf.Sym64
	imgHash   [2]uint32
	imgRel    []elf.Rel64
	imgRela   []elf.Rela64
	imgJmprel []elf.Rela64
	imgDyn    []elf.Dyn64
)

func addr(p unsafe.Pointer) uint64 {
	return uint64(uintptr(p))
}

func buildImage(t *testing.T) *View {
	t.Helper()

	// Name offsets: alpha=1, beta=7, dup=12 (twice), undef=16.
	imgStrtab = []byte("\x00alpha\x00beta\x00dup\x00undef\x00")
	imgSymtab = []elf.Sym64{
		{},
		{Name: 1, Value: 0x100},  // alpha
		{Name: 7, Value: 0x200},  // beta
		{Name: 12, Value: 0x300}, // dup, first definition
		{Name: 12, Value: 0x400}, // dup, shadowed
		{Name: 16, Value: 0},     // undef: an unresolved import
	}
	imgHash = [2]uint32{1, uint32(len(imgSymtab))}
	imgRel = []elf.Rel64{
		{Off: 0x1000, Info: uint64(elf.R_INFO(1, 7))},
	}
	imgRela = []elf.Rela64{
		{Off: 0x2000, Info: elf.R_INFO(2, 7)},
		{Off: 0x2008, Info: elf.R_INFO(3, 7)},
	}
	imgJmprel = []elf.Rela64{
		{Off: 0x3000, Info: elf.R_INFO(1, 7)},
	}
	imgDyn = []elf.Dyn64{
		{Tag: int64(elf.DT_SYMTAB), Val: addr(unsafe.Pointer(&imgSymtab[0]))},
		{Tag: int64(elf.DT_SYMENT), Val: uint64(symSize)},
		{Tag: int64(elf.DT_STRTAB), Val: addr(unsafe.Pointer(&imgStrtab[0]))},
		{Tag: int64(elf.DT_STRSZ), Val: uint64(len(imgStrtab))},
		{Tag: int64(elf.DT_HASH), Val: addr(unsafe.Pointer(&imgHash[0]))},
		{Tag: int64(elf.DT_REL), Val: addr(unsafe.Pointer(&imgRel[0]))},
		{Tag: int64(elf.DT_RELSZ), Val: uint64(len(imgRel)) * uint64(relSize)},
		{Tag: int64(elf.DT_RELENT), Val: uint64(relSize)},
		{Tag: int64(elf.DT_RELA), Val: addr(unsafe.Pointer(&imgRela[0]))},
		{Tag: int64(elf.DT_RELASZ), Val: uint64(len(imgRela)) * uint64(relaSize)},
		{Tag: int64(elf.DT_RELAENT), Val: uint64(relaSize)},
		{Tag: int64(elf.DT_JMPREL), Val: addr(unsafe.Pointer(&imgJmprel[0]))},
		{Tag: int64(elf.DT_PLTRELSZ), Val: uint64(len(imgJmprel)) * uint64(relaSize)},
		{Tag: int64(elf.DT_PLTREL), Val: uint64(elf.DT_RELA)},
		{Tag: int64(elf.DT_NULL)},
	}
	return New(0, uintptr(unsafe.Pointer(&imgDyn[0])))
}

func keepImageAlive() {
	runtime.KeepAlive(imgStrtab)
	runtime.KeepAlive(imgSymtab)
	runtime.KeepAlive(imgRel)
	runtime.KeepAlive(imgRela)
	runtime.KeepAlive(imgJmprel)
	runtime.KeepAlive(imgDyn)
}

func TestRelocationTablesOrderAndContents(t *testing.T) {
	v := buildImage(t)
	defer keepImageAlive()

	tables := v.RelocationTables()
	require.Len(t, tables, 3)

	assert.Equal(t, Rel, tables[0].Kind)
	assert.Equal(t, Rela, tables[1].Kind)
	assert.Equal(t, Jmprel, tables[2].Kind)

	require.Len(t, tables[0].Entries, 1)
	assert.Equal(t, Reloc{Offset: 0x1000, SymbolIndex: 1}, tables[0].Entries[0])

	require.Len(t, tables[1].Entries, 2)
	assert.Equal(t, Reloc{Offset: 0x2000, SymbolIndex: 2}, tables[1].Entries[0])
	assert.Equal(t, Reloc{Offset: 0x2008, SymbolIndex: 3}, tables[1].Entries[1])

	require.Len(t, tables[2].Entries, 1)
	assert.Equal(t, Reloc{Offset: 0x3000, SymbolIndex: 1}, tables[2].Entries[0])
}

func TestSymbolName(t *testing.T) {
	v := buildImage(t)
	defer keepImageAlive()

	assert.Equal(t, "alpha", v.SymbolName(1))
	assert.Equal(t, "beta", v.SymbolName(2))
	assert.Equal(t, "", v.SymbolName(0), "null symbol has the empty name")
	assert.Equal(t, "", v.SymbolName(99), "out-of-range index yields the empty string")
}

func TestAddressOf(t *testing.T) {
	v := buildImage(t)
	defer keepImageAlive()

	assert.Equal(t, uintptr(0x100), v.AddressOf("alpha"))
	assert.Equal(t, uintptr(0x200), v.AddressOf("beta"))
	assert.Zero(t, v.AddressOf("gamma"), "absent symbol yields zero")
	assert.Zero(t, v.AddressOf(""), "empty name never matches")
}

func TestAddressOfFirstMatchWins(t *testing.T) {
	v := buildImage(t)
	defer keepImageAlive()

	assert.Equal(t, uintptr(0x300), v.AddressOf("dup"))
}

func TestAddressOfSkipsUndefinedImports(t *testing.T) {
	v := buildImage(t)
	defer keepImageAlive()

	assert.Zero(t, v.AddressOf("undef"), "a zero-value import is not a definition")
}

func TestAddressOfAppliesLoadBase(t *testing.T) {
	// A non-zero base shifts symbol addresses but not parsing: the
	// d_ptr values here are already absolute and must not be
	// rebased.
	imgStrtab = []byte("\x00alpha\x00")
	imgSymtab = []elf.Sym64{{}, {Name: 1, Value: 0x100}}
	imgHash = [2]uint32{1, uint32(len(imgSymtab))}
	imgDyn = []elf.Dyn64{
		{Tag: int64(elf.DT_SYMTAB), Val: addr(unsafe.Pointer(&imgSymtab[0]))},
		{Tag: int64(elf.DT_SYMENT), Val: uint64(symSize)},
		{Tag: int64(elf.DT_STRTAB), Val: addr(unsafe.Pointer(&imgStrtab[0]))},
		{Tag: int64(elf.DT_STRSZ), Val: uint64(len(imgStrtab))},
		{Tag: int64(elf.DT_HASH), Val: addr(unsafe.Pointer(&imgHash[0]))},
		{Tag: int64(elf.DT_NULL)},
	}
	defer keepImageAlive()

	v := New(0x7000, uintptr(unsafe.Pointer(&imgDyn[0])))
	assert.Equal(t, uintptr(0x7100), v.AddressOf("alpha"))
}

func TestTableKindString(t *testing.T) {
	assert.Equal(t, "rel", Rel.String())
	assert.Equal(t, "rela", Rela.String())
	assert.Equal(t, "jmprel", Jmprel.String())
}
