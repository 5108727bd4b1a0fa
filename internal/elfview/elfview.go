// Package elfview gives read-only structural access to the dynamic
// section of an ELF object that is already mapped into the current
// process. Unlike debug/elf, which reads files, the view walks the
// loader's in-memory image directly, the same way the runtime's vDSO
// parser does.
package elfview

import (
	"debug/elf"
	"unsafe"
)

// TableKind names one of the three relocation tables of an object.
type TableKind int

const (
	// Rel holds relocation entries with implicit addends.
	Rel TableKind = iota
	// Rela holds relocation entries with explicit addends.
	Rela
	// Jmprel holds the relocations for the procedure linkage table.
	Jmprel
)

func (k TableKind) String() string {
	switch k {
	case Rel:
		return "rel"
	case Rela:
		return "rela"
	case Jmprel:
		return "jmprel"
	}
	return "unknown"
}

// Reloc is one relocation entry, reduced to the two values the tracer
// needs: the GOT slot offset relative to the object's load base, and
// the index of the symbol the slot resolves.
type Reloc struct {
	Offset      uintptr
	SymbolIndex uint32
}

// Table is one parsed relocation table.
type Table struct {
	Kind    TableKind
	Entries []Reloc
}

// View is the parsed dynamic section of one loaded object.
type View struct {
	base   uintptr
	symtab uintptr
	syment uintptr
	strtab uintptr
	strsz  uintptr
	nsyms  uintptr
	tables []Table
}

// New parses the dynamic array at dyn, which must be the in-memory
// address of the object's PT_DYNAMIC segment. base is the object's
// load address as reported by the loader.
func New(base, dyn uintptr) *View {
	v := &View{base: base, syment: symSize}

	var (
		relAddr, relSz   uintptr
		relEnt           = relSize
		relaAddr, relaSz uintptr
		relaEnt          = relaSize
		jmpAddr, jmpSz   uintptr
		jmpIsRela        bool
		hash             uintptr
	)

	for p := dyn; ; p += dynSize {
		d := (*dynEnt)(unsafe.Pointer(p))
		tag := dynTag(d)
		if tag == elf.DT_NULL {
			break
		}
		val := dynVal(d)
		switch tag {
		case elf.DT_SYMTAB:
			v.symtab = v.absolute(val)
		case elf.DT_SYMENT:
			v.syment = val
		case elf.DT_STRTAB:
			v.strtab = v.absolute(val)
		case elf.DT_STRSZ:
			v.strsz = val
		case elf.DT_HASH:
			hash = v.absolute(val)
		case elf.DT_REL:
			relAddr = v.absolute(val)
		case elf.DT_RELSZ:
			relSz = val
		case elf.DT_RELENT:
			relEnt = val
		case elf.DT_RELA:
			relaAddr = v.absolute(val)
		case elf.DT_RELASZ:
			relaSz = val
		case elf.DT_RELAENT:
			relaEnt = val
		case elf.DT_JMPREL:
			jmpAddr = v.absolute(val)
		case elf.DT_PLTRELSZ:
			jmpSz = val
		case elf.DT_PLTREL:
			jmpIsRela = val == uintptr(elf.DT_RELA)
		}
	}

	if v.syment == 0 {
		v.syment = symSize
	}
	v.nsyms = symbolCount(hash, v.symtab, v.strtab, v.syment)

	// Table order matters to callers: Rel, then Rela, then Jmprel.
	jmpEnt := relEnt
	if jmpIsRela {
		jmpEnt = relaEnt
	}
	v.tables = []Table{
		parseTable(Rel, relAddr, relSz, relEnt, false),
		parseTable(Rela, relaAddr, relaSz, relaEnt, true),
		parseTable(Jmprel, jmpAddr, jmpSz, jmpEnt, jmpIsRela),
	}
	return v
}

// absolute turns a d_ptr value into an in-memory address. Most loaders
// leave the file's virtual addresses in the dynamic array, which need
// the load base added; a few (the main executable, some vDSOs) store
// already-relocated pointers.
func (v *View) absolute(val uintptr) uintptr {
	if val >= v.base {
		return val
	}
	return v.base + val
}

// symbolCount bounds the symbol table. DT_HASH carries the chain count
// directly; without it, fall back on the usual layout where the string
// table immediately follows the symbol table.
func symbolCount(hash, symtab, strtab, syment uintptr) uintptr {
	if hash != 0 {
		nchain := *(*uint32)(unsafe.Pointer(hash + 4))
		return uintptr(nchain)
	}
	if strtab > symtab && symtab != 0 {
		return (strtab - symtab) / syment
	}
	return 0
}

func parseTable(kind TableKind, addr, size, ent uintptr, explicitAddend bool) Table {
	t := Table{Kind: kind}
	if addr == 0 || size == 0 || ent == 0 {
		return t
	}
	for off := uintptr(0); off+ent <= size; off += ent {
		p := addr + off
		if explicitAddend {
			r := (*relaEnt)(unsafe.Pointer(p))
			t.Entries = append(t.Entries, Reloc{Offset: relaOffset(r), SymbolIndex: relaSym(r)})
		} else {
			r := (*relEnt)(unsafe.Pointer(p))
			t.Entries = append(t.Entries, Reloc{Offset: relOffset(r), SymbolIndex: relSym(r)})
		}
	}
	return t
}

// RelocationTables returns the three relocation tables in patch order.
func (v *View) RelocationTables() []Table {
	return v.tables
}

// SymbolName resolves a relocation's symbol-table index to its name.
// Out-of-range indices yield the empty string.
func (v *View) SymbolName(index uint32) string {
	if v.symtab == 0 {
		return ""
	}
	if v.nsyms != 0 && uintptr(index) >= v.nsyms {
		return ""
	}
	s := (*symEnt)(unsafe.Pointer(v.symtab + uintptr(index)*v.syment))
	return v.str(symNameOff(s))
}

// AddressOf scans the exported symbols for name and returns its
// absolute address, or 0 when the object does not define it. The first
// matching symbol wins. Undefined imports carry a zero value and are
// skipped.
func (v *View) AddressOf(name string) uintptr {
	if v.symtab == 0 || name == "" {
		return 0
	}
	for i := uintptr(0); i < v.nsyms; i++ {
		s := (*symEnt)(unsafe.Pointer(v.symtab + i*v.syment))
		if symValue(s) == 0 {
			continue
		}
		if v.str(symNameOff(s)) == name {
			return v.base + symValue(s)
		}
	}
	return 0
}

// str reads a NUL-terminated name out of the string table, bounded by
// DT_STRSZ.
func (v *View) str(off uint32) string {
	if v.strtab == 0 || uintptr(off) >= v.strsz {
		return ""
	}
	end := uintptr(off)
	for end < v.strsz && *(*byte)(unsafe.Pointer(v.strtab + end)) != 0 {
		end++
	}
	if end == uintptr(off) {
		return ""
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(v.strtab+uintptr(off))), end-uintptr(off))
	return string(b)
}
