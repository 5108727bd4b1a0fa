//go:build 386 || arm || mips || mipsle

package elfview

import (
	"debug/elf"
	"unsafe"
)

// ELF32 layouts. The relocation info word is split with the 32-bit
// symbol macro.

type dynEnt = elf.Dyn32
type symEnt = elf.Sym32
type relEnt = elf.Rel32
type relaEnt = elf.Rela32

const (
	dynSize  = unsafe.Sizeof(dynEnt{})
	symSize  = unsafe.Sizeof(symEnt{})
	relSize  = unsafe.Sizeof(relEnt{})
	relaSize = unsafe.Sizeof(relaEnt{})
)

func dynTag(d *dynEnt) elf.DynTag { return elf.DynTag(d.Tag) }

func dynVal(d *dynEnt) uintptr { return uintptr(d.Val) }

func relOffset(r *relEnt) uintptr { return uintptr(r.Off) }

func relSym(r *relEnt) uint32 { return elf.R_SYM32(r.Info) }

func relaOffset(r *relaEnt) uintptr { return uintptr(r.Off) }

func relaSym(r *relaEnt) uint32 { return elf.R_SYM32(r.Info) }

func symNameOff(s *symEnt) uint32 { return s.Name }

func symValue(s *symEnt) uintptr { return uintptr(s.Value) }
