//go:build amd64 || arm64 || loong64 || mips64 || mips64le || ppc64 || ppc64le || riscv64 || s390x

package elfview

import (
	"debug/elf"
	"unsafe"
)

// ELF64 layouts. The relocation info word is split with the 64-bit
// symbol macro.

type dynEnt = elf.Dyn64
type symEnt = elf.Sym64
type relEnt = elf.Rel64
type relaEnt = elf.Rela64

const (
	dynSize  = unsafe.Sizeof(dynEnt{})
	symSize  = unsafe.Sizeof(symEnt{})
	relSize  = unsafe.Sizeof(relEnt{})
	relaSize = unsafe.Sizeof(relaEnt{})
)

func dynTag(d *dynEnt) elf.DynTag { return elf.DynTag(d.Tag) }

func dynVal(d *dynEnt) uintptr { return uintptr(d.Val) }

func relOffset(r *relEnt) uintptr { return uintptr(r.Off) }

func relSym(r *relEnt) uint32 { return elf.R_SYM64(r.Info) }

func relaOffset(r *relaEnt) uintptr { return uintptr(r.Off) }

func relaSym(r *relaEnt) uint32 { return elf.R_SYM64(r.Info) }

func symNameOff(s *symEnt) uint32 { return s.Name }

func symValue(s *symEnt) uintptr { return uintptr(s.Value) }
