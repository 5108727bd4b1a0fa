//go:build amd64

package main

import (
	"fmt"
	"strings"

	"golang.org/x/arch/x86/x86asm"

	"github.com/k2io/alloctrace"
)

// pltStubSize is the glibc lazy-binding stub layout: slot 0 is the
// resolver, imported symbol i sits at (i+1)*16.
const pltStubSize = 16

// pltStub locates the jump stub for an imported symbol via its
// .rel(a).plt index.
func pltStub(c *cachedELF, name string) ([]byte, uint64, error) {
	rels, err := c.relocations()
	if err != nil {
		return nil, 0, err
	}
	idx := -1
	n := 0
	for _, r := range rels {
		if !strings.Contains(r.table, ".plt") {
			continue
		}
		if c.symName(r.sym) == name {
			idx = n
			break
		}
		n++
	}
	if idx < 0 {
		return nil, 0, fmt.Errorf("%s has no PLT relocation here", name)
	}
	plt := c.file.Section(".plt")
	if plt == nil {
		return nil, 0, fmt.Errorf("no .plt section")
	}
	data, err := plt.Data()
	if err != nil {
		return nil, 0, err
	}
	off := (idx + 1) * pltStubSize
	if off+pltStubSize > len(data) {
		return nil, 0, fmt.Errorf("stub for %s out of section bounds", name)
	}
	return data[off : off+pltStubSize], plt.Addr + uint64(off), nil
}

func (ins *inspector) cmdDisasm(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: disasm <sym>")
	}
	c, err := ins.currentELF()
	if err != nil {
		return err
	}
	code, addr, err := pltStub(c, args[0])
	if err != nil {
		return err
	}
	for off := 0; off < len(code); {
		inst, err := x86asm.Decode(code[off:], 64)
		if err != nil {
			break
		}
		fmt.Printf("%016x  %s\n", addr+uint64(off), x86asm.GNUSyntax(inst, addr+uint64(off), nil))
		off += inst.Len
	}
	return nil
}

func (ins *inspector) cmdSlot(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: slot <sym>")
	}
	c, err := ins.currentELF()
	if err != nil {
		return err
	}
	code, addr, err := pltStub(c, args[0])
	if err != nil {
		return err
	}
	slot, err := alloctrace.ResolvePLTSlot(code, uintptr(addr))
	if err != nil {
		return err
	}
	fmt.Printf("%s: stub %016x jumps through GOT slot %016x\n", args[0], addr, slot)
	return nil
}
