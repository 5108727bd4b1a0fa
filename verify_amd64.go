//go:build amd64

package alloctrace

import "golang.org/x/arch/x86/x86asm"

// ResolvePLTSlot decodes a PLT jump stub and returns the address of
// the GOT slot it loads through. code holds the stub bytes and addr
// the stub's address; the slot falls out of the RIP-relative memory
// operand of the indirect jump. The inspector uses it to show which
// slot a given stub will patch.
func ResolvePLTSlot(code []byte, addr uintptr) (uintptr, error) {
	off := 0
	for off < len(code) {
		inst, err := x86asm.Decode(code[off:], 64)
		if err != nil {
			return 0, err
		}
		for _, arg := range inst.Args {
			mem, ok := arg.(x86asm.Mem)
			if !ok || mem.Base != x86asm.RIP {
				continue
			}
			// x86asm zero-extends a 32-bit displacement; RIP-relative
			// rel32 is signed.
			return uintptr(int64(addr) + int64(off+inst.Len) + int64(int32(mem.Disp))), nil
		}
		if inst.Op == x86asm.JMP || inst.Op == x86asm.RET {
			break
		}
		off += inst.Len
	}
	return 0, ErrNoGOTSlot
}
