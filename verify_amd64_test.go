//go:build amd64

package alloctrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePLTSlot(t *testing.T) {
	// jmp *0x10(%rip)
	stub := []byte{0xff, 0x25, 0x10, 0x00, 0x00, 0x00}
	slot, err := ResolvePLTSlot(stub, 0x401000)
	require.NoError(t, err)
	assert.Equal(t, uintptr(0x401000+6+0x10), slot)
}

func TestResolvePLTSlotNegativeDisplacement(t *testing.T) {
	// jmp *-0x20(%rip)
	stub := []byte{0xff, 0x25, 0xe0, 0xff, 0xff, 0xff}
	slot, err := ResolvePLTSlot(stub, 0x401000)
	require.NoError(t, err)
	assert.Equal(t, uintptr(0x401000+6-0x20), slot)
}

func TestResolvePLTSlotSkipsLeadingInstructions(t *testing.T) {
	// push %rax; jmp *0x8(%rip)
	stub := []byte{0x50, 0xff, 0x25, 0x08, 0x00, 0x00, 0x00}
	slot, err := ResolvePLTSlot(stub, 0x401000)
	require.NoError(t, err)
	assert.Equal(t, uintptr(0x401000+7+0x8), slot)
}

func TestResolvePLTSlotNoIndirectJump(t *testing.T) {
	// ret
	_, err := ResolvePLTSlot([]byte{0xc3}, 0x401000)
	assert.ErrorIs(t, err, ErrNoGOTSlot)
}
